package airtable

import (
	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/store"
)

func init() {
	store.Register("airtable", func(cfg *config.Config, deps store.Deps) (interfaces.TableStore, error) {
		return NewClient(&cfg.Store.Airtable, deps.Logger)
	})
}
