package memstore

import (
	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/store"
)

func init() {
	store.Register("memory", func(cfg *config.Config, _ store.Deps) (interfaces.TableStore, error) {
		return New(cfg.Store.BatchSize), nil
	})
}
