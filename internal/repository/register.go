package repository

import (
	"fmt"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/store"
)

func init() {
	store.Register("postgres", func(cfg *config.Config, deps store.Deps) (interfaces.TableStore, error) {
		if deps.DB == nil {
			return nil, fmt.Errorf("%w: postgres 后端需要数据库连接", config.ErrInvalidConfig)
		}
		return NewRecordRepository(deps.DB, cfg.Store.BatchSize), nil
	})
}
