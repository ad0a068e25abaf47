package service

import (
	"context"
	"fmt"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"github.com/sirupsen/logrus"
)

// GameIndex 按业务主键查找已存在的比赛记录
type GameIndex struct {
	store    interfaces.TableStore
	table    string
	keyField string
	strict   bool
	logger   *logrus.Logger
}

func NewGameIndex(store interfaces.TableStore, table, keyField string, strict bool, logger *logrus.Logger) *GameIndex {
	return &GameIndex{store: store, table: table, keyField: keyField, strict: strict, logger: logger}
}

// FindExisting 返回已存在记录的ID；found=false 表示远端没有该比赛
func (x *GameIndex) FindExisting(ctx context.Context, gameID string) (string, bool, error) {
	recs, err := x.store.Select(ctx, x.table, model.Filter{Field: x.keyField, Value: gameID, Mode: model.MatchExact})
	if err != nil {
		return "", false, fmt.Errorf("查询比赛%s失败: %w", gameID, err)
	}
	return pickFirst(recs, x.strict, x.logger.WithFields(logrus.Fields{"table": x.table, "game_id": gameID}))
}
