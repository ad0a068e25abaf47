package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) interfaces.RunRepository {
	return &runRepository{db: db}
}

type runErrors struct {
	Rows    []model.RowFailure   `json:"rows,omitempty"`
	Batches []model.BatchFailure `json:"batches,omitempty"`
}

// SaveRun 保存同步结果；同一 run_uuid 重复保存时覆盖
func (r *runRepository) SaveRun(ctx context.Context, report *model.SyncReport) error {
	errs, err := json.Marshal(runErrors{Rows: report.RowErrors, Batches: report.BatchErrors})
	if err != nil {
		return fmt.Errorf("序列化错误明细失败: %w", err)
	}
	run := &model.SyncRun{
		RunUUID:         report.RunID,
		Source:          report.Source,
		DryRun:          report.DryRun,
		Rows:            report.Rows,
		Created:         report.Created,
		Updated:         report.Updated,
		Skipped:         report.Skipped,
		Failed:          report.Failed,
		EntitiesCreated: report.EntitiesCreated,
		Errors:          datatypes.JSON(errs),
		StartedAt:       report.StartedAt,
		FinishedAt:      report.StartedAt.Add(report.Duration),
	}
	if report.Fatal != "" {
		fatal := report.Fatal
		run.Fatal = &fatal
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "run_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"rows", "created", "updated", "skipped", "failed", "entities_created", "errors", "fatal", "finished_at",
		}),
	}).Create(run).Error
}

func (r *runRepository) ListRuns(ctx context.Context, page, pageSize int) ([]*model.SyncRun, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := r.db.WithContext(ctx).Model(&model.SyncRun{})
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var runs []*model.SyncRun
	if err := db.Order("started_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (r *runRepository) GetRun(ctx context.Context, runUUID string) (*model.SyncRun, error) {
	var run model.SyncRun
	if err := r.db.WithContext(ctx).Where("run_uuid = ?", runUUID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
