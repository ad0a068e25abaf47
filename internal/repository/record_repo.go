package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordRepository 基于 PostgreSQL 的 TableStore 实现：
// 所有逻辑表存放在 store_records 中，字段以 jsonb 保存，语义与 Airtable 保持一致
type RecordRepository struct {
	db        *gorm.DB
	batchSize int
}

var _ interfaces.TableStore = (*RecordRepository)(nil)

func NewRecordRepository(db *gorm.DB, batchSize int) *RecordRepository {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &RecordRepository{db: db, batchSize: batchSize}
}

func (r *RecordRepository) MaxBatchSize() int { return r.batchSize }

// filterClause 生成 jsonb 单字段相等条件
func filterClause(f model.Filter) (string, []interface{}) {
	if f.Mode == model.MatchEqualFold {
		return "LOWER(fields ->> ?) = LOWER(?)", []interface{}{f.Field, f.Value}
	}
	return "fields ->> ? = ?", []interface{}{f.Field, f.Value}
}

func (r *RecordRepository) Select(ctx context.Context, table string, filter model.Filter) ([]model.RemoteRecord, error) {
	cond, args := filterClause(filter)
	var rows []*model.StoreRecord
	if err := r.db.WithContext(ctx).
		Where("table_ref = ?", table).
		Where(cond, args...).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, classifyDBError(fmt.Errorf("查询%s失败: %w", table, err))
	}
	return toRemoteRecords(rows)
}

func (r *RecordRepository) Create(ctx context.Context, table string, fields []model.Fields) ([]model.RemoteRecord, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > r.batchSize {
		return nil, fmt.Errorf("单批创建%d条超过上限%d", len(fields), r.batchSize)
	}
	now := time.Now()
	rows := make([]*model.StoreRecord, 0, len(fields))
	for _, f := range fields {
		b, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("序列化%s字段失败: %w", table, err)
		}
		rows = append(rows, &model.StoreRecord{
			ID:        uuid.NewString(),
			TableRef:  table,
			Fields:    datatypes.JSON(b),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	// 单条 INSERT 多行，整批原子
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, classifyDBError(fmt.Errorf("创建%s记录失败: %w", table, err))
	}
	return toRemoteRecords(rows)
}

// Update 以 jsonb 合并（fields || patch）实现 PATCH 语义，整批在一个事务内
func (r *RecordRepository) Update(ctx context.Context, table string, records []model.RemoteRecord) ([]model.RemoteRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if len(records) > r.batchSize {
		return nil, fmt.Errorf("单批更新%d条超过上限%d", len(records), r.batchSize)
	}
	ids := make([]string, 0, len(records))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			patch, err := json.Marshal(rec.Fields)
			if err != nil {
				return fmt.Errorf("序列化%s字段失败: %w", table, err)
			}
			res := tx.Model(&model.StoreRecord{}).
				Where("id = ? AND table_ref = ?", rec.ID, table).
				Updates(map[string]interface{}{
					"fields":     gorm.Expr("fields || ?::jsonb", string(patch)),
					"updated_at": time.Now(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%s中不存在记录%s", table, rec.ID)
			}
			ids = append(ids, rec.ID)
		}
		return nil
	})
	if err != nil {
		return nil, classifyDBError(fmt.Errorf("更新%s记录失败: %w", table, err))
	}

	var rows []*model.StoreRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, classifyDBError(fmt.Errorf("回读%s记录失败: %w", table, err))
	}
	byID := make(map[string]*model.StoreRecord, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]*model.StoreRecord, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return toRemoteRecords(ordered)
}

func toRemoteRecords(rows []*model.StoreRecord) ([]model.RemoteRecord, error) {
	out := make([]model.RemoteRecord, 0, len(rows))
	for _, row := range rows {
		fields := model.Fields{}
		if len(row.Fields) > 0 {
			if err := json.Unmarshal(row.Fields, &fields); err != nil {
				return nil, fmt.Errorf("解析记录%s字段失败: %w", row.ID, err)
			}
		}
		out = append(out, model.RemoteRecord{ID: row.ID, Fields: fields})
	}
	return out, nil
}

// classifyDBError 连接类错误归为存储不可用，其余保持原样
func classifyDBError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return err
}
