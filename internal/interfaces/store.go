package interfaces

import (
	"context"
	"errors"

	"ScheduleSync/internal/model"
)

// 存储层错误分类：同步服务据此区分致命错误与行/批次级错误
var (
	ErrStoreUnauthorized = errors.New("远端存储认证失败")
	ErrTableNotFound     = errors.New("远端表不存在")
	ErrStoreUnavailable  = errors.New("远端存储不可用")
)

// TableStore 远端表存储接口（Airtable / PostgreSQL / 内存）
type TableStore interface {
	// Select 按单字段相等条件查询，返回全部匹配记录（按存储的自然顺序）
	Select(ctx context.Context, table string, filter model.Filter) ([]model.RemoteRecord, error)
	// Create 批量创建，len(fields) 不得超过 MaxBatchSize
	Create(ctx context.Context, table string, fields []model.Fields) ([]model.RemoteRecord, error)
	// Update 批量更新（字段合并），len(records) 不得超过 MaxBatchSize
	Update(ctx context.Context, table string, records []model.RemoteRecord) ([]model.RemoteRecord, error)
	// MaxBatchSize 单次 Create/Update 允许的最大记录数
	MaxBatchSize() int
}

// RowSource 表格数据来源
type RowSource interface {
	Name() string
	Rows(ctx context.Context) ([]model.SourceRow, error)
}

// RunRepository 同步历史仓储
type RunRepository interface {
	SaveRun(ctx context.Context, report *model.SyncReport) error
	ListRuns(ctx context.Context, page, pageSize int) ([]*model.SyncRun, int64, error)
	GetRun(ctx context.Context, runUUID string) (*model.SyncRun, error)
}
