package model

import (
	"time"

	"gorm.io/datatypes"
)

// StoreRecord postgres 后端的通用表记录：一张物理表承载所有逻辑表
type StoreRecord struct {
	ID        string         `gorm:"column:id;type:varchar(36);primaryKey;comment:记录ID(uuid)"`
	TableRef  string         `gorm:"column:table_ref;type:varchar(64);index;not null;comment:逻辑表名"`
	Fields    datatypes.JSON `gorm:"column:fields;type:jsonb;not null;comment:字段内容"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:now();comment:创建时间"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:now();comment:更新时间"`
}

// SyncRun 同步历史
type SyncRun struct {
	ID              uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	RunUUID         string         `gorm:"column:run_uuid;type:varchar(36);uniqueIndex;not null;comment:运行ID"`
	Source          string         `gorm:"column:source;type:varchar(256);comment:数据来源"`
	DryRun          bool           `gorm:"column:dry_run;type:boolean;default:false;comment:是否演练"`
	Rows            int            `gorm:"column:rows;type:int;default:0;comment:数据行数"`
	Created         int            `gorm:"column:created;type:int;default:0;comment:新建比赛数"`
	Updated         int            `gorm:"column:updated;type:int;default:0;comment:更新比赛数"`
	Skipped         int            `gorm:"column:skipped;type:int;default:0;comment:跳过行数"`
	Failed          int            `gorm:"column:failed;type:int;default:0;comment:失败数"`
	EntitiesCreated int            `gorm:"column:entities_created;type:int;default:0;comment:新建引用实体数"`
	Errors          datatypes.JSON `gorm:"column:errors;type:jsonb;comment:行/批次错误明细"`
	Fatal           *string        `gorm:"column:fatal;type:text;comment:致命错误"`
	StartedAt       time.Time      `gorm:"column:started_at;type:timestamp;not null;comment:开始时间"`
	FinishedAt      time.Time      `gorm:"column:finished_at;type:timestamp;not null;comment:结束时间"`
}

func (StoreRecord) TableName() string { return "store_records" }
func (SyncRun) TableName() string     { return "sync_runs" }
