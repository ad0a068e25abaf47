package model

import "time"

// Stage 行处理失败时所处阶段
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageResolve   Stage = "resolve"
	StageClassify  Stage = "classify"
)

// WriteOp 批量写入操作类型
type WriteOp string

const (
	OpCreate WriteOp = "create"
	OpUpdate WriteOp = "update"
)

// RowFailure 单行失败明细
type RowFailure struct {
	Row    int    `json:"row"` // 源文件行号（表头为第1行）
	GameID string `json:"game_id,omitempty"`
	Stage  Stage  `json:"stage"`
	Error  string `json:"error"`
}

// BatchFailure 单个批次提交失败明细，GameIDs 便于人工重试
type BatchFailure struct {
	Op      WriteOp  `json:"op"`
	Chunk   int      `json:"chunk"`
	GameIDs []string `json:"game_ids"`
	Error   string   `json:"error"`
}

// SyncReport 一次同步的汇总结果
type SyncReport struct {
	RunID           string         `json:"run_id"`
	Source          string         `json:"source"`
	DryRun          bool           `json:"dry_run"`
	Rows            int            `json:"rows"`
	Created         int            `json:"created"`
	Updated         int            `json:"updated"`
	Skipped         int            `json:"skipped"`
	Failed          int            `json:"failed"`
	EntitiesCreated int            `json:"entities_created"`
	RowErrors       []RowFailure   `json:"row_errors,omitempty"`
	BatchErrors     []BatchFailure `json:"batch_errors,omitempty"`
	Fatal           string         `json:"fatal,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	Duration        time.Duration  `json:"duration"`
}
