package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"
)

var (
	// ErrSkipRow 缺少业务主键，行被跳过（不是错误）
	ErrSkipRow = errors.New("缺少比赛编号，跳过")
	// ErrInvalidRow 行数据无法规范化
	ErrInvalidRow = errors.New("行数据无效")
	// ErrEmptyName 引用实体名称为空
	ErrEmptyName = errors.New("实体名称为空")
	// ErrAmbiguousMatch 查找命中多条记录（远端存在重复数据）
	ErrAmbiguousMatch = errors.New("匹配到多条记录")
)

// RowError 单行失败，不影响其余行
type RowError struct {
	Row    int
	GameID string
	Stage  model.Stage
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("第%d行(比赛%s) %s 失败: %v", e.Row, e.GameID, e.Stage, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// BatchError 某个批次提交失败，已提交的批次不回滚
type BatchError struct {
	Op      model.WriteOp
	Chunk   int
	GameIDs []string
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s 第%d批(%s)提交失败: %v", e.Op, e.Chunk, strings.Join(e.GameIDs, ","), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// FatalError 配置或连接错误，整次同步中止
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("同步中止(%s): %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// isFatal 行处理阶段的致命错误：取消、认证、表不存在、存储不可用、配置错误
func isFatal(err error) bool {
	return isFatalForBatch(err) || errors.Is(err, interfaces.ErrStoreUnavailable)
}

// isFatalForBatch 批次提交阶段：存储不可用只影响当前批次
func isFatalForBatch(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, interfaces.ErrStoreUnauthorized) ||
		errors.Is(err, interfaces.ErrTableNotFound) ||
		errors.Is(err, config.ErrInvalidConfig)
}
