package service

import (
	"context"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"github.com/sirupsen/logrus"
)

// FlushResult 批量提交结果
type FlushResult struct {
	Created  int
	Updated  int
	Failed   int // 失败批次中的记录数
	Failures []*BatchError
}

// BatchWriter 按存储允许的最大批量切块，顺序提交
type BatchWriter struct {
	store  interfaces.TableStore
	table  string
	logger *logrus.Logger
}

func NewBatchWriter(store interfaces.TableStore, table string, logger *logrus.Logger) *BatchWriter {
	return &BatchWriter{store: store, table: table, logger: logger}
}

// Flush 先提交创建列表再提交更新列表。单个批次失败只记录，不回滚已提交的批次；
// 遇到致命错误（取消、认证失败等）立即停止并返回已完成部分的结果。
func (w *BatchWriter) Flush(ctx context.Context, creates, updates []model.PendingWrite) (*FlushResult, error) {
	res := &FlushResult{}
	ok, err := w.write(ctx, model.OpCreate, creates, res)
	res.Created = ok
	if err != nil {
		res.Failed += len(updates)
		return res, err
	}
	ok, err = w.write(ctx, model.OpUpdate, updates, res)
	res.Updated = ok
	return res, err
}

func (w *BatchWriter) write(ctx context.Context, op model.WriteOp, writes []model.PendingWrite, res *FlushResult) (int, error) {
	size := w.store.MaxBatchSize()
	if size <= 0 {
		size = len(writes)
	}
	succeeded := 0
	for i, chunk := range interfaces.Chunk(writes, size) {
		if len(chunk) == 0 {
			continue
		}
		var err error
		if op == model.OpCreate {
			fields := make([]model.Fields, 0, len(chunk))
			for _, pw := range chunk {
				fields = append(fields, pw.Record.Fields)
			}
			_, err = w.store.Create(ctx, w.table, fields)
		} else {
			records := make([]model.RemoteRecord, 0, len(chunk))
			for _, pw := range chunk {
				records = append(records, pw.Record)
			}
			_, err = w.store.Update(ctx, w.table, records)
		}

		log := w.logger.WithFields(logrus.Fields{"op": op, "chunk": i, "size": len(chunk)})
		if err == nil {
			succeeded += len(chunk)
			log.Debug("批次提交成功")
			continue
		}

		batchErr := &BatchError{Op: op, Chunk: i, GameIDs: gameIDs(chunk), Err: err}
		res.Failures = append(res.Failures, batchErr)
		res.Failed += len(chunk)
		log.WithError(err).WithField("game_ids", batchErr.GameIDs).Error("批次提交失败")
		if isFatalForBatch(err) {
			// 剩余批次都不会再提交，计入失败
			res.Failed += len(writes) - min((i+1)*size, len(writes))
			return succeeded, batchErr
		}
	}
	return succeeded, nil
}

func gameIDs(chunk []model.PendingWrite) []string {
	ids := make([]string, 0, len(chunk))
	for _, pw := range chunk {
		ids = append(ids, pw.GameID)
	}
	return ids
}
