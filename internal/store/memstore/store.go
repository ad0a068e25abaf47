// Package memstore 进程内 TableStore 实现，用于本地演练与测试
package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"
)

// Stats 各操作的调用次数
type Stats struct {
	Selects int
	Creates int // Create 调用次数（非记录数）
	Updates int
	Created map[string]int // 表名 -> 创建记录数
}

type Store struct {
	mu        sync.Mutex
	batchSize int
	tables    map[string][]model.RemoteRecord
	seq       int
	stats     Stats
}

var _ interfaces.TableStore = (*Store)(nil)

func New(batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Store{
		batchSize: batchSize,
		tables:    make(map[string][]model.RemoteRecord),
		stats:     Stats{Created: make(map[string]int)},
	}
}

func (s *Store) MaxBatchSize() int { return s.batchSize }

func (s *Store) Select(ctx context.Context, table string, filter model.Filter) ([]model.RemoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Selects++

	var out []model.RemoteRecord
	for _, r := range s.tables[table] {
		v, ok := r.Fields[filter.Field]
		if !ok {
			continue
		}
		got := fmt.Sprint(v)
		if got == filter.Value || (filter.Mode == model.MatchEqualFold && strings.EqualFold(got, filter.Value)) {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, table string, fields []model.Fields) ([]model.RemoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(fields) > s.batchSize {
		return nil, fmt.Errorf("单批创建%d条超过上限%d", len(fields), s.batchSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Creates++

	out := make([]model.RemoteRecord, 0, len(fields))
	for _, f := range fields {
		s.seq++
		r := model.RemoteRecord{ID: fmt.Sprintf("rec%06d", s.seq), Fields: copyFields(f)}
		s.tables[table] = append(s.tables[table], r)
		out = append(out, copyRecord(r))
	}
	s.stats.Created[table] += len(fields)
	return out, nil
}

// Update 按 Airtable PATCH 语义合并字段
func (s *Store) Update(ctx context.Context, table string, records []model.RemoteRecord) ([]model.RemoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) > s.batchSize {
		return nil, fmt.Errorf("单批更新%d条超过上限%d", len(records), s.batchSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Updates++

	rows := s.tables[table]
	idx := make(map[string]int, len(rows))
	for i, r := range rows {
		idx[r.ID] = i
	}
	// 先整体校验，保证批次原子性
	for _, r := range records {
		if _, ok := idx[r.ID]; !ok {
			return nil, fmt.Errorf("%s中不存在记录%s", table, r.ID)
		}
	}
	out := make([]model.RemoteRecord, 0, len(records))
	for _, r := range records {
		cur := rows[idx[r.ID]]
		for k, v := range r.Fields {
			cur.Fields[k] = v
		}
		out = append(out, copyRecord(cur))
	}
	return out, nil
}

// Stats 返回调用统计快照
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Created = make(map[string]int, len(s.stats.Created))
	for k, v := range s.stats.Created {
		st.Created[k] = v
	}
	return st
}

// Records 返回某张表的全部记录（按创建顺序）
func (s *Store) Records(table string) []model.RemoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RemoteRecord, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRecord(r))
	}
	return out
}

// Seed 直接写入已有记录（不计入统计），返回记录ID
func (s *Store) Seed(table string, fields model.Fields) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("rec%06d", s.seq)
	s.tables[table] = append(s.tables[table], model.RemoteRecord{ID: id, Fields: copyFields(fields)})
	return id
}

func copyRecord(r model.RemoteRecord) model.RemoteRecord {
	return model.RemoteRecord{ID: r.ID, Fields: copyFields(r.Fields)}
}

func copyFields(f model.Fields) model.Fields {
	out := make(model.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
