package service

import (
	"context"
	"io"
	"sync"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"github.com/sirupsen/logrus"
)

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Backend:   "memory",
			BatchSize: 10,
			Tables: config.TableConfig{
				Games:       "Games",
				Teams:       "Teams",
				Locations:   "Locations",
				Officials:   "Officials",
				NameField:   "Name",
				GameIDField: model.FieldGameID,
			},
		},
		Sync: config.SyncConfig{
			SelfName:       "Jane Doe",
			UTCOffsetHours: -6,
			Concurrency:    4,
			StrictLookup:   true,
			LevelPrefix:    "U",
			LabelWidth:     4,
			Placeholders:   []string{"", "TBD", "Unknown"},
			Columns: config.ColumnConfig{
				GameID:    "Game #",
				DateTime:  "Date Time",
				Location:  "Location",
				Field:     "Field",
				Level:     "Level",
				Home:      "Home",
				Away:      "Away",
				Position:  "Position",
				Officials: []string{"Official 1", "Official 2", "Official 3"},
			},
		},
	}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func gameRow(id, home, away string) model.RawRow {
	return model.RawRow{
		"Game #":     id,
		"Date Time":  "7/4/23 6:30pm",
		"Location":   "central park - field 3",
		"Level":      "12U Boys",
		"Home":       home,
		"Away":       away,
		"Official 1": "CR: Jane Doe",
		"Official 2": "AR1: Bob Smith",
		"Official 3": "TBD",
	}
}

// sliceSource 内存数据源；未指定 lines 时行号依次为 1..n
type sliceSource struct {
	rows  []model.RawRow
	lines []int
	err   error
}

func (s *sliceSource) Name() string { return "test" }

func (s *sliceSource) Rows(context.Context) ([]model.SourceRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.SourceRow, 0, len(s.rows))
	for i, row := range s.rows {
		line := i + 1
		if i < len(s.lines) {
			line = s.lines[i]
		}
		out = append(out, model.SourceRow{Line: line, Cells: row})
	}
	return out, nil
}

// faultStore 包装 TableStore，按需注入错误
type faultStore struct {
	interfaces.TableStore

	mu        sync.Mutex
	selectErr func(table string, f model.Filter) error
	createErr func(table string, call int) error
	updateErr func(table string, call int) error
	creates   int
	updates   int
}

func (f *faultStore) Select(ctx context.Context, table string, filter model.Filter) ([]model.RemoteRecord, error) {
	if f.selectErr != nil {
		if err := f.selectErr(table, filter); err != nil {
			return nil, err
		}
	}
	return f.TableStore.Select(ctx, table, filter)
}

func (f *faultStore) Create(ctx context.Context, table string, fields []model.Fields) ([]model.RemoteRecord, error) {
	f.mu.Lock()
	call := f.creates
	f.creates++
	f.mu.Unlock()
	if f.createErr != nil {
		if err := f.createErr(table, call); err != nil {
			return nil, err
		}
	}
	return f.TableStore.Create(ctx, table, fields)
}

func (f *faultStore) Update(ctx context.Context, table string, records []model.RemoteRecord) ([]model.RemoteRecord, error) {
	f.mu.Lock()
	call := f.updates
	f.updates++
	f.mu.Unlock()
	if f.updateErr != nil {
		if err := f.updateErr(table, call); err != nil {
			return nil, err
		}
	}
	return f.TableStore.Update(ctx, table, records)
}
