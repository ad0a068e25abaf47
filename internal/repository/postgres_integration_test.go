//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"ScheduleSync/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 运行方式：SCHEDULESYNC_TEST_DSN=postgres://... go test -tags integration ./internal/repository/
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("SCHEDULESYNC_TEST_DSN")
	if dsn == "" {
		t.Skip("未设置 SCHEDULESYNC_TEST_DSN")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.StoreRecord{}, &model.SyncRun{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// 每个用例使用独立的逻辑表名，互不干扰
func testTable() string {
	return "t_" + uuid.NewString()[:8]
}

func TestRecordRepositorySelectAndCreate(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecordRepository(db, 10)
	ctx := context.Background()
	table := testTable()
	t.Cleanup(func() { db.Where("table_ref = ?", table).Delete(&model.StoreRecord{}) })

	created, err := repo.Create(ctx, table, []model.Fields{{"Name": "Rovers"}, {"Name": "ROVERS"}, {"Name": "Hawks"}})
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.NotEmpty(t, created[0].ID)
	assert.Equal(t, "Rovers", created[0].Fields["Name"])

	exact, err := repo.Select(ctx, table, model.Filter{Field: "Name", Value: "Rovers"})
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, created[0].ID, exact[0].ID)

	folded, err := repo.Select(ctx, table, model.Filter{Field: "Name", Value: "rovers", Mode: model.MatchEqualFold})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{created[0].ID, created[1].ID}, []string{folded[0].ID, folded[1].ID})

	// 其他逻辑表的同名记录不可见
	other, err := repo.Select(ctx, testTable(), model.Filter{Field: "Name", Value: "Rovers"})
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = repo.Create(ctx, table, make([]model.Fields, 11))
	assert.Error(t, err)
}

func TestRecordRepositoryUpdateMergesFields(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecordRepository(db, 10)
	ctx := context.Background()
	table := testTable()
	t.Cleanup(func() { db.Where("table_ref = ?", table).Delete(&model.StoreRecord{}) })

	created, err := repo.Create(ctx, table, []model.Fields{
		{"Game id": "1", "Field": "old", "Level": "U12"},
		{"Game id": "2", "Field": "old"},
	})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, table, []model.RemoteRecord{
		{ID: created[1].ID, Fields: model.Fields{"Field": "new"}},
		{ID: created[0].ID, Fields: model.Fields{"Field": "new", "Home Team": []string{"recA"}}},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	// 返回顺序与请求一致
	assert.Equal(t, created[1].ID, updated[0].ID)
	assert.Equal(t, created[0].ID, updated[1].ID)

	got, err := repo.Select(ctx, table, model.Filter{Field: "Game id", Value: "1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Fields["Field"])
	assert.Equal(t, "U12", got[0].Fields["Level"])
	assert.Equal(t, []interface{}{"recA"}, got[0].Fields["Home Team"])
}

func TestRecordRepositoryUpdateMissingRecordRollsBack(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecordRepository(db, 10)
	ctx := context.Background()
	table := testTable()
	t.Cleanup(func() { db.Where("table_ref = ?", table).Delete(&model.StoreRecord{}) })

	created, err := repo.Create(ctx, table, []model.Fields{{"Game id": "1", "Field": "old"}})
	require.NoError(t, err)

	_, err = repo.Update(ctx, table, []model.RemoteRecord{
		{ID: created[0].ID, Fields: model.Fields{"Field": "new"}},
		{ID: uuid.NewString(), Fields: model.Fields{"Field": "new"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不存在记录")

	got, err := repo.Select(ctx, table, model.Filter{Field: "Game id", Value: "1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Fields["Field"])

	// 记录存在但属于其他逻辑表，同样视为不存在
	_, err = repo.Update(ctx, testTable(), []model.RemoteRecord{{ID: created[0].ID, Fields: model.Fields{"Field": "x"}}})
	assert.Error(t, err)
}

func TestRunRepositorySaveListGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	report := &model.SyncReport{
		RunID:     uuid.NewString(),
		Source:    "schedule.csv",
		Rows:      3,
		Created:   1,
		Failed:    1,
		RowErrors: []model.RowFailure{{Row: 4, GameID: "9", Stage: model.StageNormalize, Error: "bad date"}},
		StartedAt: time.Now(),
		Duration:  time.Second,
	}
	t.Cleanup(func() { db.Where("run_uuid = ?", report.RunID).Delete(&model.SyncRun{}) })
	require.NoError(t, repo.SaveRun(ctx, report))

	// 同一 run 再次保存时覆盖计数
	report.Created = 2
	report.Fatal = "同步中止(flush): 远端存储认证失败"
	require.NoError(t, repo.SaveRun(ctx, report))

	run, err := repo.GetRun(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, "schedule.csv", run.Source)
	assert.Equal(t, 2, run.Created)
	require.NotNil(t, run.Fatal)
	assert.Contains(t, string(run.Errors), "bad date")

	runs, total, err := repo.ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, int64(1))
	assert.Len(t, runs, 1)

	_, err = repo.GetRun(ctx, uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
