package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestFilterClause(t *testing.T) {
	cond, args := filterClause(model.Filter{Field: "Game id", Value: "77"})
	assert.Equal(t, "fields ->> ? = ?", cond)
	assert.Equal(t, []interface{}{"Game id", "77"}, args)

	cond, args = filterClause(model.Filter{Field: "Name", Value: "Hawks", Mode: model.MatchEqualFold})
	assert.Equal(t, "LOWER(fields ->> ?) = LOWER(?)", cond)
	assert.Equal(t, []interface{}{"Name", "Hawks"}, args)
}

func TestToRemoteRecords(t *testing.T) {
	rows := []*model.StoreRecord{
		{ID: "a", Fields: datatypes.JSON(`{"Name":"Hawks","Home Team":["t1"]}`)},
		{ID: "b"},
	}
	recs, err := toRemoteRecords(rows)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Hawks", recs[0].Fields["Name"])
	assert.Equal(t, []interface{}{"t1"}, recs[0].Fields["Home Team"])
	assert.Empty(t, recs[1].Fields)

	_, err = toRemoteRecords([]*model.StoreRecord{{ID: "c", Fields: datatypes.JSON(`{`)}})
	assert.Error(t, err)
}

func TestClassifyDBError(t *testing.T) {
	err := classifyDBError(fmt.Errorf("查询失败: %w", driver.ErrBadConn))
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)

	plain := errors.New("duplicate key")
	assert.Equal(t, plain, classifyDBError(plain))
}
