package service

import (
	"testing"
	"time"

	"ScheduleSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTitleCase(t *testing.T) {
	cases := map[string]string{
		"central park":    "Central Park",
		"CENTRAL  PARK":   "Central  Park",
		"o'neil field":    "O'neil Field",
		"":                "",
		"already Titled":  "Already Titled",
		"mIxEd cAsE name": "Mixed Case Name",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToTitleCase(in), in)
	}
}

func TestParseScheduleTime(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)

	got, err := ParseScheduleTime("7/4/23 6:30pm", loc)
	require.NoError(t, err)
	want := time.Date(2023, 7, 4, 18, 30, 0, 0, loc)
	assert.True(t, want.Equal(got))
	assert.Equal(t, "2023-07-04T18:30:00-06:00", got.Format(time.RFC3339))
	assert.Equal(t, "2023-07-05T00:30:00Z", got.UTC().Format(time.RFC3339))

	got, err = ParseScheduleTime(" 12/31/99  9:05 AM ", loc)
	require.NoError(t, err)
	assert.Equal(t, 2099, got.Year())
	assert.Equal(t, 9, got.Hour())

	got, err = ParseScheduleTime("1/1/24 12:00am", loc)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hour())
}

func TestParseScheduleTimeInvalid(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	for _, in := range []string{"", "tomorrow", "13/45/23 6:30pm", "7/4/2023", "7/4/23 18:30"} {
		_, err := ParseScheduleTime(in, loc)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, ErrInvalidRow, in)
		var pe *TimeParseError
		assert.ErrorAs(t, err, &pe, in)
	}
}

func TestParseScheduleTimeKeepsCause(t *testing.T) {
	_, err := ParseScheduleTime("tomorrow", time.UTC)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRow)
	var cause *time.ParseError
	require.ErrorAs(t, err, &cause)
	assert.Equal(t, "tomorrow", cause.Value)
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(&testConfig().Sync)

	g, err := n.Normalize(gameRow("101", "Tigers", "Lions"))
	require.NoError(t, err)
	assert.Equal(t, "101", g.GameID)
	assert.Equal(t, "Central Park", g.Location)
	assert.Equal(t, "field 3", g.Field)
	assert.Equal(t, "U12", g.Level)
	assert.Equal(t, "Tigers", g.HomeTeam)
	assert.Equal(t, "Lions", g.AwayTeam)
	assert.Equal(t, model.RoleCenter, g.Position)

	require.Len(t, g.Officials, 3)
	require.NotNil(t, g.Officials[0].Name)
	assert.Equal(t, "Jane Doe", *g.Officials[0].Name)
	require.NotNil(t, g.Officials[1].Name)
	assert.Equal(t, "Bob Smith", *g.Officials[1].Name)
	assert.Nil(t, g.Officials[2].Name)
	assert.Equal(t, model.RoleAR2, g.Officials[2].Role)
}

func TestNormalizeSkipsRowWithoutGameID(t *testing.T) {
	n := NewNormalizer(&testConfig().Sync)
	_, err := n.Normalize(gameRow("  ", "Tigers", "Lions"))
	assert.ErrorIs(t, err, ErrSkipRow)
}

func TestNormalizeInvalidRows(t *testing.T) {
	n := NewNormalizer(&testConfig().Sync)

	row := gameRow("1", "Tigers", "Lions")
	row["Date Time"] = "not a date"
	_, err := n.Normalize(row)
	assert.ErrorIs(t, err, ErrInvalidRow)

	row = gameRow("2", "", "Lions")
	_, err = n.Normalize(row)
	assert.ErrorIs(t, err, ErrInvalidRow)

	row = gameRow("3", "Tigers", "Lions")
	row["Location"] = "   "
	_, err = n.Normalize(row)
	assert.ErrorIs(t, err, ErrInvalidRow)
}

func TestNormalizeLocationAndField(t *testing.T) {
	n := NewNormalizer(&testConfig().Sync)

	row := gameRow("1", "A", "B")
	row["Location"] = "RIVERSIDE COMPLEX"
	row["Field"] = ""
	g, err := n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, "Riverside Complex", g.Location)
	assert.Equal(t, "", g.Field)

	row["Location"] = "riverside complex - north - 2"
	g, err = n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, "north - 2", g.Field)

	row["Field"] = "7B"
	g, err = n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, "7B", g.Field)
}

func TestNormalizeLevel(t *testing.T) {
	n := NewNormalizer(&testConfig().Sync)
	row := gameRow("1", "A", "B")

	row["Level"] = "Adult Rec"
	g, err := n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, "Adult Rec", g.Level)

	row["Level"] = "9U"
	g, err = n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, "U9", g.Level)
}

func TestStripLabel(t *testing.T) {
	assert.Equal(t, " Jane Doe", stripLabel("CR: Jane Doe", 4))
	assert.Equal(t, "Bob Smith", stripLabel("AR1 Bob Smith", 4))
	assert.Equal(t, " Jane Doe", stripLabel("R. Jane Doe", 4))
	assert.Equal(t, "CR", stripLabel("CR", 4))
	assert.Equal(t, "unchanged", stripLabel("unchanged", 0))
}

func TestCleanOfficialPlaceholders(t *testing.T) {
	n := NewNormalizer(&testConfig().Sync)
	assert.Nil(t, n.cleanOfficial(""))
	assert.Nil(t, n.cleanOfficial("  tbd "))
	assert.Nil(t, n.cleanOfficial("Unknown"))
	assert.Nil(t, n.cleanOfficial("CR: TBD"))

	name := n.cleanOfficial("R. Jane Doe")
	require.NotNil(t, name)
	assert.Equal(t, "Jane Doe", *name)

	name = n.cleanOfficial("AR2: mary jones")
	require.NotNil(t, name)
	assert.Equal(t, "Mary Jones", *name)
}

func TestAssignPosition(t *testing.T) {
	cfg := testConfig()
	n := NewNormalizer(&cfg.Sync)

	row := gameRow("1", "A", "B")
	row["Official 1"] = "CR: Someone Else"
	row["Official 3"] = "AR2: JANE DOE"
	g, err := n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAR2, g.Position)

	row["Official 3"] = "AR2: Nobody"
	g, err = n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, model.RoleFourth, g.Position)

	row["Position"] = "Center"
	g, err = n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCenter, g.Position)

	cfg.Sync.SelfName = ""
	n = NewNormalizer(&cfg.Sync)
	row["Position"] = ""
	g, err = n.Normalize(row)
	require.NoError(t, err)
	assert.Equal(t, model.Role(""), g.Position)
}
