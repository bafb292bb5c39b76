package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/quantlib/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start := date(2025, time.January, 31)
	end := date(2025, time.July, 31)

	cases := []struct {
		convention utils.DayCount
		want       float64
	}{
		{utils.ACT360, 181.0 / 360.0},
		{utils.ACT365F, 181.0 / 365.0},
		{utils.Thirty360E, 180.0 / 360.0},
	}
	for _, tc := range cases {
		got, err := utils.YearFraction(start, end, tc.convention)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-12, string(tc.convention))
	}

	_, err := utils.YearFraction(start, end, "BUS/252")
	require.ErrorIs(t, err, utils.ErrUnknownDayCount)
}

func TestActActICMA(t *testing.T) {
	t.Parallel()

	end := date(2030, time.February, 15)

	whole, err := utils.YearFraction(date(2026, time.February, 15), end, utils.ACTACTICMA)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, whole, 1e-12)

	// Stub of 31 days inside the reference year 2025-02-15 .. 2026-02-15.
	stub, err := utils.YearFraction(date(2026, time.January, 15), end, utils.ACTACTICMA)
	require.NoError(t, err)
	assert.InDelta(t, 4.0+31.0/365.0, stub, 1e-12)

	back, err := utils.YearFraction(end, date(2026, time.January, 15), utils.ACTACTICMA)
	require.NoError(t, err)
	assert.InDelta(t, -stub, back, 1e-12)
}

func TestParseDayCount(t *testing.T) {
	t.Parallel()

	dc, err := utils.ParseDayCount(" act/360 ")
	require.NoError(t, err)
	assert.Equal(t, utils.ACT360, dc)

	dc, err = utils.ParseDayCount("30/360")
	require.NoError(t, err)
	assert.Equal(t, utils.Thirty360E, dc)

	_, err = utils.ParseDayCount("nope")
	require.ErrorIs(t, err, utils.ErrUnknownDayCount)
}

func TestAddMonth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, date(2025, time.February, 28), utils.AddMonth(date(2025, time.January, 31), 1))
	assert.Equal(t, date(2024, time.February, 29), utils.AddMonth(date(2024, time.March, 31), -1))
	assert.Equal(t, date(2025, time.April, 15), utils.AddMonth(date(2025, time.January, 15), 3))
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := utils.ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", utils.FormatDate(d))

	_, err = utils.ParseDate("10/03/2026")
	require.Error(t, err)
}
