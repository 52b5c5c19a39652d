package generic_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/production-engine/generic"
)

func TestPeriod_DaysUsesMonthLength(t *testing.T) {
	cases := []struct {
		period generic.Period
		month  int
		want   int
	}{
		{generic.PeriodDay, 30, 1},
		{generic.PeriodWeek, 30, 7},
		{generic.PeriodMonth, 30, 30},
		{generic.PeriodMonth, 21, 21},
		{generic.PeriodQuarter, 30, 90},
		{generic.PeriodYear, 30, 360},
		{generic.PeriodYear, 0, 360},
	}
	for _, c := range cases {
		got, err := c.period.Days(c.month)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s with month=%d", c.period, c.month)
	}

	_, err := generic.ParsePeriod("fortnight")
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
	assert.True(t, generic.IsClientError(err))
}

func TestPeriod_DailyShare(t *testing.T) {
	share, err := generic.PeriodMonth.DailyShare(decimal.NewFromInt(3000), 30)
	require.NoError(t, err)
	assert.True(t, share.Equal(decimal.NewFromInt(100)))
}

func TestSettlementFrequency_IsSettlementDay(t *testing.T) {
	assert.True(t, generic.SettleDaily.IsSettlementDay(1, 30))
	assert.False(t, generic.SettleWeekly.IsSettlementDay(6, 30))
	assert.True(t, generic.SettleWeekly.IsSettlementDay(7, 30))
	assert.False(t, generic.SettleBiweekly.IsSettlementDay(7, 30))
	assert.True(t, generic.SettleBiweekly.IsSettlementDay(14, 30))
	assert.True(t, generic.SettleMonthly.IsSettlementDay(20, 20))
	assert.False(t, generic.SettleMonthly.IsSettlementDay(20, 30))

	f, err := generic.ParseSettlementFrequency("")
	require.NoError(t, err)
	assert.Equal(t, generic.SettleDaily, f)
	_, err = generic.ParseSettlementFrequency("hourly")
	assert.ErrorIs(t, err, generic.ErrUnknownFrequency)
}

func TestAccrualWindow_SettleSeparatesAccrualFromCash(t *testing.T) {
	// GIVEN: Labor accrued on days 1, 2 and 3
	// WHEN: Settling on day 2, then day 3, then day 3 again
	// THEN: Each settlement pays only the unpaid window; the total is untouched

	w := generic.NewAccrualWindow(generic.UnitCurrency)
	w.Accrue(1, generic.NewAmount(100, generic.UnitCurrency))
	w.Accrue(2, generic.NewAmount(50, generic.UnitCurrency))
	w.Accrue(3, generic.NewAmount(25, generic.UnitCurrency))

	assert.True(t, w.Settle(2).Value.Equal(decimal.NewFromInt(150)))
	assert.True(t, w.Unpaid().Value.Equal(decimal.NewFromInt(25)))
	assert.True(t, w.Settle(3).Value.Equal(decimal.NewFromInt(25)))
	assert.True(t, w.Settle(3).IsZero())
	assert.True(t, w.Total().Value.Equal(decimal.NewFromInt(175)))
	assert.Equal(t, generic.Day(3), w.PaidUntil())
}

func TestClock_DayMapping(t *testing.T) {
	c := generic.NewClock(8)
	assert.Equal(t, generic.Day(1), c.DayOf(0))
	assert.Equal(t, generic.Day(1), c.DayOf(7))
	assert.Equal(t, generic.Day(2), c.DayOf(8))
	assert.True(t, c.IsDayStart(16))
	assert.Equal(t, generic.Hour(16), c.FirstHour(3))
	assert.Equal(t, 2, c.DaysFor(9))
}
