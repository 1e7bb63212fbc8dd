package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextMonthly(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 15), Next(date(2024, time.January, 15), FrequencyMonthly))
	assert.Equal(t, date(2024, time.March, 15), Next(date(2024, time.February, 15), FrequencyMonthly))
}

func TestNextMonthEndPinsToLastValidDay(t *testing.T) {
	// Leap year: Jan 31 + 1 month is Feb 29, not Mar 2.
	assert.Equal(t, date(2024, time.February, 29), Next(date(2024, time.January, 31), FrequencyMonthly))
	// Non-leap year pins to Feb 28.
	assert.Equal(t, date(2023, time.February, 28), Next(date(2023, time.January, 31), FrequencyMonthly))
	// May 31 + 1 month pins to Jun 30.
	assert.Equal(t, date(2024, time.June, 30), Next(date(2024, time.May, 31), FrequencyMonthly))
}

func TestNextQuarterlySemiAnnualAnnual(t *testing.T) {
	assert.Equal(t, date(2024, time.April, 10), Next(date(2024, time.January, 10), FrequencyQuarterly))
	assert.Equal(t, date(2024, time.July, 10), Next(date(2024, time.January, 10), FrequencySemiAnnual))
	assert.Equal(t, date(2025, time.January, 10), Next(date(2024, time.January, 10), FrequencyAnnual))
	// Nov 30 + 3 months pins to Feb 29 on leap years.
	assert.Equal(t, date(2024, time.February, 29), Next(date(2023, time.November, 30), FrequencyQuarterly))
}

func TestNextOneOffIsSevenDays(t *testing.T) {
	assert.Equal(t, date(2024, time.January, 8), Next(date(2024, time.January, 1), FrequencyOneOff))
	// Unknown frequencies fall back to the one-off horizon.
	assert.Equal(t, date(2024, time.January, 8), Next(date(2024, time.January, 1), Frequency("")))
}

func TestNextIsStrictlyMonotonic(t *testing.T) {
	frequencies := []Frequency{FrequencyOneOff, FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual}
	starts := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.December, 31),
		date(2023, time.February, 28),
	}
	for _, f := range frequencies {
		for _, start := range starts {
			next := Next(start, f)
			require.True(t, next.After(start), "Next(%s, %s) must advance", start, f)
		}
	}
}

func TestNextPreservesTimeOfDay(t *testing.T) {
	start := time.Date(2024, time.January, 31, 14, 30, 5, 0, time.UTC)
	next := Next(start, FrequencyMonthly)
	assert.Equal(t, 14, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.Equal(t, date(2024, time.February, 29), next.Truncate(24*time.Hour))
}

func TestFallbackDueOffsetDays(t *testing.T) {
	assert.Equal(t, 30, FallbackDueOffsetDays(FrequencyMonthly))
	assert.Equal(t, 90, FallbackDueOffsetDays(FrequencyQuarterly))
	assert.Equal(t, 180, FallbackDueOffsetDays(FrequencySemiAnnual))
	assert.Equal(t, 365, FallbackDueOffsetDays(FrequencyAnnual))
	assert.Equal(t, 7, FallbackDueOffsetDays(FrequencyOneOff))
	assert.Equal(t, 7, FallbackDueOffsetDays(Frequency("")))
}

func TestFrequencyValid(t *testing.T) {
	assert.True(t, FrequencyMonthly.Valid())
	assert.False(t, Frequency("HEBDOMADAIRE").Valid())
}
