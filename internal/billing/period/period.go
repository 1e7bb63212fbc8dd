// Package period implements the calendar arithmetic behind recurring billing.
// Every other component derives its date math from here.
package period

import "time"

// Frequency is the recurrence period of a subscription or a project's
// billing plan. Values match the enum stored in the database.
type Frequency string

const (
	FrequencyOneOff     Frequency = "PONCTUEL"
	FrequencyMonthly    Frequency = "MENSUEL"
	FrequencyQuarterly  Frequency = "TRIMESTRIEL"
	FrequencySemiAnnual Frequency = "SEMESTRIEL"
	FrequencyAnnual     Frequency = "ANNUEL"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneOff, FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual:
		return true
	}
	return false
}

// Next returns the billing date one full period after t.
//
// Month-based arithmetic pins to the last valid day of the target month:
// Jan 31 + 1 month yields Feb 29 on leap years and Feb 28 otherwise, never
// Mar 2. One-off plans recur on a 7-day horizon.
func Next(t time.Time, f Frequency) time.Time {
	switch f {
	case FrequencyMonthly:
		return addMonths(t, 1)
	case FrequencyQuarterly:
		return addMonths(t, 3)
	case FrequencySemiAnnual:
		return addMonths(t, 6)
	case FrequencyAnnual:
		return addMonths(t, 12)
	default:
		return t.AddDate(0, 0, 7)
	}
}

// FallbackDueOffsetDays is the grace window, in days, used to derive a due
// date for a payment that has no invoice due date to reference. It is a
// fallback only: an invoice's own due date always wins.
func FallbackDueOffsetDays(f Frequency) int {
	switch f {
	case FrequencyMonthly:
		return 30
	case FrequencyQuarterly:
		return 90
	case FrequencySemiAnnual:
		return 180
	case FrequencyAnnual:
		return 365
	default:
		return 7
	}
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	if last := lastDayOfMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
