package service

import (
	"time"

	pricingplandomain "github.com/smallbiznis/meterbill/internal/pricingplan/domain"
)

// addRecurrence advances t by one calendar month or year. The day of month
// is clamped to the last day of the target month, so Jan 31 + 1 month is
// the last day of February and Feb 29 + 1 year is Feb 28.
func addRecurrence(t time.Time, recurrence pricingplandomain.Recurrence) time.Time {
	switch recurrence {
	case pricingplandomain.RecurrenceYear:
		return addMonths(t, 12)
	default:
		return addMonths(t, 1)
	}
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	total := int(month) - 1 + months
	targetYear := year + total/12
	targetMonth := time.Month(total%12 + 1)

	if last := daysIn(targetYear, targetMonth); day > last {
		day = last
	}
	return time.Date(targetYear, targetMonth, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
