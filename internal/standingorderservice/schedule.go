package standingorderservice

import (
	"time"

	"github.com/go-petr/sca-bank/internal/domain"
)

// NextExecution returns the run date following current.
//
// Weekly orders move by exactly seven days. Monthly, quarterly and yearly
// orders move by one, three or twelve months and land on executionDay, clamped
// to the last day of the target month.
func NextExecution(current time.Time, frequency domain.Frequency, executionDay int) (time.Time, error) {
	switch frequency {
	case domain.FrequencyWeekly:
		return current.AddDate(0, 0, 7), nil
	case domain.FrequencyMonthly:
		return addMonths(current, 1, executionDay), nil
	case domain.FrequencyQuarterly:
		return addMonths(current, 3, executionDay), nil
	case domain.FrequencyYearly:
		return addMonths(current, 12, executionDay), nil
	}

	return time.Time{}, domain.ErrInvalidFrequency
}

func addMonths(current time.Time, months, day int) time.Time {
	y, m, _ := current.Date()

	// time.Date normalizes the month overflow, the first of the month always exists.
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, current.Location())

	return time.Date(first.Year(), first.Month(), min(day, daysIn(first)), 0, 0, 0, 0, current.Location())
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// dateOf drops the clock part of t.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
