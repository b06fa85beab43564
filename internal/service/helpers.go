package service

import (
	"math"
	"time"
)

// round rounds a monetary value to two decimal places.
func round(value float64) float64 {
	return math.Round(value*100) / 100
}

// dateOnly strips the time component, keeping the UTC calendar day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts the calendar days from start to end, both inclusive.
func daysBetween(start, end time.Time) int {
	return int(dateOnly(end).Sub(dateOnly(start)).Hours()/24) + 1
}
