// Package puzzle maps calendar days to Cémantix puzzle numbers.
package puzzle

import (
	"strconv"
	"time"
)

// Reference point: puzzle #1459 was published on 2026-02-28, one puzzle per day since.
var (
	referenceDay    = time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	referenceNumber = 1459
)

// Number returns the puzzle published on day's calendar date.
func Number(day time.Time) int {
	y, m, d := day.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := int(date.Sub(referenceDay).Hours() / 24)
	return referenceNumber + days
}

// Today returns today's puzzle id in local time.
func Today() string {
	return strconv.Itoa(Number(time.Now()))
}
