package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date string cannot be parsed.
var ErrInvalidDate = errors.New("pricing: invalid date")

// DateLayout is the calendar date format accepted by ParseDate.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

// Age returns the number of full years between dateOfBirth and ref. The
// year difference is reduced by one when the birthday has not yet occurred
// in the reference year (month-then-day comparison).
func Age(dateOfBirth, ref time.Time) int {
	age := ref.Year() - dateOfBirth.Year()
	if ref.Month() < dateOfBirth.Month() ||
		(ref.Month() == dateOfBirth.Month() && ref.Day() < dateOfBirth.Day()) {
		age--
	}
	return age
}

// AgeNow is Age with the reference date defaulting to today.
func AgeNow(dateOfBirth time.Time) int {
	return Age(dateOfBirth, time.Now())
}
