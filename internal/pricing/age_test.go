package pricing

import (
	"errors"
	"testing"
	"time"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := ParseDate(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestAgeBirthdayPassed(t *testing.T) {
	got := Age(date(t, "1990-01-15"), date(t, "2025-06-01"))
	if got != 35 {
		t.Fatalf("expected 35, got %d", got)
	}
}

func TestAgeBirthdayNotYetReached(t *testing.T) {
	got := Age(date(t, "1990-12-31"), date(t, "2025-06-01"))
	if got != 34 {
		t.Fatalf("expected 34, got %d", got)
	}
}

func TestAgeOnBirthday(t *testing.T) {
	got := Age(date(t, "1990-06-01"), date(t, "2025-06-01"))
	if got != 35 {
		t.Fatalf("expected 35 on the birthday itself, got %d", got)
	}
}

func TestAgeSameMonthEarlierDay(t *testing.T) {
	got := Age(date(t, "1990-06-15"), date(t, "2025-06-01"))
	if got != 34 {
		t.Fatalf("expected 34, got %d", got)
	}
}

func TestAgeDeterministic(t *testing.T) {
	dob := date(t, "1984-03-09")
	ref := date(t, "2025-09-01")
	first := Age(dob, ref)
	for i := 0; i < 10; i++ {
		if Age(dob, ref) != first {
			t.Fatalf("age calculation is not deterministic")
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, raw := range []string{"", "not-a-date", "1990-13-40", "01/15/1990"} {
		if _, err := ParseDate(raw); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate for %q, got %v", raw, err)
		}
	}
}
