package dateutil

import (
	"fmt"
	"strconv"
	"strings"
)

// MonthKey identifies a calendar month ("YYYY-MM").
type MonthKey struct {
	Year  int
	Month int // 1-12
}

// NewMonthKey builds a MonthKey, normalising months outside 1-12.
func NewMonthKey(year, month int) MonthKey {
	return MonthKey{Year: year, Month: 1}.AddMonths(month - 1)
}

// ParseMonthKey parses a "YYYY-MM" string
func ParseMonthKey(s string) (MonthKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return MonthKey{}, fmt.Errorf("invalid month key %q: expected YYYY-MM", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month key %q: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month key %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("invalid month key %q: month must be 01-12", s)
	}
	return MonthKey{Year: year, Month: month}, nil
}

// MustParseMonthKey is ParseMonthKey for literals; it panics on error.
func MustParseMonthKey(s string) MonthKey {
	k, err := ParseMonthKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// String renders the key as YYYY-MM
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// IsZero reports whether the key is unset.
func (k MonthKey) IsZero() bool { return k.Year == 0 && k.Month == 0 }

// index is the number of months since year 0.
func (k MonthKey) index() int { return k.Year*12 + (k.Month - 1) }

// AddMonths returns the key n months later (n may be negative).
func (k MonthKey) AddMonths(n int) MonthKey {
	idx := k.index() + n
	year := idx / 12
	month := idx % 12
	if month < 0 {
		month += 12
		year--
	}
	return MonthKey{Year: year, Month: month + 1}
}

// MonthsUntil returns the number of months from k to other (negative if other is earlier).
func (k MonthKey) MonthsUntil(other MonthKey) int {
	return other.index() - k.index()
}

// Compare returns -1, 0 or 1.
func (k MonthKey) Compare(other MonthKey) int {
	switch a, b := k.index(), other.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Before reports whether k is earlier than other.
func (k MonthKey) Before(other MonthKey) bool { return k.index() < other.index() }

// After reports whether k is later than other.
func (k MonthKey) After(other MonthKey) bool { return k.index() > other.index() }

// MarshalText implements encoding.TextMarshaler (used by JSON and YAML).
func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MonthKey) UnmarshalText(b []byte) error {
	parsed, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AgeAtMonth returns the whole-year age after monthIndex months from a starting age.
func AgeAtMonth(startingAge, monthIndex int) int {
	if monthIndex < 0 {
		return startingAge
	}
	return startingAge + monthIndex/12
}
