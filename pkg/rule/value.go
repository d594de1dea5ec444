package rule

import (
	"fmt"
	"strconv"
	"time"
)

// Value is one leaf comparison value. The concrete type is one of: string,
// float64, bool, [Duration], [Regex], or [List].
type Value any

// Duration is a duration literal value. It compares equal to raw
// millisecond numbers during evaluation.
type Duration time.Duration

// Millis returns the duration in milliseconds.
func (d Duration) Millis() float64 {
	return float64(time.Duration(d) / time.Millisecond)
}

// String renders the duration as a DSL literal using the largest unit that
// divides it exactly: "90m", "2h", "1d".
func (d Duration) String() string {
	v := time.Duration(d)

	switch {
	case v != 0 && v%(24*time.Hour) == 0:
		return strconv.FormatInt(int64(v/(24*time.Hour)), 10) + "d"
	case v != 0 && v%time.Hour == 0:
		return strconv.FormatInt(int64(v/time.Hour), 10) + "h"
	default:
		return strconv.FormatInt(int64(v/time.Minute), 10) + "m"
	}
}

// ParseDuration parses a DSL duration literal (`\d+[mhd]`).
func ParseDuration(lit string) (Duration, error) {
	if len(lit) < 2 {
		return 0, fmt.Errorf("malformed duration %q", lit)
	}

	n, err := strconv.ParseInt(lit[:len(lit)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed duration %q: %w", lit, err)
	}

	switch lit[len(lit)-1] {
	case 'm':
		return Duration(time.Duration(n) * time.Minute), nil
	case 'h':
		return Duration(time.Duration(n) * time.Hour), nil
	case 'd':
		return Duration(time.Duration(n) * 24 * time.Hour), nil
	}

	return 0, fmt.Errorf("unknown duration unit in %q", lit)
}

// MustDuration parses a duration literal and panics on error.
func MustDuration(lit string) Duration {
	d, err := ParseDuration(lit)
	if err != nil {
		panic(err)
	}

	return d
}

// Regex is a regex literal value: /pattern/flags.
type Regex struct {
	Pattern string
	Flags   string
}

func (r Regex) String() string {
	return "/" + r.Pattern + "/" + r.Flags
}

// List is a bracketed array value.
type List []Value
