package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMinutes converts an "HH:MM" clock time to minutes since midnight.
// Anything that is not a plain in-day clock time is rejected.
func ParseMinutes(value string) (int, error) {
	hh, mm, ok := strings.Cut(value, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}

	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}

	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", value)
	}
	return hours*60 + minutes, nil
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
