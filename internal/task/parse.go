package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidBitRate is returned when a bit rate string cannot be parsed.
var ErrInvalidBitRate = errors.New("task: invalid bit rate")

// ParseBitRate parses a bit rate string such as "1M", "192k" or "128000"
// into bits per second. The K and M suffixes are case-insensitive and mean
// x1,000 and x1,000,000 respectively.
func ParseBitRate(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidBitRate)
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1_000
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1_000_000
		s = strings.TrimSuffix(s, "M")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBitRate, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: must be positive, got %d", ErrInvalidBitRate, n)
	}

	return n * multiplier, nil
}

// ErrInvalidTimestamp is returned when a timestamp string cannot be parsed.
var ErrInvalidTimestamp = errors.New("task: invalid timestamp")

// ParseTimestamp parses "HH:MM:SS", "MM:SS" or plain seconds (fractions
// allowed) into seconds.
func ParseTimestamp(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 1 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	var seconds float64
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		seconds = seconds*60 + v
	}

	return seconds, nil
}
