package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errInvalidTTL = errors.New("invalid duration")

// ParseTTL parses token lifetimes such as "7d", "2w", "12h" or "90m".
// Day and week suffixes are accepted on top of time.ParseDuration units.
func ParseTTL(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return DefaultTokenTTL, nil
	}
	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(trimmed, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(trimmed, "w"):
		unit = 7 * 24 * time.Hour
	}
	var ttl time.Duration
	if unit > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(trimmed[:len(trimmed)-1]))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errInvalidTTL, value)
		}
		ttl = time.Duration(n) * unit
	} else {
		parsed, err := time.ParseDuration(trimmed)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errInvalidTTL, value)
		}
		ttl = parsed
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", errInvalidTTL, value)
	}
	return ttl, nil
}
