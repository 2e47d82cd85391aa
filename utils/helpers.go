package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLimit reads an optional positive "limit" query value. An empty value
// yields def; values above max are clamped.
func ParseLimit(raw string, def, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
