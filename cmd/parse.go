package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// parseMoney parses a decimal amount, accepting an optional leading "$"
// and thousands separators.
func parseMoney(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "$"), ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// parseLimits parses repeated category=amount pairs.
func parseLimits(pairs []string) (map[string]decimal.Decimal, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(pairs))
	for _, p := range pairs {
		name, amt, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid limit %q: want category=amount", p)
		}
		d, err := parseMoney(amt)
		if err != nil {
			return nil, fmt.Errorf("limit %s: %w", name, err)
		}
		out[name] = d
	}
	return out, nil
}

// parseWhen accepts a local calendar date or an RFC 3339 timestamp. Empty
// input yields the zero time.
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
