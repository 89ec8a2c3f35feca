// This file implements utilities for parsing and validating query
// parameters shared by the search and report handlers.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// queryString returns a trimmed, sanitized query parameter.
func queryString(query url.Values, key string) string {
	return sanitizeInput(query.Get(key))
}

// queryInt parses an optional integer parameter, returning def when absent.
func queryInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer, got %q", key, v)
	}
	return n, nil
}

// requireInt parses a mandatory integer parameter.
func requireInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, fmt.Errorf("parameter %q is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer, got %q", key, v)
	}
	return n, nil
}

// requireString returns a mandatory string parameter.
func requireString(query url.Values, key string) (string, error) {
	v := queryString(query, key)
	if v == "" {
		return "", fmt.Errorf("parameter %q is required", key)
	}
	return v, nil
}

// parseAmount parses a decimal amount parameter.
func parseAmount(query url.Values, key string) (decimal.Decimal, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return decimal.Decimal{}, fmt.Errorf("parameter %q is required", key)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parameter %q must be a number, got %q", key, v)
	}
	return d, nil
}

// parseOptionalAmount parses a decimal amount parameter, returning nil
// when absent.
func parseOptionalAmount(query url.Values, key string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("parameter %q must be a number, got %q", key, v)
	}
	return &d, nil
}

// parseMCCList parses a comma-separated list of category codes.
func parseMCCList(query url.Values, key string) ([]int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	codes := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parameter %q must be a comma-separated list of integers, got %q", key, part)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
