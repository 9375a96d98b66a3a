package model

import (
	"fmt"
	"strconv"
	"strings"
)

// EmptyToNil collapses blank strings to nil; other values pass through.
func EmptyToNil(v any) (any, error) {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return v, nil
}

// IntOrNil coerces to int64. Blank, nil, and unparseable inputs become
// nil; floats truncate toward zero.
func IntOrNil(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, nil
		}
		return n, nil
	default:
		return nil, nil
	}
}

// FloatOrNil coerces to float64; blank, nil, and unparseable inputs
// become nil.
func FloatOrNil(v any) (any, error) {
	f, ok := asFloat(v)
	if !ok {
		return nil, nil
	}
	return f, nil
}

// BoolOrNil maps the usual truthy and falsy spellings to bool; anything
// else becomes nil.
func BoolOrNil(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	default:
		switch strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", x))) {
		case "1", "true", "yes", "y":
			return true, nil
		case "0", "false", "no", "n":
			return false, nil
		}
		return nil, nil
	}
}

// TimestampSeconds normalizes second or millisecond timestamps, numeric
// or stringly, to int64 seconds. Values at or above 1e12 are treated as
// milliseconds.
func TimestampSeconds(v any) (any, error) {
	f, ok := asFloat(v)
	if !ok {
		return nil, nil
	}
	if f >= 1e12 {
		f /= 1000
	}
	return int64(f), nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func rowInt(row map[string]any, key string) (int64, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, false
	}
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	}
	return 0, false
}

func rowFloat(row map[string]any, key string) (float64, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, false
	}
	f, valid := asFloat(v)
	return f, valid
}

// EndAfterStart errors when both timestamps are present and the end
// precedes the start.
func EndAfterStart(startKey, endKey string) Validator {
	return func(row map[string]any) error {
		start, okS := rowInt(row, startKey)
		end, okE := rowInt(row, endKey)
		if okS && okE && end < start {
			return fmt.Errorf("%s(%d) < %s(%d)", endKey, end, startKey, start)
		}
		return nil
	}
}

// RankingOrdered errors when start_ranking exceeds end_ranking.
func RankingOrdered(row map[string]any) error {
	start, okS := rowInt(row, "start_ranking")
	end, okE := rowInt(row, "end_ranking")
	if okS && okE && start > end {
		return fmt.Errorf("start_ranking(%d) > end_ranking(%d)", start, end)
	}
	return nil
}

// NonNegative errors when the field is present and below zero.
func NonNegative(key string) Validator {
	return func(row map[string]any) error {
		if f, ok := rowFloat(row, key); ok && f < 0 {
			return fmt.Errorf("%s(%v) < 0", key, f)
		}
		return nil
	}
}

// RatioBounded errors when the field falls outside [0, 1].
func RatioBounded(key string) Validator {
	return func(row map[string]any) error {
		if f, ok := rowFloat(row, key); ok && (f < 0 || f > 1) {
			return fmt.Errorf("%s(%v) outside [0, 1]", key, f)
		}
		return nil
	}
}

// SortTypeValid errors when sort_type is present but neither asc nor
// desc.
func SortTypeValid(row map[string]any) error {
	v, ok := row["sort_type"]
	if !ok || v == nil {
		return nil
	}
	s, isStr := v.(string)
	if !isStr {
		return fmt.Errorf("sort_type %v is not a string", v)
	}
	switch strings.ToLower(s) {
	case "asc", "desc":
		return nil
	}
	return fmt.Errorf("sort_type %q must be asc or desc", s)
}
