package model

import "testing"

func TestIntOrNil(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{"123", int64(123)},
		{"  123  ", int64(123)},
		{123.9, int64(123)},
		{int64(7), int64(7)},
		{true, int64(1)},
		{"", nil},
		{"   ", nil},
		{nil, nil},
		{"abc", nil},
		{"1.5", nil},
	}
	for _, tc := range cases {
		got, err := IntOrNil(tc.in)
		if err != nil {
			t.Fatalf("IntOrNil(%v): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("IntOrNil(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestFloatOrNil(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{"1.5", 1.5},
		{1500, float64(1500)},
		{"", nil},
		{nil, nil},
		{"n/a", nil},
	}
	for _, tc := range cases {
		got, _ := FloatOrNil(tc.in)
		if got != tc.want {
			t.Errorf("FloatOrNil(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestBoolOrNil(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{true, true},
		{"1", true},
		{"Yes", true},
		{"y", true},
		{0, false},
		{"false", false},
		{"No", false},
		{"maybe", nil},
		{nil, nil},
	}
	for _, tc := range cases {
		got, _ := BoolOrNil(tc.in)
		if got != tc.want {
			t.Errorf("BoolOrNil(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestTimestampSeconds(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{1761292654, int64(1761292654)},
		{float64(1761292654000), int64(1761292654)},
		{"1761292654", int64(1761292654)},
		{"1761292654000", int64(1761292654)},
		{"", nil},
		{nil, nil},
		{"soon", nil},
	}
	for _, tc := range cases {
		got, _ := TimestampSeconds(tc.in)
		if got != tc.want {
			t.Errorf("TimestampSeconds(%v)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestEmptyToNil(t *testing.T) {
	if got, _ := EmptyToNil("  "); got != nil {
		t.Errorf("blank string should become nil, got %v", got)
	}
	if got, _ := EmptyToNil("x"); got != "x" {
		t.Errorf("got %v", got)
	}
	if got, _ := EmptyToNil(42); got != 42 {
		t.Errorf("non-string should pass through, got %v", got)
	}
}

func TestEndAfterStart(t *testing.T) {
	v := EndAfterStart("start_time", "end_time")
	if err := v(map[string]any{"start_time": int64(10), "end_time": int64(20)}); err != nil {
		t.Fatal(err)
	}
	if err := v(map[string]any{"start_time": int64(20), "end_time": int64(10)}); err == nil {
		t.Fatal("end before start should error")
	}
	// Missing either side skips the check.
	if err := v(map[string]any{"end_time": int64(10)}); err != nil {
		t.Fatal(err)
	}
}

func TestRatioBounded(t *testing.T) {
	v := RatioBounded("margin_ratio")
	if err := v(map[string]any{"margin_ratio": 0.5}); err != nil {
		t.Fatal(err)
	}
	if err := v(map[string]any{"margin_ratio": 1.2}); err == nil {
		t.Fatal("ratio above 1 should error")
	}
	if err := v(map[string]any{}); err != nil {
		t.Fatal(err)
	}
}

func TestSortTypeValid(t *testing.T) {
	if err := SortTypeValid(map[string]any{"sort_type": "ASC"}); err != nil {
		t.Fatal(err)
	}
	if err := SortTypeValid(map[string]any{"sort_type": "random"}); err == nil {
		t.Fatal("unknown sort_type should error")
	}
	if err := SortTypeValid(map[string]any{}); err != nil {
		t.Fatal(err)
	}
}
