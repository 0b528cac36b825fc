package math

import (
	stdmath "math"
	"testing"
)

func TestMulFixed(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
	}{
		{"one times one", Scale, Scale, Scale},
		{"1500 * 0.1", 1_500 * Scale, 100_000, 150 * Scale},
		{"truncates toward zero", 1, 1, 0}, // 1e-6 * 1e-6 rounds down
		{"negative truncates toward zero", -1, 1, 0},
		{"large values", 1_000_000 * Scale, 1_000_000 * Scale, 1_000_000_000_000 * Scale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MulFixed(tt.a, tt.b); got != tt.want {
				t.Errorf("MulFixed(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDivFixed(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
	}{
		{"one over one", Scale, Scale, Scale},
		{"1 over 10", Scale, 10 * Scale, 100_000},
		{"truncation", 10 * Scale, 3 * Scale, 3_333_333},
		{"negative truncates toward zero", -10 * Scale, 3 * Scale, -3_333_333},
		{"1500 over 21", 1_500 * Scale, 21 * Scale, 71_428_571},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DivFixed(tt.a, tt.b); got != tt.want {
				t.Errorf("DivFixed(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMulDiv_SingleTruncation(t *testing.T) {
	// 1500 * 0.1 / 1.5 must come out exactly 100.
	got := MulDiv(1_500*Scale, 100_000, 1_500_000)
	if got != 100*Scale {
		t.Errorf("MulDiv = %d, want %d", got, 100*Scale)
	}

	// MulDiv truncates once; chaining MulFixed+DivFixed may truncate twice.
	// 7 * (1/3) / (1/3) == 7 with a single pass.
	third := DivFixed(Scale, 3*Scale)
	if got := MulDiv(7*Scale, third, third); got != 7*Scale {
		t.Errorf("MulDiv round trip = %d, want %d", got, 7*Scale)
	}
}

func TestOverflowSaturates(t *testing.T) {
	// Doubling MaxInt64 cannot be represented; the result must pin to
	// the extreme instead of wrapping.
	if got := MulFixed(stdmath.MaxInt64, 2*Scale); got != stdmath.MaxInt64 {
		t.Errorf("MulFixed(MaxInt64, 2) = %d, want MaxInt64", got)
	}
	if got := MulFixed(stdmath.MinInt64+1, 2*Scale); got != stdmath.MinInt64 {
		t.Errorf("MulFixed(MinInt64+1, 2) = %d, want MinInt64", got)
	}
	// Dividing by one micro-unit scales up by Scale and overflows.
	if got := DivFixed(stdmath.MaxInt64, 1); got != stdmath.MaxInt64 {
		t.Errorf("DivFixed(MaxInt64, 1) = %d, want MaxInt64", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		v    int64
		want string
	}{
		{0, "0.000000"},
		{Scale, "1.000000"},
		{1_500_000, "1.500000"},
		{100_000, "0.100000"},
		{-2_250_000, "-2.250000"},
		{123_456_789, "123.456789"},
	}

	for _, tt := range tests {
		if got := Format(tt.v); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
