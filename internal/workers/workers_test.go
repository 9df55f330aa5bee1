package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"CPU-bound task (1.0x multiplier)", 1.0, 0, 1, availableCPU},
		{"I/O-bound task (2.0x multiplier)", 2.0, 0, 1, availableCPU * 2},
		{"Mixed task (1.5x multiplier)", 1.5, 0, 1, maxInt(1, int(float64(availableCPU)*1.5))},
		{"With limit lower than calculated", 2.0, 2, 1, 2},
		{"Very low multiplier", 0.1, 0, 1, maxInt(1, int(float64(availableCPU)*0.1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
		limit      int
	}{
		{"Zero multiplier", 0.0, 0},
		{"Negative multiplier", -1.0, 0},
		{"Very high multiplier", 100.0, 0},
		{"Very high limit", 1.0, 1000},
		{"Limit of 1", 100.0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, should never be less than 1", tt.multiplier, tt.limit, got)
			}
			if tt.limit > 0 && got > tt.limit {
				t.Errorf("Count(%v, %d) = %d, should not exceed limit", tt.multiplier, tt.limit, got)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		override int
		limit    int
		want     int
	}{
		{"Override used", 3, 0, 3},
		{"Override capped by limit", 20, 10, 10},
		{"Override below limit", 5, 10, 5},
		{"Zero override falls back", 0, 0, ForMixed(0)},
		{"Negative override falls back", -4, 6, ForMixed(6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.override, tt.limit); got != tt.want {
				t.Errorf("Resolve(%d, %d) = %d, want %d", tt.override, tt.limit, got, tt.want)
			}
		})
	}
}

func BenchmarkForMixed(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ForMixed(8)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
