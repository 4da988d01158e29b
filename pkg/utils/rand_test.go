package utils

import "testing"

func TestRandSourceReproducible(t *testing.T) {
	a := NewRandSource(42)
	b := NewRandSource(42)

	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("same seed diverged at draw %d", i)
		}
	}
}

func TestUniformFloat64Bounds(t *testing.T) {
	r := NewRandSource(1)
	for i := 0; i < 1000; i++ {
		v := r.UniformFloat64(0.02, 0.15)
		if v < 0.02 || v >= 0.15 {
			t.Fatalf("draw %f outside [0.02, 0.15)", v)
		}
	}
}

func TestRoundToInt(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{7.4, 7},
		{7.5, 8},
		{7.6, 8},
		{-0.4, 0},
		{8.0, 8},
	}
	for _, c := range cases {
		if got := RoundToInt(c.in); got != c.want {
			t.Errorf("RoundToInt(%f) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestClampFloat64(t *testing.T) {
	if got := ClampFloat64(0.5, 0.0, 0.2); got != 0.2 {
		t.Errorf("expected clamp to max, got %f", got)
	}
	if got := ClampFloat64(-1, 0.0, 0.2); got != 0.0 {
		t.Errorf("expected clamp to min, got %f", got)
	}
	if got := ClampFloat64(0.1, 0.0, 0.2); got != 0.1 {
		t.Errorf("expected passthrough, got %f", got)
	}
}
