package objective

import (
	"errors"
	"math"
	"testing"

	"github.com/wavecal/calibration-core/internal/waveform"
)

// countingGenerator wraps a generator and counts Generate calls
type countingGenerator struct {
	inner waveform.Generator
	calls int
}

func (g *countingGenerator) Generate(p waveform.Params, tun *waveform.Tunables) (*waveform.Signal, error) {
	g.calls++
	return g.inner.Generate(p, tun)
}

// failingGenerator always fails, standing in for solver non-convergence
type failingGenerator struct{}

func (g *failingGenerator) Generate(waveform.Params, *waveform.Tunables) (*waveform.Signal, error) {
	return nil, errors.New("solver failed to converge")
}

func testContext(t *testing.T) Context {
	t.Helper()
	psd, err := waveform.NewPSD(waveform.PSDFlat, 15, 0.25, 512)
	if err != nil {
		t.Fatalf("NewPSD failed: %v", err)
	}
	return Context{
		Mass1:       30,
		Mass2:       10,
		FLower:      15,
		SampleRate:  1024,
		Duration:    4,
		Approximant: "SEOBNRv1",
		PSD:         psd,
	}
}

func testConfig() Config {
	return Config{OmegaMin: 0.02, OmegaMax: 0.15, PNOrders: []int{6, 7, 8}}
}

func newTestObjective(t *testing.T, fast, ref waveform.Generator) *Objective {
	t.Helper()
	o, err := New(testConfig(), testContext(t), fast, ref)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

func TestLogPrior(t *testing.T) {
	o := newTestObjective(t, &waveform.FastModel{}, &waveform.ReferenceModel{})

	cases := []struct {
		name   string
		theta  []float64
		inside bool
	}{
		{"valid interior", []float64{0.08, 7.0}, true},
		{"valid after rounding up", []float64{0.08, 6.6}, true},
		{"valid after rounding down", []float64{0.08, 8.2}, true},
		{"omega at lower bound", []float64{0.02, 7.0}, true},
		{"omega at upper bound", []float64{0.15, 7.0}, true},
		{"omega below bound", []float64{0.019, 7.0}, false},
		{"omega above bound", []float64{0.151, 7.0}, false},
		{"order rounds below set", []float64{0.08, 5.4}, false},
		{"order rounds above set", []float64{0.08, 8.6}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := o.LogPrior(c.theta)
			if c.inside && got != 0.0 {
				t.Errorf("LogPrior(%v) = %g, want 0.0", c.theta, got)
			}
			if !c.inside && !math.IsInf(got, -1) {
				t.Errorf("LogPrior(%v) = %g, want -Inf", c.theta, got)
			}
		})
	}
}

func TestLogProbShortCircuitsLikelihood(t *testing.T) {
	fast := &countingGenerator{inner: &waveform.FastModel{}}
	ref := &countingGenerator{inner: &waveform.ReferenceModel{}}
	o := newTestObjective(t, fast, ref)

	got := o.LogProb([]float64{0.5, 7.0}) // omega out of bounds
	if !math.IsInf(got, -1) {
		t.Errorf("LogProb outside prior = %g, want -Inf", got)
	}
	if fast.calls != 0 || ref.calls != 0 {
		t.Errorf("likelihood invoked despite -Inf prior (fast=%d ref=%d)", fast.calls, ref.calls)
	}
}

func TestLogProbCombinesPriorAndLikelihood(t *testing.T) {
	o := newTestObjective(t, &waveform.FastModel{}, &waveform.ReferenceModel{})

	theta := []float64{0.08, 8.0}
	lp := o.LogProb(theta)
	if lp != o.LogLikelihood(theta) {
		t.Errorf("LogProb = %g, want prior(0) + likelihood(%g)", lp, o.LogLikelihood(theta))
	}
	if lp <= 0 || lp > 1 {
		t.Errorf("match likelihood %g outside (0, 1]", lp)
	}
}

func TestLogLikelihoodSentinelOnFailure(t *testing.T) {
	o := newTestObjective(t, &failingGenerator{}, &waveform.ReferenceModel{})
	if got := o.LogLikelihood([]float64{0.08, 7.0}); got != 0.0 {
		t.Errorf("failed generation likelihood = %g, want sentinel 0", got)
	}

	o = newTestObjective(t, &waveform.FastModel{}, &failingGenerator{})
	if got := o.LogLikelihood([]float64{0.08, 7.0}); got != 0.0 {
		t.Errorf("failed reference likelihood = %g, want sentinel 0", got)
	}
}

func TestNewValidation(t *testing.T) {
	ctx := testContext(t)
	if _, err := New(testConfig(), ctx, nil, &waveform.ReferenceModel{}); err == nil {
		t.Error("expected error for nil generator")
	}
	noPSD := ctx
	noPSD.PSD = nil
	if _, err := New(testConfig(), noPSD, &waveform.FastModel{}, &waveform.ReferenceModel{}); err == nil {
		t.Error("expected error for missing psd")
	}
	cfg := testConfig()
	cfg.PNOrders = nil
	if _, err := New(cfg, ctx, &waveform.FastModel{}, &waveform.ReferenceModel{}); err == nil {
		t.Error("expected error for empty order set")
	}
}
