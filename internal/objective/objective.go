// Package objective computes the log-probability the ensemble sampler
// explores: a hard box/set prior over (omega_attach, pn_order) plus a
// likelihood given by the match between the fast and reference waveforms.
package objective

import (
	"fmt"
	"math"

	"github.com/wavecal/calibration-core/internal/waveform"
	"github.com/wavecal/calibration-core/pkg/logger"
	"github.com/wavecal/calibration-core/pkg/utils"
)

// Config bounds the searched parameter space
type Config struct {
	OmegaMin float64
	OmegaMax float64
	PNOrders []int
}

// Context is the fixed per-row evaluation context. It is read-only once
// built and safe to share across pool workers.
type Context struct {
	Mass1       float64
	Mass2       float64
	FLower      float64
	SampleRate  float64
	Duration    float64
	Approximant string
	PSD         *waveform.PSD
}

// Objective evaluates candidate (omega_attach, pn_order) vectors against one
// calibration context. LogProb is the only method the sampler sees.
type Objective struct {
	cfg    Config
	ctx    Context
	fast   waveform.Generator
	ref    waveform.Generator
	orders map[int]bool
}

// New creates an objective bound to a context and a pair of generators
func New(cfg Config, ctx Context, fast, ref waveform.Generator) (*Objective, error) {
	if fast == nil || ref == nil {
		return nil, fmt.Errorf("both generators are required")
	}
	if ctx.PSD == nil {
		return nil, fmt.Errorf("context psd is required")
	}
	if len(cfg.PNOrders) == 0 {
		return nil, fmt.Errorf("at least one pn order choice is required")
	}
	if cfg.OmegaMax <= cfg.OmegaMin {
		return nil, fmt.Errorf("omega bounds inverted: [%g, %g]", cfg.OmegaMin, cfg.OmegaMax)
	}

	orders := make(map[int]bool, len(cfg.PNOrders))
	for _, o := range cfg.PNOrders {
		orders[o] = true
	}

	return &Objective{cfg: cfg, ctx: ctx, fast: fast, ref: ref, orders: orders}, nil
}

// LogPrior returns 0 when the rounded pn order is an allowed choice and
// omega_attach lies within bounds, -Inf otherwise. A hard constraint, not a
// soft penalty.
func (o *Objective) LogPrior(theta []float64) float64 {
	omega := theta[0]
	order := utils.RoundToInt(theta[1])

	if !o.orders[order] {
		return math.Inf(-1)
	}
	if omega < o.cfg.OmegaMin || omega > o.cfg.OmegaMax {
		return math.Inf(-1)
	}
	return 0.0
}

// LogLikelihood generates both waveforms with the trial tunables and returns
// their match under the context PSD. Any generation or match failure yields
// exactly 0, the "no information" sentinel filtered out before persistence.
func (o *Objective) LogLikelihood(theta []float64) float64 {
	tun := waveform.Tunables{
		OmegaAttach: theta[0],
		PNOrder:     utils.RoundToInt(theta[1]),
	}
	params := waveform.Params{
		Mass1:       o.ctx.Mass1,
		Mass2:       o.ctx.Mass2,
		FLower:      o.ctx.FLower,
		SampleRate:  o.ctx.SampleRate,
		Duration:    o.ctx.Duration,
		Approximant: o.ctx.Approximant,
	}

	fastSig, err := o.fast.Generate(params, &tun)
	if err != nil {
		logger.Debug("fast model generation failed",
			"omega_attach", tun.OmegaAttach, "pn_order", tun.PNOrder, "error", err)
		return 0.0
	}

	refSig, err := o.ref.Generate(params, nil)
	if err != nil {
		logger.Debug("reference model generation failed",
			"mass1", o.ctx.Mass1, "mass2", o.ctx.Mass2, "error", err)
		return 0.0
	}

	match, err := waveform.Match(fastSig, refSig, o.ctx.PSD)
	if err != nil {
		logger.Debug("match computation failed",
			"omega_attach", tun.OmegaAttach, "pn_order", tun.PNOrder, "error", err)
		return 0.0
	}
	return match
}

// LogProb combines prior and likelihood. When the prior is non-finite it is
// returned unchanged and the expensive likelihood is never invoked.
func (o *Objective) LogProb(theta []float64) float64 {
	prior := o.LogPrior(theta)
	if math.IsInf(prior, -1) {
		return prior
	}
	return prior + o.LogLikelihood(theta)
}
