package sampler

import (
	"errors"
	"fmt"
	"math"

	"github.com/wavecal/calibration-core/pkg/utils"
)

// State tracks the sampler lifecycle. Transitions are one-way:
// Uninitialized -> BurningIn -> Ready -> Sampling -> Drained.
type State int

const (
	StateUninitialized State = iota
	StateBurningIn
	StateReady
	StateSampling
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBurningIn:
		return "burning-in"
	case StateReady:
		return "ready"
	case StateSampling:
		return "sampling"
	case StateDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// ErrBadState indicates a lifecycle method called out of order
var ErrBadState = errors.New("sampler in wrong state")

const (
	// nDim is the parameter-space dimensionality: (omega_attach, pn_order)
	nDim = 2
	// burnInSteps is the fixed length of the discarded exploration phase
	burnInSteps = 100
	// stretchScale is the "a" parameter of the affine-invariant stretch move
	stretchScale = 2.0
)

// Config configures one ensemble sampler run
type Config struct {
	NWalkers int
	OmegaMin float64
	OmegaMax float64
	PNOrders []int // ordered set of allowed discrete orders
	Seed     int64
}

// EnsembleSampler is an affine-invariant ensemble MCMC sampler over the
// (omega_attach, pn_order) space. The discrete order is carried as a
// continuous coordinate and rounded at evaluation time.
//
// The sampler is not safe for concurrent use; the job runner drives it from
// a single goroutine and parallelism lives inside the Evaluator.
type EnsembleSampler struct {
	logProb func([]float64) float64
	pool    Evaluator
	cfg     Config
	rng     *utils.RandSource

	state     State
	positions [][]float64 // [walker][param]
	lnProbs   []float64   // [walker]

	chain      [][][]float64 // [walker][step][param], production only
	chainLnPs  [][]float64   // [walker][step]
	production int
}

// NewEnsembleSampler creates a sampler with walker positions drawn uniformly:
// omega ~ U(OmegaMin, OmegaMax), order ~ U(minOrder-0.5, maxOrder+0.5) so
// rounding covers every allowed order, endpoints included.
func NewEnsembleSampler(logProb func([]float64) float64, pool Evaluator, cfg Config) (*EnsembleSampler, error) {
	if logProb == nil {
		return nil, fmt.Errorf("log-probability function is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.NWalkers < 4 || cfg.NWalkers%2 != 0 {
		return nil, fmt.Errorf("nwalkers must be an even number >= 4, got %d", cfg.NWalkers)
	}
	if cfg.OmegaMax <= cfg.OmegaMin {
		return nil, fmt.Errorf("omega bounds inverted: [%g, %g]", cfg.OmegaMin, cfg.OmegaMax)
	}
	if len(cfg.PNOrders) == 0 {
		return nil, fmt.Errorf("at least one pn order choice is required")
	}

	minOrder, maxOrder := cfg.PNOrders[0], cfg.PNOrders[0]
	for _, o := range cfg.PNOrders[1:] {
		if o < minOrder {
			minOrder = o
		}
		if o > maxOrder {
			maxOrder = o
		}
	}

	rng := utils.NewRandSource(cfg.Seed)
	positions := make([][]float64, cfg.NWalkers)
	for i := range positions {
		positions[i] = []float64{
			rng.UniformFloat64(cfg.OmegaMin, cfg.OmegaMax),
			rng.UniformFloat64(float64(minOrder)-0.5, float64(maxOrder)+0.5),
		}
	}

	return &EnsembleSampler{
		logProb:   logProb,
		pool:      pool,
		cfg:       cfg,
		rng:       rng,
		state:     StateUninitialized,
		positions: positions,
		lnProbs:   nil,
	}, nil
}

// State returns the current lifecycle state
func (s *EnsembleSampler) State() State {
	return s.state
}

// BurnIn runs the fixed-length exploration phase and discards its history,
// keeping only the final walker positions. Must be the first call.
func (s *EnsembleSampler) BurnIn() error {
	if s.state != StateUninitialized {
		return fmt.Errorf("%w: burn-in from %s", ErrBadState, s.state)
	}
	s.state = StateBurningIn

	s.lnProbs = s.pool.Map(s.logProb, s.positions)
	for i := 0; i < burnInSteps; i++ {
		s.step()
	}
	// Nothing from the burn-in trajectory survives past this point.
	s.state = StateReady
	return nil
}

// Run executes exactly steps production updates from the post-burn-in state,
// recording every walker position and log-probability at every step.
func (s *EnsembleSampler) Run(steps int) error {
	if s.state != StateReady {
		return fmt.Errorf("%w: run from %s", ErrBadState, s.state)
	}
	if steps <= 0 {
		return fmt.Errorf("production steps must be positive, got %d", steps)
	}
	s.state = StateSampling

	s.production = steps
	s.chain = make([][][]float64, s.cfg.NWalkers)
	s.chainLnPs = make([][]float64, s.cfg.NWalkers)
	for w := range s.chain {
		s.chain[w] = make([][]float64, steps)
		s.chainLnPs[w] = make([]float64, steps)
	}

	for i := 0; i < steps; i++ {
		s.step()
		for w := range s.positions {
			pos := make([]float64, nDim)
			copy(pos, s.positions[w])
			s.chain[w][i] = pos
			s.chainLnPs[w][i] = s.lnProbs[w]
		}
	}

	s.state = StateDrained
	return nil
}

// Chain returns the production chain indexed [walker][step][param].
// Only valid once sampling has finished.
func (s *EnsembleSampler) Chain() ([][][]float64, error) {
	if s.state != StateDrained {
		return nil, fmt.Errorf("%w: chain requested in %s", ErrBadState, s.state)
	}
	return s.chain, nil
}

// LogProbs returns the production log-probabilities indexed [walker][step]
func (s *EnsembleSampler) LogProbs() ([][]float64, error) {
	if s.state != StateDrained {
		return nil, fmt.Errorf("%w: log-probs requested in %s", ErrBadState, s.state)
	}
	return s.chainLnPs, nil
}

// step advances the whole ensemble by one stretch-move update. The ensemble
// is split into two halves, each proposing against the other, so the
// evaluations within a half may run in parallel without breaking detailed
// balance.
func (s *EnsembleSampler) step() {
	half := s.cfg.NWalkers / 2
	s.updateHalf(0, half, half, s.cfg.NWalkers)
	s.updateHalf(half, s.cfg.NWalkers, 0, half)
}

// updateHalf proposes a stretch move for every walker in [lo, hi) toward a
// random walker in the complementary half [clo, chi), evaluates the proposals
// under the pool with a barrier join, then applies Metropolis accept/reject.
func (s *EnsembleSampler) updateHalf(lo, hi, clo, chi int) {
	n := hi - lo
	proposals := make([][]float64, n)
	zs := make([]float64, n)

	for k := 0; k < n; k++ {
		w := lo + k
		other := s.positions[clo+s.rng.Intn(chi-clo)]

		// z ~ g(z) with g(z) proportional to 1/sqrt(z) on [1/a, a]
		u := s.rng.Float64()
		z := (stretchScale - 1.0) * u
		z = (z + 1.0) * (z + 1.0) / stretchScale
		zs[k] = z

		prop := make([]float64, nDim)
		for d := 0; d < nDim; d++ {
			prop[d] = other[d] + z*(s.positions[w][d]-other[d])
		}
		proposals[k] = prop
	}

	lnPs := s.pool.Map(s.logProb, proposals)

	for k := 0; k < n; k++ {
		w := lo + k
		logRatio := float64(nDim-1)*math.Log(zs[k]) + lnPs[k] - s.lnProbs[w]
		if math.IsNaN(logRatio) {
			// Both states outside the prior support; keep the walker put.
			continue
		}
		if logRatio >= 0 || math.Log(s.rng.Float64()) < logRatio {
			s.positions[w] = proposals[k]
			s.lnProbs[w] = lnPs[k]
		}
	}
}
