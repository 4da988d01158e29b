package waveform

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// PSD is a one-sided noise power spectral density on a uniform frequency
// grid. Bins below the low-frequency cutoff hold +Inf so they carry no
// weight in the match integrand.
type PSD struct {
	Name   string
	FLower float64
	F0     float64
	DeltaF float64
	Data   []float64
}

// Supported analytic PSD model names
const (
	PSDFlat      = "flat"
	PSDALIGOZDHP = "aLIGOZeroDetHighPower"

	defaultPSDF0 = 0.0
)

// NewPSD builds the named analytic PSD on the grid [0, fHigher] at deltaF.
// Unknown names are an error; callers must not guess a substitute.
func NewPSD(name string, fLower, deltaF, fHigher float64) (*PSD, error) {
	if fLower <= 0 {
		return nil, fmt.Errorf("psd low-frequency cutoff must be positive, got %g", fLower)
	}
	if deltaF <= 0 {
		return nil, fmt.Errorf("psd deltaF must be positive, got %g", deltaF)
	}
	if fHigher <= fLower {
		return nil, fmt.Errorf("psd fHigher (%g) must exceed fLower (%g)", fHigher, fLower)
	}

	var model func(f float64) float64
	switch name {
	case PSDFlat:
		model = func(float64) float64 { return 1.0 }
	case PSDALIGOZDHP:
		model = aligoZeroDetHighPower
	default:
		return nil, fmt.Errorf("unknown psd model: %s", name)
	}

	n := int(math.Floor(fHigher/deltaF)) + 1
	freqs := make([]float64, n)
	floats.Span(freqs, defaultPSDF0, float64(n-1)*deltaF)

	data := make([]float64, n)
	for i, f := range freqs {
		if f < fLower {
			data[i] = math.Inf(1)
			continue
		}
		data[i] = model(f)
	}

	return &PSD{
		Name:   name,
		FLower: fLower,
		F0:     defaultPSDF0,
		DeltaF: deltaF,
		Data:   data,
	}, nil
}

// aligoZeroDetHighPower is the analytic fit to the aLIGO zero-detuning
// high-power design curve (Ajith & Bose 2009 parameterization).
func aligoZeroDetHighPower(f float64) float64 {
	x := f / 215.0
	x2 := x * x
	return 1e-49 * (math.Pow(x, -4.14) - 5.0/x2 +
		111.0*(1.0-x2+0.5*x2*x2)/(1.0+0.5*x2))
}

// psdKey identifies one cached PSD. Keying on both the cutoff and the model
// name prevents reusing a PSD built for a different noise curve when only one
// of the two changes between rows.
type psdKey struct {
	fLower float64
	name   string
}

// PSDCache memoizes PSD construction across calibration rows
type PSDCache struct {
	mu      sync.Mutex
	deltaF  float64
	fHigher float64
	cached  map[psdKey]*PSD
}

// NewPSDCache creates a cache for PSDs on a grid with the given resolution
func NewPSDCache(deltaF, fHigher float64) *PSDCache {
	return &PSDCache{
		deltaF:  deltaF,
		fHigher: fHigher,
		cached:  make(map[psdKey]*PSD),
	}
}

// Get returns the PSD for (name, fLower), building it on first use
func (c *PSDCache) Get(name string, fLower float64) (*PSD, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := psdKey{fLower: fLower, name: name}
	if psd, ok := c.cached[key]; ok {
		return psd, nil
	}
	psd, err := NewPSD(name, fLower, c.deltaF, c.fHigher)
	if err != nil {
		return nil, err
	}
	c.cached[key] = psd
	return psd, nil
}

// Len returns the number of distinct PSDs built so far
func (c *PSDCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cached)
}
