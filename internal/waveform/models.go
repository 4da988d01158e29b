package waveform

import (
	"fmt"
	"math"
	"strings"
)

// solarMassSeconds converts solar masses to seconds (G*Msun/c^3)
const solarMassSeconds = 4.925490947e-6

// MaxPNOrder is the highest half-PN phase term the models carry (v^8)
const MaxPNOrder = 8

// FastModel is the approximate waveform model being calibrated. Its phase
// series truncates at the trial PN order and is attached to a linear
// continuation above the trial attachment frequency.
type FastModel struct{}

// ReferenceModel is the slow trusted model the fast model is calibrated
// against. It carries the full phase series and no attachment.
type ReferenceModel struct{}

// NewGenerator maps an approximant name to a fast-model generator. Names
// containing a path separator select the external-binary generator; the
// binary receives the trial parameters through its own environment.
func NewGenerator(approximant string) (Generator, error) {
	if strings.ContainsRune(approximant, '/') {
		return NewExecGenerator(approximant), nil
	}
	switch approximant {
	case "SEOBNRv1", "SEOBNRv2":
		return &FastModel{}, nil
	default:
		return nil, fmt.Errorf("unknown approximant: %s", approximant)
	}
}

func (m *FastModel) Generate(p Params, tun *Tunables) (*Signal, error) {
	if tun == nil {
		return nil, fmt.Errorf("fast model requires tunable parameters")
	}
	if tun.PNOrder < 0 || tun.PNOrder > MaxPNOrder {
		return nil, fmt.Errorf("pn order %d outside supported range [0, %d]", tun.PNOrder, MaxPNOrder)
	}

	mSec := p.TotalMass() * solarMassSeconds
	fAttach := tun.OmegaAttach / (math.Pi * mSec)
	if fAttach <= p.FLower {
		// The attachment would swallow the whole inspiral band; the time
		// domain solver this stands in for fails to converge here.
		return nil, fmt.Errorf("attachment frequency %.2f Hz at or below start frequency %.2f Hz", fAttach, p.FLower)
	}

	eta := p.SymmetricMassRatio()
	coeffs := pnCoefficients(eta)

	series := func(f float64) float64 {
		return chirpPhase(f, mSec, eta, coeffs, tun.PNOrder)
	}

	// Linear continuation above the attachment point, matched in value and
	// slope so the phase stays C^1 across the joint.
	df := 1e-3 * fAttach
	phiA := series(fAttach)
	slope := (series(fAttach+df) - series(fAttach-df)) / (2 * df)
	phase := func(f float64) float64 {
		if f <= fAttach {
			return series(f)
		}
		return phiA + slope*(f-fAttach)
	}

	return synthesize(p, phase), nil
}

func (m *ReferenceModel) Generate(p Params, tun *Tunables) (*Signal, error) {
	if tun != nil {
		return nil, fmt.Errorf("reference model takes no tunable parameters")
	}
	mSec := p.TotalMass() * solarMassSeconds
	eta := p.SymmetricMassRatio()
	coeffs := pnCoefficients(eta)
	phase := func(f float64) float64 {
		return chirpPhase(f, mSec, eta, coeffs, MaxPNOrder)
	}
	return synthesize(p, phase), nil
}

// chirpPhase evaluates the stationary-phase chirp series truncated after
// the v^maxOrder term.
func chirpPhase(f, mSec, eta float64, coeffs [MaxPNOrder + 1]float64, maxOrder int) float64 {
	v := math.Cbrt(math.Pi * mSec * f)
	sum := 0.0
	vk := 1.0
	for k := 0; k <= maxOrder; k++ {
		sum += coeffs[k] * vk
		vk *= v
	}
	return 3.0 / (128.0 * eta * math.Pow(v, 5)) * sum
}

// pnCoefficients returns the half-PN phase coefficients c_k of the series
// sum(c_k v^k) for the given symmetric mass ratio.
func pnCoefficients(eta float64) [MaxPNOrder + 1]float64 {
	var c [MaxPNOrder + 1]float64
	c[0] = 1.0
	c[1] = 0.0
	c[2] = 3715.0/756.0 + 55.0*eta/9.0
	c[3] = -16.0 * math.Pi
	c[4] = 15293365.0/508032.0 + 27145.0*eta/504.0 + 3085.0*eta*eta/72.0
	c[5] = math.Pi * (38645.0/756.0 - 65.0*eta/9.0)
	c[6] = 11583231236531.0/4694215680.0 - 640.0*math.Pi*math.Pi/3.0 - 6848.0*0.5772156649/21.0
	c[7] = math.Pi * (77096675.0/254016.0 + 378515.0*eta/1512.0)
	c[8] = c[7] * 0.1 // phenomenological closure term
	return c
}

// synthesize builds the frequency-domain strain for the given phase model.
// Amplitude follows the leading-order f^(-7/6) chirp, cut below the start
// frequency and above the last stable orbit.
func synthesize(p Params, phase func(f float64) float64) *Signal {
	mSec := p.TotalMass() * solarMassSeconds
	fISCO := 1.0 / (math.Pow(6.0, 1.5) * math.Pi * mSec)

	deltaF := 1.0 / p.Duration
	n := int(p.SampleRate*p.Duration/2.0) + 1
	data := make([]complex128, n)
	for i := 1; i < n; i++ {
		f := float64(i) * deltaF
		if f < p.FLower || f > fISCO {
			continue
		}
		amp := math.Pow(f, -7.0/6.0)
		phi := phase(f)
		data[i] = complex(amp*math.Cos(phi), amp*math.Sin(phi))
	}

	return &Signal{F0: 0, DeltaF: deltaF, Data: data}
}
