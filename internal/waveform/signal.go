package waveform

import "fmt"

// Signal is a frequency-domain waveform sampled on a uniform frequency grid.
// Data[i] is the complex strain at frequency F0 + i*DeltaF.
type Signal struct {
	F0     float64
	DeltaF float64
	Data   []complex128
}

// NBins returns the number of frequency bins in the signal
func (s *Signal) NBins() int {
	return len(s.Data)
}

// Params are the fixed physical parameters of one waveform generation call
type Params struct {
	Mass1       float64 // solar masses
	Mass2       float64 // solar masses
	FLower      float64 // Hz
	SampleRate  float64 // Hz
	Duration    float64 // seconds
	Approximant string
}

// TotalMass returns mass1 + mass2 in solar masses
func (p Params) TotalMass() float64 {
	return p.Mass1 + p.Mass2
}

// MassRatio returns mass1 / mass2
func (p Params) MassRatio() float64 {
	return p.Mass1 / p.Mass2
}

// SymmetricMassRatio returns m1*m2 / (m1+m2)^2
func (p Params) SymmetricMassRatio() float64 {
	total := p.TotalMass()
	return p.Mass1 * p.Mass2 / (total * total)
}

// Tunables are the two calibrated parameters threaded explicitly into each
// fast-model generation call. Passing them as an argument (rather than via
// process-global state) keeps concurrent evaluations independent.
type Tunables struct {
	OmegaAttach float64 // dimensionless attachment frequency M*omega
	PNOrder     int
}

// Generator produces a frequency-domain waveform for the given parameters.
// tun is nil for models with no tunable parameters (the reference model).
type Generator interface {
	Generate(p Params, tun *Tunables) (*Signal, error)
}

// sameGrid reports whether two signals share a frequency grid
func sameGrid(a, b *Signal) error {
	if a.F0 != b.F0 || a.DeltaF != b.DeltaF || len(a.Data) != len(b.Data) {
		return fmt.Errorf("frequency grids differ: (%g, %g, %d) vs (%g, %g, %d)",
			a.F0, a.DeltaF, len(a.Data), b.F0, b.DeltaF, len(b.Data))
	}
	return nil
}
