package waveform

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Match computes the noise-weighted normalized overlap of two frequency-domain
// signals, maximized over a relative phase shift. The result lies in [0, 1]
// for physical inputs. Both signals and the PSD must share a frequency grid.
func Match(a, b *Signal, psd *PSD) (float64, error) {
	if err := sameGrid(a, b); err != nil {
		return 0, fmt.Errorf("match: %w", err)
	}
	if psd.F0 != a.F0 || psd.DeltaF != a.DeltaF {
		return 0, fmt.Errorf("match: psd grid (%g, %g) does not align with signal grid (%g, %g)",
			psd.F0, psd.DeltaF, a.F0, a.DeltaF)
	}
	if len(psd.Data) < len(a.Data) {
		return 0, fmt.Errorf("match: psd covers %d bins, signals have %d", len(psd.Data), len(a.Data))
	}

	cross := complex(0, 0)
	var normA, normB float64
	for i := range a.Data {
		w := psd.Data[i]
		if math.IsInf(w, 1) || w <= 0 {
			continue
		}
		cross += a.Data[i] * cmplx.Conj(b.Data[i]) * complex(1.0/w, 0)
		normA += real(a.Data[i]*cmplx.Conj(a.Data[i])) / w
		normB += real(b.Data[i]*cmplx.Conj(b.Data[i])) / w
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("match: signal has zero power in band")
	}

	// |<a,b>| maximizes the overlap over a constant phase offset.
	return cmplx.Abs(cross) / math.Sqrt(normA*normB), nil
}
