package calibrate

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/wavecal/calibration-core/internal/grid"
	"github.com/wavecal/calibration-core/pkg/utils"
)

// SampleRecord is one retained (walker, step) sample from the production
// chain. Eccentricity is identically zero for this model family; the column
// is kept for layout compatibility with downstream fitting tools.
type SampleRecord struct {
	MassRatio    float64
	TotalMass    float64
	Mass1        float64
	Mass2        float64
	Eccentricity float64
	PNOrder      int
	OmegaAttach  float64
	Match        float64
}

// sampleFileHeader is the fixed column description written atop every
// sample file.
const sampleFileHeader = `# waveform calibration samples
# one row per retained (walker, step) production sample
# columns (tab separated):
#   1 mass_ratio    mass1/mass2
#   2 total_mass    mass1+mass2 [solar masses]
#   3 mass1         [solar masses]
#   4 mass2         [solar masses]
#   5 eccentricity  always 0.0
#   6 PN_order      discrete phase order of the trial
#   7 omega_attach  dimensionless attachment frequency of the trial
#   8 match         noise-weighted overlap with the reference model
`

// flattenChain turns the production chain into sample records, dropping any
// sample whose match is the failed-evaluation sentinel 0. Negative and other
// finite scores are retained.
func flattenChain(row grid.ParameterRow, chain [][][]float64, lnProbs [][]float64) []SampleRecord {
	var records []SampleRecord
	for w := range chain {
		for s := range chain[w] {
			match := lnProbs[w][s]
			// 0 is the failed-evaluation sentinel; -Inf marks a walker that
			// never entered the prior support. Neither is a sample.
			if match == 0 || math.IsInf(match, 0) {
				continue
			}
			records = append(records, SampleRecord{
				MassRatio:    row.MassRatio(),
				TotalMass:    row.Mass1 + row.Mass2,
				Mass1:        row.Mass1,
				Mass2:        row.Mass2,
				Eccentricity: 0.0,
				PNOrder:      utils.RoundToInt(chain[w][s][1]),
				OmegaAttach:  chain[w][s][0],
				Match:        match,
			})
		}
	}
	return records
}

// writeSampleFile writes the header and records as tab-delimited text
func writeSampleFile(path string, records []SampleRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sample file %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	if _, err := w.WriteString(sampleFileHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write sample header: %w", err)
	}
	for _, r := range records {
		_, err := fmt.Fprintf(w, "%g\t%g\t%g\t%g\t%g\t%d\t%g\t%g\n",
			r.MassRatio, r.TotalMass, r.Mass1, r.Mass2,
			r.Eccentricity, r.PNOrder, r.OmegaAttach, r.Match)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to write sample row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush sample file: %w", err)
	}
	return f.Close()
}
