// Package grid enumerates the physical-parameter sweep and partitions it
// into bounded-size job batches for the cluster workflow.
package grid

import (
	"fmt"

	"github.com/wavecal/calibration-core/pkg/config"
)

// ParameterRow is one calibration task: a mass pair plus the start frequency
// and noise curve to calibrate under. Immutable once assigned to a batch;
// the mass-ratio constraint is enforced here at creation and never re-checked.
type ParameterRow struct {
	Mass1   float64
	Mass2   float64
	FLower  float64
	PSDName string
}

// MassRatio returns mass1 / mass2
func (r ParameterRow) MassRatio() float64 {
	return r.Mass1 / r.Mass2
}

// JobID identifies one job batch. IDs are assigned sequentially at
// batch-start time and never renumbered.
type JobID int

// String renders the zero-padded form used in file names and DAG nodes
func (id JobID) String() string {
	return fmt.Sprintf("%05d", int(id))
}

// JobBatch is an ordered sequence of at most CalcsPerJob parameter rows
type JobBatch struct {
	ID   JobID
	Rows []ParameterRow
}

// Partition enumerates the Cartesian sweep and streams it into batches.
// mass1 runs outer over [Min, Max) at Step, mass2 inner likewise; pairs with
// mass ratio outside [QMin, QMax] are discarded; every retained pair expands
// into all (f_lower, psd) combinations. A new batch opens whenever the
// current one is full; the final partial batch is flushed.
func Partition(cfg config.GridConfig) []JobBatch {
	var batches []JobBatch
	emit := func(row ParameterRow) {
		if len(batches) == 0 || len(batches[len(batches)-1].Rows) >= cfg.CalcsPerJob {
			batches = append(batches, JobBatch{ID: JobID(len(batches))})
		}
		last := &batches[len(batches)-1]
		last.Rows = append(last.Rows, row)
	}

	for i := 0; ; i++ {
		mass1 := cfg.Mass1.Min + float64(i)*cfg.Mass1.Step
		if mass1 >= cfg.Mass1.Max {
			break
		}
		for j := 0; ; j++ {
			mass2 := cfg.Mass2.Min + float64(j)*cfg.Mass2.Step
			if mass2 >= cfg.Mass2.Max {
				break
			}
			q := mass1 / mass2
			if q < cfg.QMin || q > cfg.QMax {
				continue
			}
			for _, fLower := range cfg.FLower {
				for _, psd := range cfg.PSDs {
					emit(ParameterRow{Mass1: mass1, Mass2: mass2, FLower: fLower, PSDName: psd})
				}
			}
		}
	}

	return batches
}

// TotalRows returns the number of rows across all batches
func TotalRows(batches []JobBatch) int {
	total := 0
	for _, b := range batches {
		total += len(b.Rows)
	}
	return total
}
