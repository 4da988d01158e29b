package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wavecal/calibration-core/internal/grid"
)

// ParameterSet is the on-disk form of one job batch: field name -> array,
// all arrays equal length. The generator writes it and the job runner reads
// it back; both sides share this codec so job inputs cannot drift.
type ParameterSet struct {
	Mass1  []float64 `yaml:"mass1"`
	Mass2  []float64 `yaml:"mass2"`
	FLower []float64 `yaml:"f_lower"`
	PSD    []string  `yaml:"psd"`
}

// NewParameterSet converts a batch's rows to columnar form
func NewParameterSet(rows []grid.ParameterRow) *ParameterSet {
	s := &ParameterSet{
		Mass1:  make([]float64, len(rows)),
		Mass2:  make([]float64, len(rows)),
		FLower: make([]float64, len(rows)),
		PSD:    make([]string, len(rows)),
	}
	for i, r := range rows {
		s.Mass1[i] = r.Mass1
		s.Mass2[i] = r.Mass2
		s.FLower[i] = r.FLower
		s.PSD[i] = r.PSDName
	}
	return s
}

// Len returns the number of rows
func (s *ParameterSet) Len() int {
	return len(s.Mass1)
}

// Row reconstructs the i-th parameter row
func (s *ParameterSet) Row(i int) grid.ParameterRow {
	return grid.ParameterRow{
		Mass1:   s.Mass1[i],
		Mass2:   s.Mass2[i],
		FLower:  s.FLower[i],
		PSDName: s.PSD[i],
	}
}

// validate checks the equal-length invariant
func (s *ParameterSet) validate() error {
	n := len(s.Mass1)
	if len(s.Mass2) != n || len(s.FLower) != n || len(s.PSD) != n {
		return fmt.Errorf("parameter arrays have unequal lengths: mass1=%d mass2=%d f_lower=%d psd=%d",
			len(s.Mass1), len(s.Mass2), len(s.FLower), len(s.PSD))
	}
	if n == 0 {
		return fmt.Errorf("parameter file is empty")
	}
	return nil
}

// WriteParameterFile persists a parameter set as yaml
func WriteParameterFile(path string, s *ParameterSet) error {
	if err := s.validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal parameter set: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write parameter file %s: %w", path, err)
	}
	return nil
}

// ReadParameterFile loads and validates a parameter file. The whole file is
// read into memory once at job start.
func ReadParameterFile(path string) (*ParameterSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file %s: %w", path, err)
	}
	var s ParameterSet
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid parameter file %s: %w", path, err)
	}
	return &s, nil
}

// ParamFileName returns the deterministic parameter-file path for a job,
// relative to the workflow directory.
func ParamFileName(id grid.JobID) string {
	return filepath.Join(inputDir, fmt.Sprintf("tune_%s.yaml", id))
}

// OutputFileName returns the per-(job, row) sample file path relative to the
// workflow directory: results/<prefix><job>_<row %06d>.dat.
func OutputFileName(prefix string, id grid.JobID, row int) string {
	return filepath.Join(resultsDir, fmt.Sprintf("%s%s_%06d.dat", prefix, id, row))
}
