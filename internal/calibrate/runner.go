// Package calibrate runs one job batch: for every parameter row it drives an
// ensemble sampler over the (omega_attach, pn_order) space and writes the
// retained samples to a per-row output file.
package calibrate

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/wavecal/calibration-core/internal/grid"
	"github.com/wavecal/calibration-core/internal/objective"
	"github.com/wavecal/calibration-core/internal/sampler"
	"github.com/wavecal/calibration-core/internal/waveform"
	"github.com/wavecal/calibration-core/internal/workflow"
	"github.com/wavecal/calibration-core/pkg/logger"
)

// Options is the full job-runner configuration, consumed once at startup
type Options struct {
	JobID        grid.JobID
	ParamFile    string
	WorkDir      string
	OmegaMin     float64
	OmegaMax     float64
	PNOrders     []int
	Approximant  string
	Samplers     int
	Steps        int
	SampleRate   float64
	Duration     float64
	Processes    int
	OutputPrefix string
	Seed         int64
}

// RowResult is the typed outcome of one parameter row. Failed rows carry the
// error; the batch keeps going either way.
type RowResult struct {
	Index      int
	Row        grid.ParameterRow
	Err        error
	Records    int
	OutputPath string
	MeanOmega  float64
	BestMatch  float64
}

// OK reports whether the row completed
func (r RowResult) OK() bool {
	return r.Err == nil
}

// BatchSummary aggregates every row outcome of one job run
type BatchSummary struct {
	JobID      grid.JobID
	RunID      string
	RowsOK     int
	RowsFailed int
	Elapsed    time.Duration
	Results    []RowResult
}

// Runner executes one job batch sequentially, row by row
type Runner struct {
	opts  Options
	runID string
	fast  waveform.Generator
	ref   waveform.Generator
	pool  sampler.Evaluator
}

// NewRunner validates the options and builds the generators and worker pool.
// Pool degradation is handled inside sampler.NewEvaluator and is never fatal.
func NewRunner(opts Options) (*Runner, error) {
	if opts.ParamFile == "" {
		return nil, fmt.Errorf("parameter file path is required")
	}
	if opts.Steps <= 0 {
		return nil, fmt.Errorf("production steps must be positive, got %d", opts.Steps)
	}
	if opts.SampleRate <= 0 || opts.Duration <= 0 {
		return nil, fmt.Errorf("sample rate and duration must be positive, got %g and %g",
			opts.SampleRate, opts.Duration)
	}
	if opts.Samplers < 4 || opts.Samplers%2 != 0 {
		return nil, fmt.Errorf("samplers must be an even number >= 4, got %d", opts.Samplers)
	}
	if opts.OmegaMax <= opts.OmegaMin {
		return nil, fmt.Errorf("omega bounds inverted: [%g, %g]", opts.OmegaMin, opts.OmegaMax)
	}
	if opts.OutputPrefix == "" {
		opts.OutputPrefix = "tune_"
	}

	fast, err := waveform.NewGenerator(opts.Approximant)
	if err != nil {
		return nil, err
	}

	return &Runner{
		opts:  opts,
		runID: uuid.NewString(),
		fast:  fast,
		ref:   &waveform.ReferenceModel{},
		pool:  sampler.NewEvaluator(opts.Processes),
	}, nil
}

// Run processes every row of the batch in order. A failing row is recorded
// and skipped; only I/O and configuration problems abort the run. The worker
// pool is closed exactly once on the way out, success or failure.
func (r *Runner) Run() (*BatchSummary, error) {
	defer r.pool.Close()

	log := logger.With("job", r.opts.JobID.String(), "run_id", r.runID)
	start := time.Now()

	params, err := workflow.ReadParameterFile(r.opts.ParamFile)
	if err != nil {
		return nil, err
	}
	log.Info("job batch loaded", "rows", params.Len(), "param_file", r.opts.ParamFile)

	// One cache for the whole batch; rows sharing (f_lower, psd) reuse the
	// PSD, rows differing in either rebuild it.
	cache := waveform.NewPSDCache(1.0/r.opts.Duration, r.opts.SampleRate/2.0)

	summary := &BatchSummary{JobID: r.opts.JobID, RunID: r.runID}
	for i := 0; i < params.Len(); i++ {
		row := params.Row(i)
		result := r.runRow(i, row, cache)
		summary.Results = append(summary.Results, result)

		if result.OK() {
			summary.RowsOK++
			log.Info("row complete", "row", i,
				"mass1", row.Mass1, "mass2", row.Mass2, "f_lower", row.FLower,
				"records", result.Records, "best_match", result.BestMatch,
				"mean_omega", result.MeanOmega, "output", result.OutputPath)
		} else {
			summary.RowsFailed++
			log.Error("row failed", "row", i,
				"mass1", row.Mass1, "mass2", row.Mass2, "f_lower", row.FLower,
				"psd", row.PSDName, "error", result.Err)
		}
	}

	summary.Elapsed = time.Since(start)
	log.Info("job batch finished",
		"rows_ok", summary.RowsOK, "rows_failed", summary.RowsFailed,
		"elapsed", summary.Elapsed.String(), "psds_built", cache.Len())
	return summary, nil
}

// runRow calibrates one parameter row end to end
func (r *Runner) runRow(index int, row grid.ParameterRow, cache *waveform.PSDCache) RowResult {
	result := RowResult{Index: index, Row: row}

	psd, err := cache.Get(row.PSDName, row.FLower)
	if err != nil {
		result.Err = fmt.Errorf("psd construction: %w", err)
		return result
	}

	ctx := objective.Context{
		Mass1:       row.Mass1,
		Mass2:       row.Mass2,
		FLower:      row.FLower,
		SampleRate:  r.opts.SampleRate,
		Duration:    r.opts.Duration,
		Approximant: r.opts.Approximant,
		PSD:         psd,
	}
	obj, err := objective.New(objective.Config{
		OmegaMin: r.opts.OmegaMin,
		OmegaMax: r.opts.OmegaMax,
		PNOrders: r.opts.PNOrders,
	}, ctx, r.fast, r.ref)
	if err != nil {
		result.Err = fmt.Errorf("objective construction: %w", err)
		return result
	}

	seed := r.opts.Seed
	if seed != 0 {
		// Distinct but reproducible stream per row.
		seed += int64(index) * 7919
	}
	smp, err := sampler.NewEnsembleSampler(obj.LogProb, r.pool, sampler.Config{
		NWalkers: r.opts.Samplers,
		OmegaMin: r.opts.OmegaMin,
		OmegaMax: r.opts.OmegaMax,
		PNOrders: r.opts.PNOrders,
		Seed:     seed,
	})
	if err != nil {
		result.Err = fmt.Errorf("sampler construction: %w", err)
		return result
	}

	if err := smp.BurnIn(); err != nil {
		result.Err = fmt.Errorf("burn-in: %w", err)
		return result
	}
	if err := smp.Run(r.opts.Steps); err != nil {
		result.Err = fmt.Errorf("production: %w", err)
		return result
	}

	chain, err := smp.Chain()
	if err != nil {
		result.Err = err
		return result
	}
	lnProbs, err := smp.LogProbs()
	if err != nil {
		result.Err = err
		return result
	}

	records := flattenChain(row, chain, lnProbs)
	outPath := filepath.Join(r.opts.WorkDir, workflow.OutputFileName(r.opts.OutputPrefix, r.opts.JobID, index))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		result.Err = fmt.Errorf("output directory: %w", err)
		return result
	}
	if err := writeSampleFile(outPath, records); err != nil {
		result.Err = err
		return result
	}

	result.Records = len(records)
	result.OutputPath = outPath
	result.MeanOmega, result.BestMatch = chainStats(records)
	return result
}

// chainStats summarizes the retained samples for the per-row log line
func chainStats(records []SampleRecord) (meanOmega, bestMatch float64) {
	if len(records) == 0 {
		return math.NaN(), math.NaN()
	}
	omegas := make([]float64, len(records))
	bestMatch = math.Inf(-1)
	for i, r := range records {
		omegas[i] = r.OmegaAttach
		if r.Match > bestMatch {
			bestMatch = r.Match
		}
	}
	return stat.Mean(omegas, nil), bestMatch
}
