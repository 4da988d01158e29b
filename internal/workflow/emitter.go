// Package workflow writes the batch-cluster workflow: one parameter file per
// job, a DAG description, a shared submission template, and the directory
// layout the job runner expects.
package workflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wavecal/calibration-core/internal/grid"
	"github.com/wavecal/calibration-core/pkg/config"
	"github.com/wavecal/calibration-core/pkg/logger"
)

const (
	scriptsDir = "scripts"
	inputDir   = "input"
	resultsDir = "results"
	logDir     = "log"

	dagFileName    = "calibration.dag"
	submitFileName = "calibrate.sub"
	runnerName     = "calibrate-job"
)

// Emitter materializes a workflow under WorkDir
type Emitter struct {
	WorkDir      string
	Run          config.RunConfig
	RunnerBinary string // path of the built job-runner binary to stage
}

// NewEmitter creates an emitter rooted at workDir
func NewEmitter(workDir string, run config.RunConfig, runnerBinary string) *Emitter {
	return &Emitter{WorkDir: workDir, Run: run, RunnerBinary: runnerBinary}
}

// Scaffold creates the directory layout and stages an executable copy of the
// job runner into scripts/. A missing runner binary is fatal.
func (e *Emitter) Scaffold() error {
	for _, dir := range []string{scriptsDir, inputDir, resultsDir, logDir} {
		if err := os.MkdirAll(filepath.Join(e.WorkDir, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	staged := filepath.Join(e.WorkDir, scriptsDir, runnerName)
	if err := copyExecutable(e.RunnerBinary, staged); err != nil {
		return fmt.Errorf("failed to stage job runner: %w", err)
	}
	logger.Info("staged job runner", "from", e.RunnerBinary, "to", staged)
	return nil
}

// Emit writes the submission template, then one parameter file and one DAG
// node per batch. Batches recorded in the manifest from a previous run are
// skipped entirely, making re-runs idempotent.
func (e *Emitter) Emit(batches []grid.JobBatch) error {
	if err := e.writeSubmitFile(); err != nil {
		return err
	}

	manifest, err := loadManifest(e.WorkDir)
	if err != nil {
		return err
	}

	dag, err := os.OpenFile(filepath.Join(e.WorkDir, dagFileName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open dag file: %w", err)
	}
	defer dag.Close()

	emitted := 0
	for _, batch := range batches {
		if manifest.Contains(batch.ID) {
			logger.Debug("job already emitted, skipping", "job", batch.ID.String())
			continue
		}

		paramPath := filepath.Join(e.WorkDir, ParamFileName(batch.ID))
		if _, err := os.Stat(paramPath); err == nil {
			// A parameter file from an interrupted run; never overwrite it.
			logger.Warn("parameter file already exists, keeping it", "path", paramPath)
		} else {
			if err := WriteParameterFile(paramPath, NewParameterSet(batch.Rows)); err != nil {
				return err
			}
		}

		if err := writeDAGNode(dag, batch.ID); err != nil {
			return fmt.Errorf("failed to append dag node for job %s: %w", batch.ID, err)
		}

		manifest.Add(batch.ID)
		if err := manifest.save(e.WorkDir); err != nil {
			return err
		}
		emitted++
	}

	logger.Info("workflow emitted",
		"jobs", len(batches), "new", emitted, "skipped", len(batches)-emitted,
		"rows", grid.TotalRows(batches))
	return nil
}

// writeDAGNode appends one JOB block with its two VARS bindings
func writeDAGNode(w io.Writer, id grid.JobID) error {
	node := fmt.Sprintf("JOB TUNE%s %s\nVARS TUNE%s macrojobid=\"%s\"\nVARS TUNE%s macroparamfile=\"%s\"\n",
		id, submitFileName, id, id, id, ParamFileName(id))
	_, err := io.WriteString(w, node)
	return err
}

// writeSubmitFile writes the shared submission template once. All run-wide
// options are interpolated as literal argument text; per-job values arrive
// through the DAG macros.
func (e *Emitter) writeSubmitFile() error {
	path := filepath.Join(e.WorkDir, submitFileName)
	if _, err := os.Stat(path); err == nil {
		logger.Debug("submit file already exists, keeping it", "path", path)
		return nil
	}

	orders := make([]string, len(e.Run.PNOrders))
	for i, o := range e.Run.PNOrders {
		orders[i] = strconv.Itoa(o)
	}

	args := strings.Join([]string{
		"--job-id $(macrojobid)",
		"--param-file $(macroparamfile)",
		fmt.Sprintf("--omega-min %g", e.Run.OmegaMin),
		fmt.Sprintf("--omega-max %g", e.Run.OmegaMax),
		fmt.Sprintf("--pn-orders %s", strings.Join(orders, ",")),
		fmt.Sprintf("--approximant %s", e.Run.Approximant),
		fmt.Sprintf("--samplers %d", e.Run.Samplers),
		fmt.Sprintf("--steps %d", e.Run.Steps),
		fmt.Sprintf("--sample-rate %g", e.Run.SampleRate),
		fmt.Sprintf("--duration %g", e.Run.Duration),
		fmt.Sprintf("--processes %d", e.Run.Processes),
		fmt.Sprintf("--output-prefix %s", e.Run.OutputPrefix),
	}, " ")

	content := fmt.Sprintf(`universe = vanilla
executable = %s/%s
arguments = %s
getenv = True
log = %s/tune_$(macrojobid).log
error = %s/tune_$(macrojobid).err
output = %s/tune_$(macrojobid).out
notification = never
queue 1
`, scriptsDir, runnerName, args, logDir, logDir, logDir)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write submit file: %w", err)
	}
	return nil
}

// copyExecutable copies src to dst with execute permissions
func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
