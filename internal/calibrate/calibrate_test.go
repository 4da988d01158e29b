package calibrate

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/wavecal/calibration-core/internal/grid"
	"github.com/wavecal/calibration-core/internal/workflow"
)

func TestFlattenChainFiltering(t *testing.T) {
	row := grid.ParameterRow{Mass1: 30, Mass2: 10, FLower: 15, PSDName: "flat"}

	// One walker, four steps: a valid score, the failure sentinel, a
	// negative score, and a never-in-support -Inf.
	chain := [][][]float64{{
		{0.08, 7.0},
		{0.09, 7.0},
		{0.10, 8.0},
		{0.11, 6.0},
	}}
	lnProbs := [][]float64{{0.97, 0.0, -0.5, math.Inf(-1)}}

	records := flattenChain(row, chain, lnProbs)
	if len(records) != 2 {
		t.Fatalf("retained %d records, want 2", len(records))
	}
	if records[0].Match != 0.97 {
		t.Errorf("first record match = %g, want 0.97", records[0].Match)
	}
	// Negative but finite scores are genuine samples and must survive.
	if records[1].Match != -0.5 {
		t.Errorf("second record match = %g, want -0.5", records[1].Match)
	}
	if records[1].PNOrder != 8 {
		t.Errorf("second record pn order = %d, want 8", records[1].PNOrder)
	}
}

func TestWriteSampleFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tune_00000_000000.dat")
	records := []SampleRecord{{
		MassRatio:   3,
		TotalMass:   40,
		Mass1:       30,
		Mass2:       10,
		PNOrder:     7,
		OmegaAttach: 0.085,
		Match:       0.93,
	}}
	if err := writeSampleFile(path, records); err != nil {
		t.Fatalf("writeSampleFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	var header, rows []string
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			header = append(header, line)
		} else {
			rows = append(rows, line)
		}
	}
	if len(header) == 0 {
		t.Error("sample file has no comment header")
	}
	for _, col := range []string{"mass_ratio", "total_mass", "eccentricity", "PN_order", "omega_attach", "match"} {
		if !strings.Contains(strings.Join(header, "\n"), col) {
			t.Errorf("header does not describe column %s", col)
		}
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(rows))
	}
	cols := strings.Split(rows[0], "\t")
	if len(cols) != 8 {
		t.Fatalf("expected 8 tab-separated columns, got %d: %q", len(cols), rows[0])
	}
	if cols[0] != "3" || cols[1] != "40" || cols[4] != "0" || cols[5] != "7" {
		t.Errorf("unexpected column values: %v", cols)
	}
}

func testOptions(t *testing.T, workDir, paramFile string) Options {
	t.Helper()
	return Options{
		JobID:        grid.JobID(0),
		ParamFile:    paramFile,
		WorkDir:      workDir,
		OmegaMin:     0.02,
		OmegaMax:     0.15,
		PNOrders:     []int{6, 7, 8},
		Approximant:  "SEOBNRv1",
		Samplers:     4,
		Steps:        5,
		SampleRate:   1024,
		Duration:     4,
		Processes:    2,
		OutputPrefix: "tune_",
		Seed:         7,
	}
}

func writeBatch(t *testing.T, dir string, rows []grid.ParameterRow) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "input"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, workflow.ParamFileName(grid.JobID(0)))
	if err := workflow.WriteParameterFile(path, workflow.NewParameterSet(rows)); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	paramFile := writeBatch(t, dir, []grid.ParameterRow{
		{Mass1: 30, Mass2: 10, FLower: 15, PSDName: "flat"},
	})

	r, err := NewRunner(testOptions(t, dir, paramFile))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	summary, err := r.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.RowsOK != 1 || summary.RowsFailed != 0 {
		t.Fatalf("summary rows ok=%d failed=%d, want 1/0", summary.RowsOK, summary.RowsFailed)
	}
	if summary.RunID == "" {
		t.Error("summary has no run id")
	}

	outPath := filepath.Join(dir, "results", "tune_00000_000000.dat")
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}

	rows := 0
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 8 {
			t.Fatalf("row has %d columns, want 8: %q", len(cols), line)
		}
		ratio, _ := strconv.ParseFloat(cols[0], 64)
		total, _ := strconv.ParseFloat(cols[1], 64)
		if ratio != 3.0 {
			t.Errorf("mass_ratio = %g, want exactly 3.0", ratio)
		}
		if total != 40.0 {
			t.Errorf("total_mass = %g, want exactly 40.0", total)
		}
		rows++
	}
	// At most nwalkers * steps samples survive filtering.
	if rows == 0 || rows > 4*5 {
		t.Errorf("output has %d data rows, want 1..20", rows)
	}
	if summary.Results[0].Records != rows {
		t.Errorf("summary records %d != file rows %d", summary.Results[0].Records, rows)
	}
}

func TestRunnerRowIsolation(t *testing.T) {
	dir := t.TempDir()
	paramFile := writeBatch(t, dir, []grid.ParameterRow{
		{Mass1: 30, Mass2: 10, FLower: 15, PSDName: "no-such-noise-curve"},
		{Mass1: 30, Mass2: 10, FLower: 15, PSDName: "flat"},
	})

	r, err := NewRunner(testOptions(t, dir, paramFile))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	summary, err := r.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.RowsFailed != 1 || summary.RowsOK != 1 {
		t.Fatalf("rows ok=%d failed=%d, want 1/1", summary.RowsOK, summary.RowsFailed)
	}
	if summary.Results[0].OK() {
		t.Error("row 0 should have failed on its unknown psd")
	}
	if !summary.Results[1].OK() {
		t.Errorf("row 1 should have run despite row 0 failing: %v", summary.Results[1].Err)
	}

	// Row 0 produced no output file; row 1 did.
	if _, err := os.Stat(filepath.Join(dir, "results", "tune_00000_000000.dat")); !os.IsNotExist(err) {
		t.Error("failed row unexpectedly produced an output file")
	}
	if _, err := os.Stat(filepath.Join(dir, "results", "tune_00000_000001.dat")); err != nil {
		t.Errorf("surviving row produced no output file: %v", err)
	}
}

func TestRunnerMissingParamFileFatal(t *testing.T) {
	opts := testOptions(t, t.TempDir(), filepath.Join(t.TempDir(), "absent.yaml"))
	r, err := NewRunner(opts)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if _, err := r.Run(); err == nil {
		t.Error("expected fatal error for missing parameter file")
	}
}

func TestNewRunnerValidation(t *testing.T) {
	base := testOptions(t, t.TempDir(), "params.yaml")

	opts := base
	opts.Approximant = "NotAModel"
	if _, err := NewRunner(opts); err == nil {
		t.Error("expected error for unknown approximant")
	}

	opts = base
	opts.Steps = 0
	if _, err := NewRunner(opts); err == nil {
		t.Error("expected error for zero steps")
	}

	opts = base
	opts.ParamFile = ""
	if _, err := NewRunner(opts); err == nil {
		t.Error("expected error for missing param file path")
	}
}
