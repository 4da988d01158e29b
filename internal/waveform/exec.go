package waveform

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Environment variables the external generator reads its trial parameters
// from. They are set on the child process environment only, never on this
// process, so concurrent evaluations cannot observe each other's values.
const (
	EnvOmegaAttach = "OMEGA_ATTACH"
	EnvPNOrder     = "PN_ORDER"
)

// ExecGenerator runs an external waveform binary. The binary receives the
// physical parameters as arguments and, when tunables are present, the trial
// (omega_attach, pn_order) via its environment. It must print the grid header
// "f0 deltaF n" followed by n lines of "re im" to stdout.
type ExecGenerator struct {
	Path string
}

// NewExecGenerator creates a generator backed by the binary at path
func NewExecGenerator(path string) *ExecGenerator {
	return &ExecGenerator{Path: path}
}

func (g *ExecGenerator) Generate(p Params, tun *Tunables) (*Signal, error) {
	args := []string{
		"--mass1", strconv.FormatFloat(p.Mass1, 'g', -1, 64),
		"--mass2", strconv.FormatFloat(p.Mass2, 'g', -1, 64),
		"--f-lower", strconv.FormatFloat(p.FLower, 'g', -1, 64),
		"--sample-rate", strconv.FormatFloat(p.SampleRate, 'g', -1, 64),
		"--duration", strconv.FormatFloat(p.Duration, 'g', -1, 64),
		"--approximant", p.Approximant,
	}

	cmd := exec.Command(g.Path, args...)
	cmd.Env = os.Environ()
	if tun != nil {
		cmd.Env = append(cmd.Env,
			fmt.Sprintf("%s=%g", EnvOmegaAttach, tun.OmegaAttach),
			fmt.Sprintf("%s=%d", EnvPNOrder, tun.PNOrder),
		)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("generator %s failed: %w (stderr: %s)", g.Path, err, stderr.String())
	}

	sig, err := parseSignal(&stdout)
	if err != nil {
		return nil, fmt.Errorf("generator %s produced unreadable output: %w", g.Path, err)
	}
	return sig, nil
}

// parseSignal reads the "f0 deltaF n" header and n "re im" lines
func parseSignal(r *bytes.Buffer) (*Signal, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, fmt.Errorf("empty output")
	}

	var f0, deltaF float64
	var n int
	if _, err := fmt.Sscan(scanner.Text(), &f0, &deltaF, &n); err != nil {
		return nil, fmt.Errorf("bad header %q: %w", scanner.Text(), err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("non-positive bin count %d", n)
	}

	data := make([]complex128, 0, n)
	for scanner.Scan() {
		var re, im float64
		if _, err := fmt.Sscan(scanner.Text(), &re, &im); err != nil {
			return nil, fmt.Errorf("bad sample line %q: %w", scanner.Text(), err)
		}
		data = append(data, complex(re, im))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("header promised %d bins, got %d", n, len(data))
	}

	return &Signal{F0: f0, DeltaF: deltaF, Data: data}, nil
}
