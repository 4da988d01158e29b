package config

import (
	"strings"
	"testing"
)

const validYAML = `
log_level: info
grid:
  mass1: {min: 3, max: 150, step: 3}
  mass2: {min: 3, max: 150, step: 3}
  q_min: 1
  q_max: 10
  f_lower: [15, 20]
  psds: [aLIGOZeroDetHighPower]
  calcs_per_job: 100
run:
  omega_min: 0.02
  omega_max: 0.15
  pn_orders: [6, 7, 8]
  approximant: SEOBNRv1
  samplers: 100
  steps: 200
  sample_rate: 4096
  duration: 32
  processes: 4
`

func TestParseConfigYAMLValid(t *testing.T) {
	cfg, err := ParseConfigYAML([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Grid.Mass1.Max != 150 {
		t.Errorf("mass1.max = %g, want 150", cfg.Grid.Mass1.Max)
	}
	if len(cfg.Run.PNOrders) != 3 {
		t.Errorf("expected 3 pn_orders, got %d", len(cfg.Run.PNOrders))
	}
	if cfg.Run.OutputPrefix != "tune_" {
		t.Errorf("expected default output prefix, got %q", cfg.Run.OutputPrefix)
	}
}

func TestParseConfigYAMLInvalid(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(s string) string { return strings.Replace(s, "log_level: info", "log_level: verbose", 1) },
			wantErr: "log_level",
		},
		{
			name: "inverted mass range",
			mutate: func(s string) string {
				return strings.Replace(s, "mass1: {min: 3, max: 150, step: 3}", "mass1: {min: 150, max: 3, step: 3}", 1)
			},
			wantErr: "mass1.max",
		},
		{
			name: "zero step",
			mutate: func(s string) string {
				return strings.Replace(s, "mass2: {min: 3, max: 150, step: 3}", "mass2: {min: 3, max: 150, step: 0}", 1)
			},
			wantErr: "mass2.step",
		},
		{
			name:    "no psds",
			mutate:  func(s string) string { return strings.Replace(s, "psds: [aLIGOZeroDetHighPower]", "psds: []", 1) },
			wantErr: "psd name",
		},
		{
			name:    "odd samplers",
			mutate:  func(s string) string { return strings.Replace(s, "samplers: 100", "samplers: 7", 1) },
			wantErr: "samplers",
		},
		{
			name:    "omega bounds inverted",
			mutate:  func(s string) string { return strings.Replace(s, "omega_max: 0.15", "omega_max: 0.01", 1) },
			wantErr: "omega_max",
		},
		{
			name:    "duplicate pn order",
			mutate:  func(s string) string { return strings.Replace(s, "pn_orders: [6, 7, 8]", "pn_orders: [6, 6]", 1) },
			wantErr: "duplicate pn_order",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseConfigYAML([]byte(c.mutate(validYAML)))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("error %q does not mention %q", err, c.wantErr)
			}
		})
	}
}
