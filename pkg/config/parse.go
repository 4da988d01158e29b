package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses a Config from YAML bytes and validates it.
func ParseConfigYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in optional fields left empty in the file
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Run.OutputPrefix == "" {
		cfg.Run.OutputPrefix = "tune_"
	}
	if cfg.Run.Processes == 0 {
		cfg.Run.Processes = 1
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if err := validateGrid(&cfg.Grid); err != nil {
		return fmt.Errorf("grid validation failed: %w", err)
	}
	if err := validateRun(&cfg.Run); err != nil {
		return fmt.Errorf("run validation failed: %w", err)
	}
	return nil
}

// validateGrid validates the parameter sweep definition
func validateGrid(g *GridConfig) error {
	if err := validateMassRange("mass1", g.Mass1); err != nil {
		return err
	}
	if err := validateMassRange("mass2", g.Mass2); err != nil {
		return err
	}
	if g.QMin <= 0 {
		return fmt.Errorf("q_min must be positive, got %g", g.QMin)
	}
	if g.QMax < g.QMin {
		return fmt.Errorf("q_max (%g) must be >= q_min (%g)", g.QMax, g.QMin)
	}
	if len(g.FLower) == 0 {
		return fmt.Errorf("at least one f_lower value is required")
	}
	for i, f := range g.FLower {
		if f <= 0 {
			return fmt.Errorf("f_lower[%d] must be positive, got %g", i, f)
		}
	}
	if len(g.PSDs) == 0 {
		return fmt.Errorf("at least one psd name is required")
	}
	psdNames := make(map[string]bool)
	for i, name := range g.PSDs {
		if name == "" {
			return fmt.Errorf("psds[%d] cannot be empty", i)
		}
		if psdNames[name] {
			return fmt.Errorf("duplicate psd name: %s", name)
		}
		psdNames[name] = true
	}
	if g.CalcsPerJob <= 0 {
		return fmt.Errorf("calcs_per_job must be positive, got %d", g.CalcsPerJob)
	}
	return nil
}

// validateMassRange validates a half-open enumeration range
func validateMassRange(field string, r MassRange) error {
	if r.Min <= 0 {
		return fmt.Errorf("%s.min must be positive, got %g", field, r.Min)
	}
	if r.Max <= r.Min {
		return fmt.Errorf("%s.max (%g) must be greater than %s.min (%g)", field, r.Max, field, r.Min)
	}
	if r.Step <= 0 {
		return fmt.Errorf("%s.step must be positive, got %g", field, r.Step)
	}
	return nil
}

// validateRun validates the shared sampler options
func validateRun(r *RunConfig) error {
	if r.OmegaMin <= 0 {
		return fmt.Errorf("omega_min must be positive, got %g", r.OmegaMin)
	}
	if r.OmegaMax <= r.OmegaMin {
		return fmt.Errorf("omega_max (%g) must be greater than omega_min (%g)", r.OmegaMax, r.OmegaMin)
	}
	if len(r.PNOrders) == 0 {
		return fmt.Errorf("at least one pn_order is required")
	}
	seen := make(map[int]bool)
	for i, order := range r.PNOrders {
		if order < 0 {
			return fmt.Errorf("pn_orders[%d] cannot be negative, got %d", i, order)
		}
		if seen[order] {
			return fmt.Errorf("duplicate pn_order: %d", order)
		}
		seen[order] = true
	}
	if r.Approximant == "" {
		return fmt.Errorf("approximant is required")
	}
	// The stretch move needs an even population split into two halves.
	if r.Samplers < 4 || r.Samplers%2 != 0 {
		return fmt.Errorf("samplers must be an even number >= 4, got %d", r.Samplers)
	}
	if r.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", r.Steps)
	}
	if r.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %g", r.SampleRate)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", r.Duration)
	}
	if r.Processes < 1 {
		return fmt.Errorf("processes must be >= 1, got %d", r.Processes)
	}
	return nil
}
