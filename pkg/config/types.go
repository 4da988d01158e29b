package config

// Config is the top-level workflow generation configuration
type Config struct {
	LogLevel string     `yaml:"log_level"`
	Grid     GridConfig `yaml:"grid"`
	Run      RunConfig  `yaml:"run"`
}

// GridConfig describes the physical-parameter sweep to partition into jobs
type GridConfig struct {
	Mass1       MassRange `yaml:"mass1"`
	Mass2       MassRange `yaml:"mass2"`
	QMin        float64   `yaml:"q_min"`
	QMax        float64   `yaml:"q_max"`
	FLower      []float64 `yaml:"f_lower"`
	PSDs        []string  `yaml:"psds"`
	CalcsPerJob int       `yaml:"calcs_per_job"`
}

// MassRange is a half-open [Min, Max) range enumerated at a fixed step
type MassRange struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// RunConfig carries the run-wide sampler options interpolated into the
// submission template; every job in the workflow shares them.
type RunConfig struct {
	OmegaMin     float64 `yaml:"omega_min"`
	OmegaMax     float64 `yaml:"omega_max"`
	PNOrders     []int   `yaml:"pn_orders"`
	Approximant  string  `yaml:"approximant"`
	Samplers     int     `yaml:"samplers"`
	Steps        int     `yaml:"steps"`
	SampleRate   float64 `yaml:"sample_rate"`
	Duration     float64 `yaml:"duration"`
	Processes    int     `yaml:"processes"`
	OutputPrefix string  `yaml:"output_prefix"`
}
