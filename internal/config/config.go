// Package config loads spikematch's layered configuration (flags, env,
// config file, defaults) the way the teacher's CLI tooling does it: a
// viper-backed Load over a pflag.FlagSet, with bindings registered
// alongside the defaults they shadow.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is spikematch's full layered configuration.
type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Engine   string       `mapstructure:"engine"`
	Bank     BankConfig   `mapstructure:"bank"`
	OMP      OMPConfig    `mapstructure:"omp"`
	Greedy   GreedyConfig `mapstructure:"greedy"`
}

// BankConfig describes how to load and mask the template bank (spec §6
// "Inputs (collaborator-supplied)").
type BankConfig struct {
	TemplatePath      string  `mapstructure:"template_path"`
	Rank              int     `mapstructure:"rank"`
	SparsityMethod    string  `mapstructure:"sparsity_method"`
	SparsityThreshold float64 `mapstructure:"sparsity_threshold"`
}

// OMPConfig is the OMP Solver's configuration table (spec §6
// "Configuration options (OMP)").
type OMPConfig struct {
	AmplitudeMin float64 `mapstructure:"amplitude_min"`
	AmplitudeMax float64 `mapstructure:"amplitude_max"`
	MinSPS       float64 `mapstructure:"omp_min_sps"`
	Vicinity     int     `mapstructure:"vicinity"`
	IgnoredIDs   []int   `mapstructure:"ignored_ids"`
}

// GreedyConfig is the Greedy Solver's configuration table (spec §6
// "Configuration options (Greedy)").
type GreedyConfig struct {
	PeakSign                 string  `mapstructure:"peak_sign"`
	ExcludeSweepMS           float64 `mapstructure:"exclude_sweep_ms"`
	JitterMS                 float64 `mapstructure:"jitter_ms"`
	DetectThreshold          float64 `mapstructure:"detect_threshold"`
	MinAmplitude             float64 `mapstructure:"min_amplitude"`
	MaxAmplitude             float64 `mapstructure:"max_amplitude"`
	UseSparseMatrixThreshold float64 `mapstructure:"use_sparse_matrix_threshold"`
}

// LoadOptions configures one Load call.
type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// DefaultConfig returns spikematch's built-in configuration defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Engine:   "omp",
		Bank: BankConfig{
			Rank:              5,
			SparsityMethod:    "ptp",
			SparsityThreshold: 1.0,
		},
		OMP: OMPConfig{
			AmplitudeMin: 0.5,
			AmplitudeMax: 2.0,
			MinSPS:       0.1,
			Vicinity:     0,
		},
		Greedy: GreedyConfig{
			PeakSign:                 "neg",
			ExcludeSweepMS:           1.0,
			JitterMS:                 0.1,
			DetectThreshold:          5.0,
			MinAmplitude:             0.5,
			MaxAmplitude:             2.0,
			UseSparseMatrixThreshold: 0.15,
		},
	}
}

// RegisterFlags registers every configuration knob as a pflag, seeded
// with defaults, for cobra commands to bind (spec §6 configuration
// tables).
func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("engine", defaults.Engine, "Peeler engine to run (omp|greedy)")

	fs.String("bank-template-path", defaults.Bank.TemplatePath, "Path to the serialized template bank")
	fs.Int("rank", defaults.Bank.Rank, "SVD truncation rank for the low-rank template compressor")
	fs.String("sparse-method", defaults.Bank.SparsityMethod, "Sparsity mask inference method (ptp)")
	fs.Float64("sparse-threshold", defaults.Bank.SparsityThreshold, "Sparsity mask inference threshold")

	fs.Float64("amplitude-min", defaults.OMP.AmplitudeMin, "OMP acceptance band lower bound, normalized units")
	fs.Float64("amplitude-max", defaults.OMP.AmplitudeMax, "OMP acceptance band upper bound, normalized units")
	fs.Float64("omp-min-sps", defaults.OMP.MinSPS, "OMP stopping fraction p")
	fs.Int("vicinity", defaults.OMP.Vicinity, "OMP joint re-fit vicinity radius in samples (0 disables)")
	fs.IntSlice("ignored-ids", defaults.OMP.IgnoredIDs, "Template indices excluded from OMP selection")

	fs.String("peak-sign", defaults.Greedy.PeakSign, "Greedy peak polarity (neg|pos|both)")
	fs.Float64("exclude-sweep-ms", defaults.Greedy.ExcludeSweepMS, "Greedy peak-detector lockout window in ms")
	fs.Float64("jitter-ms", defaults.Greedy.JitterMS, "Greedy jitter expansion half-width in ms")
	fs.Float64("detect-threshold", defaults.Greedy.DetectThreshold, "Greedy peak-detector threshold in noise multiples")
	fs.Float64("min-amplitude", defaults.Greedy.MinAmplitude, "Greedy global acceptance bracket lower bound")
	fs.Float64("max-amplitude", defaults.Greedy.MaxAmplitude, "Greedy global acceptance bracket upper bound")
	fs.Float64("use-sparse-matrix-threshold", defaults.Greedy.UseSparseMatrixThreshold, "Greedy masked-channel scoring switch: multiplied by the template count and rounded down, masked scoring is used when the result is at least 1 (template density is not measured)")
}

// Load resolves the final Config from flags, environment, an optional
// config file, and defaults, in viper's usual precedence order.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("SPIKEMATCH")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("spikematch")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("engine", c.Engine)

	v.SetDefault("bank.template_path", c.Bank.TemplatePath)
	v.SetDefault("bank.rank", c.Bank.Rank)
	v.SetDefault("bank.sparsity_method", c.Bank.SparsityMethod)
	v.SetDefault("bank.sparsity_threshold", c.Bank.SparsityThreshold)

	v.SetDefault("omp.amplitude_min", c.OMP.AmplitudeMin)
	v.SetDefault("omp.amplitude_max", c.OMP.AmplitudeMax)
	v.SetDefault("omp.omp_min_sps", c.OMP.MinSPS)
	v.SetDefault("omp.vicinity", c.OMP.Vicinity)
	v.SetDefault("omp.ignored_ids", c.OMP.IgnoredIDs)

	v.SetDefault("greedy.peak_sign", c.Greedy.PeakSign)
	v.SetDefault("greedy.exclude_sweep_ms", c.Greedy.ExcludeSweepMS)
	v.SetDefault("greedy.jitter_ms", c.Greedy.JitterMS)
	v.SetDefault("greedy.detect_threshold", c.Greedy.DetectThreshold)
	v.SetDefault("greedy.min_amplitude", c.Greedy.MinAmplitude)
	v.SetDefault("greedy.max_amplitude", c.Greedy.MaxAmplitude)
	v.SetDefault("greedy.use_sparse_matrix_threshold", c.Greedy.UseSparseMatrixThreshold)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("bank.template_path", "bank-template-path")
	v.RegisterAlias("bank.rank", "rank")
	v.RegisterAlias("bank.sparsity_method", "sparse-method")
	v.RegisterAlias("bank.sparsity_threshold", "sparse-threshold")

	v.RegisterAlias("omp.amplitude_min", "amplitude-min")
	v.RegisterAlias("omp.amplitude_max", "amplitude-max")
	v.RegisterAlias("omp.omp_min_sps", "omp-min-sps")
	v.RegisterAlias("omp.vicinity", "vicinity")
	v.RegisterAlias("omp.ignored_ids", "ignored-ids")

	v.RegisterAlias("greedy.peak_sign", "peak-sign")
	v.RegisterAlias("greedy.exclude_sweep_ms", "exclude-sweep-ms")
	v.RegisterAlias("greedy.jitter_ms", "jitter-ms")
	v.RegisterAlias("greedy.detect_threshold", "detect-threshold")
	v.RegisterAlias("greedy.min_amplitude", "min-amplitude")
	v.RegisterAlias("greedy.max_amplitude", "max-amplitude")
	v.RegisterAlias("greedy.use_sparse_matrix_threshold", "use-sparse-matrix-threshold")

	v.RegisterAlias("log_level", "log-level")
}
