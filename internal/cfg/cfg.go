package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"lime-explainer/internal/common"
	"lime-explainer/internal/lime"
	"lime-explainer/internal/model"
)

type Settings struct {
	DataPath        string
	LogLevel        string
	MetricsFile     string
	ModelName       string
	ModelURL        string
	ModelArgs       []string
	Transport       string
	ProviderTimeout time.Duration
	Lime            LimeSettings
	Stability       lime.StabilityValidator
}

// LimeSettings are the explanation options that can be configured.
type LimeSettings struct {
	Samples            int     `yaml:"samples"`
	PerturbationSize   int     `yaml:"perturbationSize"`
	Seed               uint64  `yaml:"seed"`
	KernelWidth        float64 `yaml:"kernelWidth"`
	FeatureSelection   bool    `yaml:"featureSelection"`
	TopKFeatures       int     `yaml:"topK"`
	ProximityFilter    bool    `yaml:"proximityFilter"`
	ProximityThreshold float64 `yaml:"proximityThreshold"`
	ProximityMinimum   int     `yaml:"proximityMinimum"`
	Penalization       float64 `yaml:"penalization"`
	NumericDeltas      bool    `yaml:"numericDeltas"`
	ScaleByRange       bool    `yaml:"scaleByRange"`
	MaxRedraws         int     `yaml:"maxRedraws"`
}

type StabilitySettings struct {
	Runs            int     `yaml:"runs"`
	TopK            int     `yaml:"topK"`
	MinTopRate      float64 `yaml:"minTopRate"`
	MinPositiveRate float64 `yaml:"minPositiveRate"`
	MinNegativeRate float64 `yaml:"minNegativeRate"`
	Parallelism     int     `yaml:"parallelism"`
}

type ConfigFile struct {
	System struct {
		DataPath    string `yaml:"dataPath"`
		LogLevel    string `yaml:"logLevel"`
		MetricsFile string `yaml:"metricsFile"`
	} `yaml:"system"`

	Model struct {
		Name      string   `yaml:"name"`
		URL       string   `yaml:"url"`
		Args      []string `yaml:"args"`
		Transport string   `yaml:"transport"`
		Timeout   string   `yaml:"timeout"`
	} `yaml:"model"`

	Lime LimeSettings `yaml:"lime"`

	Stability StabilitySettings `yaml:"stability"`
}

// Load reads settings from the optional .env file, the YAML file named by
// CONFIG_FILE and the environment, in increasing order of precedence.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := defaultConfigFile()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout, err := time.ParseDuration(config.Model.Timeout)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid model timeout %q: %w", config.Model.Timeout, err)
	}

	settings := Settings{
		DataPath:        config.System.DataPath,
		LogLevel:        config.System.LogLevel,
		MetricsFile:     config.System.MetricsFile,
		ModelName:       config.Model.Name,
		ModelURL:        config.Model.URL,
		ModelArgs:       config.Model.Args,
		Transport:       config.Model.Transport,
		ProviderTimeout: timeout,
		Lime:            config.Lime,
		Stability:       lime.StabilityValidator(config.Stability),
	}
	applyEnv(&settings)

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	config := defaultConfigFile()
	timeout, _ := time.ParseDuration(common.DefaultProviderTimeout)

	settings := Settings{
		DataPath:        config.System.DataPath,
		LogLevel:        config.System.LogLevel,
		ModelURL:        config.Model.URL,
		Transport:       config.Model.Transport,
		ProviderTimeout: timeout,
		Lime:            config.Lime,
		Stability:       lime.StabilityValidator(config.Stability),
	}
	applyEnv(&settings)

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func defaultConfigFile() ConfigFile {
	var config ConfigFile
	config.System.DataPath = common.DefaultDataPath
	config.System.LogLevel = common.DefaultLogLevel
	config.Model.URL = common.DefaultModelURL
	config.Model.Transport = common.DefaultModelTransport
	config.Model.Timeout = common.DefaultProviderTimeout

	d := lime.DefaultConfig()
	config.Lime = LimeSettings{
		Samples:            d.Samples,
		PerturbationSize:   d.PerturbationContext.Size,
		Seed:               d.PerturbationContext.Seed,
		TopKFeatures:       d.TopKFeatures,
		ProximityThreshold: d.ProximityThreshold,
		ProximityMinimum:   d.ProximityFilteredMinimum,
		Penalization:       d.PenalizationWeight,
		MaxRedraws:         d.MaxRedraws,
	}
	config.Stability = StabilitySettings(lime.DefaultStabilityValidator())
	return config
}

// applyEnv overrides settings with the environment variables that are set.
func applyEnv(s *Settings) {
	s.DataPath = getEnvOrDefault(common.EnvDataPath, s.DataPath)
	s.LogLevel = getEnvOrDefault(common.EnvLogLevel, s.LogLevel)
	s.MetricsFile = getEnvOrDefault(common.EnvMetricsFile, s.MetricsFile)
	s.ModelName = getEnvOrDefault(common.EnvModelName, s.ModelName)
	s.ModelURL = getEnvOrDefault(common.EnvModelURL, s.ModelURL)
	s.ModelArgs = splitOrDefault(os.Getenv(common.EnvModelArgs), s.ModelArgs)
	s.Transport = getEnvOrDefault(common.EnvModelTransport, s.Transport)
	s.ProviderTimeout = getDurationOrDefault(common.EnvProviderTimeout, s.ProviderTimeout)

	l := &s.Lime
	l.Samples = getIntOrDefault(common.EnvSamples, l.Samples)
	l.PerturbationSize = getIntOrDefault(common.EnvPerturbationSize, l.PerturbationSize)
	l.Seed = getUintOrDefault(common.EnvSeed, l.Seed)
	l.KernelWidth = getFloatOrDefault(common.EnvKernelWidth, l.KernelWidth)
	l.FeatureSelection = getBoolOrDefault(common.EnvFeatureSelection, l.FeatureSelection)
	l.TopKFeatures = getIntOrDefault(common.EnvTopKFeatures, l.TopKFeatures)
	l.ProximityFilter = getBoolOrDefault(common.EnvProximityFilter, l.ProximityFilter)
	l.ProximityThreshold = getFloatOrDefault(common.EnvProximityThreshold, l.ProximityThreshold)
	l.ProximityMinimum = getIntOrDefault(common.EnvProximityMinimum, l.ProximityMinimum)
	l.Penalization = getFloatOrDefault(common.EnvPenalization, l.Penalization)
	l.NumericDeltas = getBoolOrDefault(common.EnvNumericDeltas, l.NumericDeltas)
	l.ScaleByRange = getBoolOrDefault(common.EnvScaleByRange, l.ScaleByRange)
	l.MaxRedraws = getIntOrDefault(common.EnvMaxRedraws, l.MaxRedraws)

	v := &s.Stability
	v.Runs = getIntOrDefault(common.EnvStabilityRuns, v.Runs)
	v.TopK = getIntOrDefault(common.EnvStabilityTopK, v.TopK)
	v.MinTopRate = getFloatOrDefault(common.EnvStabilityMinTopRate, v.MinTopRate)
	v.MinPositiveRate = getFloatOrDefault(common.EnvStabilityMinPositiveRate, v.MinPositiveRate)
	v.MinNegativeRate = getFloatOrDefault(common.EnvStabilityMinNegativeRate, v.MinNegativeRate)
	v.Parallelism = getIntOrDefault(common.EnvStabilityParallelism, v.Parallelism)
}

// LimeConfig builds the explanation configuration. The provider timeout
// bounds each batch predict call.
func (s *Settings) LimeConfig() lime.Config {
	l := s.Lime
	c := lime.DefaultConfig().
		WithSamples(l.Samples).
		WithPerturbationContext(model.NewPerturbationContext(l.Seed, l.PerturbationSize)).
		WithKernelWidth(l.KernelWidth).
		WithFeatureSelection(l.FeatureSelection, l.TopKFeatures).
		WithProximityFilter(l.ProximityFilter, l.ProximityThreshold, l.ProximityMinimum).
		WithPenalizationWeight(l.Penalization).
		WithProviderTimeout(s.ProviderTimeout)
	c.EncodeNumericDeltas = l.NumericDeltas
	c.ScaleByRange = l.ScaleByRange
	c.MaxRedraws = l.MaxRedraws
	return c
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	return strings.Split(v, ",")
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.DataPath == "" {
		return errors.New(common.ErrMsgDataPathRequired)
	}
	if settings.ModelURL == "" {
		return errors.New(common.ErrMsgModelURLRequired)
	}
	switch settings.Transport {
	case common.TransportHTTP, common.TransportWebSocket, common.TransportProcess:
	default:
		return fmt.Errorf("model transport must be %q, %q or %q, got %q",
			common.TransportHTTP, common.TransportWebSocket, common.TransportProcess, settings.Transport)
	}
	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	// Validate time durations
	if settings.ProviderTimeout < 0 || settings.ProviderTimeout > common.MaxProviderTimeoutSec*time.Second {
		return fmt.Errorf("provider timeout must be between 0 and %ds, got %v", common.MaxProviderTimeoutSec, settings.ProviderTimeout)
	}

	// Validate explanation options
	if settings.Lime.Samples > common.MaxSamples {
		return fmt.Errorf("samples must be at most %d, got %d", common.MaxSamples, settings.Lime.Samples)
	}
	if err := settings.LimeConfig().Validate(); err != nil {
		return err
	}

	// Validate stability options
	st := settings.Stability
	if st.Runs <= 0 || st.Runs > common.MaxStabilityRuns {
		return fmt.Errorf("stability runs must be between 1 and %d, got %d", common.MaxStabilityRuns, st.Runs)
	}
	if st.TopK <= 0 {
		return fmt.Errorf("stability top-k must be positive, got %d", st.TopK)
	}
	if st.Parallelism < 0 {
		return fmt.Errorf("stability parallelism must not be negative, got %d", st.Parallelism)
	}
	for name, rate := range map[string]float64{"top": st.MinTopRate, "positive": st.MinPositiveRate, "negative": st.MinNegativeRate} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("stability minimum %s rate must be between 0 and 1, got %f", name, rate)
		}
	}

	return nil
}
