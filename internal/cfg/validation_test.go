package cfg

import (
	"strings"
	"testing"
	"time"

	"lime-explainer/internal/lime"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		DataPath:        "/tmp/data",
		LogLevel:        "info",
		ModelName:       "credit",
		ModelURL:        "http://localhost:8081",
		Transport:       "http",
		ProviderTimeout: 5 * time.Second,
		Lime: LimeSettings{
			Samples:            300,
			PerturbationSize:   1,
			TopKFeatures:       6,
			ProximityThreshold: 0.3,
			ProximityMinimum:   10,
			Penalization:       0.01,
			MaxRedraws:         3,
		},
		Stability: lime.DefaultStabilityValidator(),
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_MissingDataPath(t *testing.T) {
	settings := createValidSettings()
	settings.DataPath = ""

	err := validateSettings(settings)
	if err == nil {
		t.Fatal("Expected error for missing data path")
	}
	if err.Error() != "data path is required" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestValidateSettings_MissingModelURL(t *testing.T) {
	settings := createValidSettings()
	settings.ModelURL = ""

	err := validateSettings(settings)
	if err == nil {
		t.Fatal("Expected error for missing model URL")
	}
	if err.Error() != "model URL is required" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestValidateSettings_InvalidLogLevel(t *testing.T) {
	settings := createValidSettings()
	settings.LogLevel = "chatty"

	if err := validateSettings(settings); err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestValidateSettings_InvalidProviderTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"negative", -time.Second, true},
		{"disabled", 0, false},
		{"valid", 30 * time.Second, false},
		{"too long", 10 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.ProviderTimeout = tt.timeout

			err := validateSettings(settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettings_InvalidLimeOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LimeSettings)
	}{
		{"zero samples", func(l *LimeSettings) { l.Samples = 0 }},
		{"too many samples", func(l *LimeSettings) { l.Samples = 200000 }},
		{"negative perturbation size", func(l *LimeSettings) { l.PerturbationSize = -1 }},
		{"negative kernel width", func(l *LimeSettings) { l.KernelWidth = -1 }},
		{"zero top-k", func(l *LimeSettings) { l.TopKFeatures = 0 }},
		{"negative penalization", func(l *LimeSettings) { l.Penalization = -0.1 }},
		{"threshold out of range", func(l *LimeSettings) { l.ProximityFilter = true; l.ProximityThreshold = 1.5 }},
		{"filter minimum above samples", func(l *LimeSettings) { l.ProximityFilter = true; l.ProximityMinimum = 1000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(&settings.Lime)

			if err := validateSettings(settings); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestValidateSettings_Stability(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*lime.StabilityValidator)
		wantErr string
	}{
		{"zero runs", func(v *lime.StabilityValidator) { v.Runs = 0 }, "stability runs"},
		{"too many runs", func(v *lime.StabilityValidator) { v.Runs = 5000 }, "stability runs"},
		{"zero top-k", func(v *lime.StabilityValidator) { v.TopK = 0 }, "top-k"},
		{"negative parallelism", func(v *lime.StabilityValidator) { v.Parallelism = -2 }, "parallelism"},
		{"negative rate", func(v *lime.StabilityValidator) { v.MinNegativeRate = -0.5 }, "negative rate"},
		{"rate above one", func(v *lime.StabilityValidator) { v.MinPositiveRate = 2 }, "positive rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(&settings.Stability)

			err := validateSettings(settings)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_WebSocketTransport(t *testing.T) {
	settings := createValidSettings()
	settings.Transport = "ws"
	settings.ModelURL = "ws://localhost:8081/stream"

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected websocket transport to pass, got error: %v", err)
	}
}

func TestValidateSettings_ProcessTransport(t *testing.T) {
	settings := createValidSettings()
	settings.Transport = "process"
	settings.ModelURL = "/usr/local/bin/score"
	settings.ModelArgs = []string{"--model", "credit.onnx"}

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected process transport to pass, got error: %v", err)
	}
}
