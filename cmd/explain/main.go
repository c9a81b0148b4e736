package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lime-explainer/internal/cfg"
	"lime-explainer/internal/common"
	"lime-explainer/internal/lime"
	"lime-explainer/internal/metrics"
	"lime-explainer/internal/model"
	"lime-explainer/internal/provider"
	"lime-explainer/internal/storage"
)

// result is what the command prints.
type result struct {
	ID         string                `json:"id"`
	Model      string                `json:"model"`
	Saliencies model.Saliencies      `json:"saliencies"`
	Stability  *lime.StabilityReport `json:"stability,omitempty"`
	Impact     map[string]float64    `json:"impact,omitempty"`
}

func main() {
	var (
		modelName      = flag.String("model", "", "Model name (overrides MODEL_NAME)")
		predictionPath = flag.String("prediction", "", "Path to a JSON prediction {input, output}")
		id             = flag.String("id", "", "Archive id for the explanation (random when empty)")
		outputPath     = flag.String("out", "", "Write the result to this file instead of stdout")
		stability      = flag.Bool("stability", false, "Validate explanation stability")
		impactK        = flag.Int("impact", 0, "Measure the impact of the top k features per output")
		logLevel       = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	)
	flag.Parse()

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(settings.LogLevel, *logLevel)

	if *modelName != "" {
		settings.ModelName = *modelName
	}
	if settings.ModelName == "" {
		log.Fatal().Msg("Model name is required")
	}
	if *predictionPath == "" {
		log.Fatal().Msg("Prediction file is required")
	}

	prediction, err := readPrediction(*predictionPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *predictionPath).Msg("Failed to read prediction")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	mw := metrics.NewWrapper(metrics.NewWithRegistry(registry))

	store, err := storage.New(settings.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", settings.DataPath).Msg("Failed to open storage")
	}
	defer store.Close()

	p, closeProvider := newProvider(settings)
	defer closeProvider()

	res, err := run(ctx, settings, store, p, mw, prediction, *id, *stability, *impactK)
	writeMetrics(settings.MetricsFile, registry)
	if err != nil {
		if errors.Is(err, lime.ErrUnstable) {
			log.Error().Err(err).Msg("Explanation is unstable")
			writeResult(*outputPath, res)
			closeProvider()
			store.Close()
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("Explanation failed")
	}
	writeResult(*outputPath, res)
}

func run(ctx context.Context, settings cfg.Settings, store *storage.Store, p model.PredictionProvider, mw *metrics.MetricsWrapper,
	prediction model.Prediction, id string, stability bool, impactK int) (result, error) {
	lc := settings.LimeConfig()
	distributions, err := store.Distributions(settings.ModelName, prediction.Input, lc.PerturbationContext)
	if err != nil {
		return result{}, fmt.Errorf("load distributions: %w", err)
	}

	explainer, err := lime.NewExplainer(lc, lime.WithMetrics(mw), lime.WithDistributions(distributions))
	if err != nil {
		return result{}, err
	}

	saliencies, err := explainer.Explain(ctx, prediction, p)
	if err != nil {
		return result{}, err
	}
	res := result{Model: settings.ModelName, Saliencies: saliencies}

	if impactK > 0 {
		res.Impact = make(map[string]float64, len(saliencies))
		for name, s := range saliencies {
			score, err := lime.ImpactScore(ctx, p, prediction, s.TopFeatures(impactK), settings.ProviderTimeout)
			if err != nil {
				return res, fmt.Errorf("impact of %s: %w", name, err)
			}
			res.Impact[name] = score
		}
	}

	res.ID, err = store.SaveSaliencies(settings.ModelName, id, saliencies)
	if err != nil {
		return res, fmt.Errorf("archive saliencies: %w", err)
	}
	log.Info().Str("model", settings.ModelName).Str("id", res.ID).Int("outputs", len(saliencies)).Msg("Explanation archived")

	if stability {
		report, err := settings.Stability.Validate(ctx, explainer, prediction, p)
		res.Stability = &report
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func newProvider(settings cfg.Settings) (model.PredictionProvider, func()) {
	switch settings.Transport {
	case common.TransportProcess:
		return provider.NewProcess(settings.ModelURL, settings.ModelArgs...), func() {}
	case common.TransportWebSocket:
		s := provider.NewStream(settings.ModelURL)
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close model stream")
			}
		}
	default:
		return provider.NewHTTP(settings.ModelURL, settings.ProviderTimeout), func() {}
	}
}

func readPrediction(path string) (model.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Prediction{}, err
	}
	var p model.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	return p, nil
}

func writeResult(path string, res result) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
	if path == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write result")
	}
}

func writeMetrics(path string, registry *prometheus.Registry) {
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
	}
}

func setupLogging(configured, override string) {
	if override != "" {
		configured = override
	}
	level, err := zerolog.ParseLevel(configured)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
