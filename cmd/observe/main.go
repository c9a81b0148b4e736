package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lime-explainer/internal/cfg"
	"lime-explainer/internal/metrics"
	"lime-explainer/internal/model"
	"lime-explainer/internal/storage"
)

const maxLineSize = 4 << 20

func main() {
	var (
		modelName = flag.String("model", "", "Model name (overrides MODEL_NAME)")
		inputPath = flag.String("file", "-", "JSON lines of prediction inputs, - for stdin")
		logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	)
	flag.Parse()

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	level := settings.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *modelName != "" {
		settings.ModelName = *modelName
	}
	if settings.ModelName == "" {
		log.Fatal().Msg("Model name is required")
	}

	var in io.Reader = os.Stdin
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *inputPath).Msg("Failed to open input file")
		}
		defer f.Close()
		in = f
	}

	store, err := storage.New(settings.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", settings.DataPath).Msg("Failed to open storage")
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	mw := metrics.NewWrapper(metrics.NewWithRegistry(registry))

	recorded, skipped := record(store, settings.ModelName, in, mw)
	log.Info().
		Str("model", settings.ModelName).
		Int("recorded", recorded).
		Int("skipped", skipped).
		Msg("Observations recorded")

	if settings.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(settings.MetricsFile, registry); err != nil {
			log.Warn().Err(err).Str("path", settings.MetricsFile).Msg("Failed to write metrics textfile")
		}
	}
}

// record stores every well-formed line of r; malformed lines are logged
// and skipped.
func record(store *storage.Store, modelName string, r io.Reader, mw *metrics.MetricsWrapper) (recorded, skipped int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var input model.PredictionInput
		if err := json.Unmarshal(scanner.Bytes(), &input); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping malformed input")
			skipped++
			continue
		}
		if err := store.RecordInput(modelName, input); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("Skipping unrecordable input")
			skipped++
			continue
		}
		mw.ObservationsRecordedInc()
		recorded++
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Int("line", line).Msg("Failed to read input")
	}
	return recorded, skipped
}
