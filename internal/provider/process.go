package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lime-explainer/internal/model"
)

// Process runs an external model command once per batch. The command reads
// a PredictRequest as JSON on stdin and writes a PredictResponse on stdout.
type Process struct {
	path string
	args []string
}

func NewProcess(path string, args ...string) *Process {
	return &Process{path: path, args: args}
}

func (p *Process) Predict(ctx context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
	req, err := json.Marshal(PredictRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, p.path, p.args...)
	cmd.Stdin = bytes.NewReader(req)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Error().
			Err(err).
			Str("path", p.path).
			Str("stderr", stderr.String()).
			Int("batch", len(inputs)).
			Bool("context_cancelled", ctx.Err() != nil).
			Msg("Model process failed")
		if ctx.Err() != nil {
			return nil, errors.Join(ctx.Err(), err)
		}
		return nil, fmt.Errorf("model process failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var resp PredictResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, stdout: %s", err, strings.TrimSpace(stdout.String()))
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("model process error: %s", resp.Error)
	}

	log.Debug().
		Str("path", p.path).
		Int("batch", len(inputs)).
		Dur("elapsed", time.Since(start)).
		Msg("Model process answered")
	return resp.Outputs, nil
}
