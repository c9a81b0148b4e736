package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"lime-explainer/internal/model"
)

// HTTP calls a model server's /predict endpoint.
type HTTP struct {
	base string
	rest *resty.Client
}

func NewHTTP(base string, timeout time.Duration) *HTTP {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	r.SetHeader("Content-Type", "application/json")
	return &HTTP{base: strings.TrimRight(base, "/"), rest: r}
}

func (h *HTTP) Predict(ctx context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
	result := &PredictResponse{}
	resp, err := h.rest.R().
		SetContext(ctx).
		SetBody(PredictRequest{Inputs: inputs}).
		SetResult(result).
		Post(h.base + "/predict")
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("model server error: status %d, body: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if result.Error != "" {
		return nil, fmt.Errorf("model server error: %s", result.Error)
	}
	return result.Outputs, nil
}
