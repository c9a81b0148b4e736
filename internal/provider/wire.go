// Package provider implements model.PredictionProvider for in-process
// functions, external model commands, and models reached over HTTP or a
// websocket, and serves any provider over the same wire protocol.
package provider

import "lime-explainer/internal/model"

// PredictRequest is the body of a batch prediction call.
type PredictRequest struct {
	ID     string                  `json:"id,omitempty"`
	Inputs []model.PredictionInput `json:"inputs"`
}

// PredictResponse carries one output per request input, index-aligned.
type PredictResponse struct {
	ID      string                   `json:"id,omitempty"`
	Outputs []model.PredictionOutput `json:"outputs"`
	Error   string                   `json:"error,omitempty"`
}
