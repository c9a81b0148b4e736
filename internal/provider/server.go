package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lime-explainer/internal/model"
)

// Server exposes a PredictionProvider over HTTP (/predict) and websocket
// (/stream) using the same wire format the HTTP and Stream clients speak.
type Server struct {
	provider model.PredictionProvider
	timeout  time.Duration
	upgrader websocket.Upgrader
	server   *http.Server
}

func NewServer(provider model.PredictionProvider, addr string, timeout time.Duration) *Server {
	s := &Server{
		provider: provider,
		timeout:  timeout,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting model server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) predict(ctx context.Context, req PredictRequest) PredictResponse {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp := PredictResponse{ID: req.ID}
	outputs, err := s.provider.Predict(ctx, req.Inputs)
	if err != nil {
		log.Error().Err(err).Int("batch", len(req.Inputs)).Msg("Prediction failed")
		resp.Error = err.Error()
		return resp
	}
	if len(outputs) != len(req.Inputs) {
		resp.Error = fmt.Sprintf("model returned %d outputs for %d inputs", len(outputs), len(req.Inputs))
		return resp
	}
	resp.Outputs = outputs
	return resp
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Inputs) == 0 {
		http.Error(w, "inputs cannot be empty", http.StatusBadRequest)
		return
	}

	resp := s.predict(r.Context(), req)
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)

	for {
		var req PredictRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("Stream read ended")
			}
			return
		}
		if err := conn.WriteJSON(s.predict(r.Context(), req)); err != nil {
			log.Debug().Err(err).Msg("Stream write failed")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
