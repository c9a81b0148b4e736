package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lime-explainer/internal/model"
)

const streamReadLimit = 16 << 20

// Stream sends batches over a persistent websocket. Each request carries an
// id and the matching response is awaited; unrelated frames are skipped.
// Calls are serialized on the single connection, which is redialled after
// any transport error.
type Stream struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewStream(url string) *Stream {
	return &Stream{url: url}
}

func (s *Stream) Predict(ctx context.Context, inputs []model.PredictionInput) ([]model.PredictionOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)
	// a cancelled ctx unblocks the pending read
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer func() {
		// a callback already running may still move the deadline, so the
		// connection is not reused
		if !stop() {
			s.reset()
		}
	}()

	id := uuid.NewString()
	if err := conn.WriteJSON(PredictRequest{ID: id, Inputs: inputs}); err != nil {
		s.reset()
		return nil, fmt.Errorf("send batch: %w", s.cause(ctx, err))
	}

	for {
		var resp PredictResponse
		if err := conn.ReadJSON(&resp); err != nil {
			s.reset()
			return nil, fmt.Errorf("read response: %w", s.cause(ctx, err))
		}
		if resp.ID != id {
			log.Debug().Str("want", id).Str("got", resp.ID).Msg("Skipping response for another request")
			continue
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("model server error: %s", resp.Error)
		}
		return resp.Outputs, nil
	}
}

// Close closes the connection if one is open.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	s.conn = nil
	return err
}

func (s *Stream) connect(ctx context.Context) (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	log.Debug().Str("url", s.url).Msg("Establishing WebSocket connection")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	conn.SetReadLimit(streamReadLimit)
	s.conn = conn
	return conn, nil
}

func (s *Stream) reset() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// cause reports ctx's error in place of the deadline error it provoked.
func (s *Stream) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}
