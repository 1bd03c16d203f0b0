package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
)

const (
	wsReadLimit   = 16 << 20
	wsIdleTimeout = 5 * time.Minute
)

// WebSocketService streams research output to the client chunk by chunk.
type WebSocketService struct {
	research *ResearchService
	docs     *DocumentService
	log      logging.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketService allows origins accepted by checkOrigin; nil allows all.
func NewWebSocketService(research *ResearchService, docs *DocumentService, checkOrigin func(r *http.Request) bool, log logging.Logger) *WebSocketService {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebSocketService{
		research: research,
		docs:     docs,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

func (s *WebSocketService) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn(ctx, "websocket read error", "error", err)
			}
			return
		}

		var req struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(p, &req); err != nil {
			s.writeError(ctx, conn, "Error processing message")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketPing:
			s.write(ctx, conn, types.WebSocketResponse{Type: types.TypeWebsocketPong})
		case types.TypeWebsocketRun:
			var payload types.WebSocketRunPayload
			if err := json.Unmarshal(req.Payload, &payload); err != nil {
				s.writeError(ctx, conn, "Error processing message")
				continue
			}
			s.run(ctx, conn, payload)
		default:
			s.writeError(ctx, conn, "Invalid message type")
		}
	}
}

func (s *WebSocketService) run(ctx context.Context, conn *websocket.Conn, payload types.WebSocketRunPayload) {
	req, err := runRequestFromPayload(payload)
	if err != nil {
		s.writeError(ctx, conn, UserMessage(ErrInvalidMode))
		return
	}
	doc, err := s.docs.Load(ctx, payload.Filename, payload.Content)
	if err != nil {
		s.writeError(ctx, conn, UserMessage(err))
		return
	}

	res, err := s.research.Stream(ctx, doc.Text, req, func(chunk string) {
		s.write(ctx, conn, types.WebSocketResponse{
			Type:    types.TypeWebsocketChunk,
			Payload: types.WebSocketChunkResponse{Content: chunk},
		})
	})
	if err != nil {
		s.log.Error(ctx, "streamed run failed", "error", err)
		s.writeError(ctx, conn, UserMessage(err))
		return
	}
	s.write(ctx, conn, types.WebSocketResponse{
		Type:    types.TypeWebsocketDone,
		Payload: types.WebSocketDoneResponse{Result: res},
	})
}

func runRequestFromPayload(p types.WebSocketRunPayload) (RunRequest, error) {
	req := RunRequest{Mode: types.ModeQuery, Question: p.Question, Answers: p.Answers}
	switch m := strings.ToLower(strings.TrimSpace(p.Mode)); m {
	case "":
	case string(types.ModeEvaluate), "evaluation":
		req.Mode = types.ModeEvaluate
	default:
		mode, err := types.ParseMode(m)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	}
	return req, nil
}

// UserMessage is the text shown to the user for err.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMode):
		return "Choose a mode: Query, Just Summarize or Challenge Me."
	case errors.Is(err, ErrUnsupportedFormat):
		return "Unsupported file format: Please use PDF or TXT."
	case errors.Is(err, ErrEmptyDocument):
		return "No text found in document."
	case errors.Is(err, ErrGeneration):
		return "The model request failed, please try again."
	}
	return "Internal server error"
}

func (s *WebSocketService) write(ctx context.Context, conn *websocket.Conn, msg types.WebSocketResponse) {
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warn(ctx, "websocket write error", "error", err)
	}
}

func (s *WebSocketService) writeError(ctx context.Context, conn *websocket.Conn, message string) {
	s.write(ctx, conn, types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: types.WebSocketErrorResponse{Message: message},
	})
}
