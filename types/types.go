package types

import (
	"context"
)

const (
	TypeWebsocketPing  = "ping"
	TypeWebsocketPong  = "pong"
	TypeWebsocketRun   = "run"
	TypeWebsocketChunk = "chunk"
	TypeWebsocketDone  = "done"
	TypeWebsocketError = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketRunPayload is a streamed run. The document travels inline, base64
// encoded, since nothing is stored between requests.
type WebSocketRunPayload struct {
	Filename string  `json:"filename"`
	Content  []byte  `json:"content"`
	Mode     string  `json:"mode"`
	Question string  `json:"question,omitempty"`
	Answers  Answers `json:"answers,omitempty"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketChunkResponse struct {
	Content string `json:"content"`
}

type WebSocketDoneResponse struct {
	Result *ResearchResult `json:"result"`
}

type WebSocketErrorResponse struct {
	Message string `json:"message"`
}

// FunctionHandler is a type for handling function calls
type FunctionHandler func(ctx context.Context, args []byte) (any, error)

// Handle stream responses
type StreamHandler func(response string)

// ToolSpec describes a tool the agent may call. Params maps each string
// argument name to its description; all of them are required.
type ToolSpec struct {
	Name        string
	Description string
	Params      map[string]string
	Handler     FunctionHandler
}
