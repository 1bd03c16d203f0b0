package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tieubaoca/research-assistant/types"
)

// maxToolRounds bounds how many times a model may ask for tools before it
// has to answer.
const maxToolRounds = 8

var (
	ErrNoResponse  = errors.New("no response generated")
	ErrToolRounds  = errors.New("model kept calling tools without answering")
	ErrUnknownTool = errors.New("unknown tool")
)

// Generator sends one prompt and returns the trimmed completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamGenerator delivers the completion in chunks as they arrive.
type StreamGenerator interface {
	Generator
	GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error
}

// ToolChatter runs a system-instructed exchange in which the model may call
// registered tools before giving its final answer.
type ToolChatter interface {
	RegisterTool(spec types.ToolSpec)
	ChatWithTools(ctx context.Context, system, prompt string) (string, error)
}

// AIService is implemented by every provider client.
type AIService interface {
	StreamGenerator
	ToolChatter
	Close() error
}

// toolResultString turns a tool handler result into text for the model.
func toolResultString(result any) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(b), nil
}
