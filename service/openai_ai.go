package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
)

// OpenAIService talks to the OpenAI API or any compatible server such as
// LM Studio, selected by baseURL.
type OpenAIService struct {
	client *openai.Client
	model  string
	log    logging.Logger

	mu       sync.RWMutex
	tools    []openai.Tool
	handlers map[string]types.FunctionHandler
}

func NewOpenAIService(baseURL, apiKey, model string, log logging.Logger) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIService{
		client:   openai.NewClientWithConfig(config),
		model:    model,
		log:      log,
		handlers: make(map[string]types.FunctionHandler),
	}
}

func (s *OpenAIService) Close() error {
	return nil
}

func (s *OpenAIService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *OpenAIService) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		handler(resp.Choices[0].Delta.Content)
	}
}

func (s *OpenAIService) RegisterTool(spec types.ToolSpec) {
	props := make(map[string]jsonschema.Definition, len(spec.Params))
	required := make([]string, 0, len(spec.Params))
	for name, desc := range spec.Params {
		props[name] = jsonschema.Definition{Type: jsonschema.String, Description: desc}
		required = append(required, name)
	}
	sort.Strings(required)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: props,
				Required:   required,
			},
		},
	})
	s.handlers[spec.Name] = spec.Handler
}

func (s *OpenAIService) ChatWithTools(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	s.mu.RLock()
	tools := s.tools
	s.mu.RUnlock()

	for round := 0; ; round++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    s.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", ErrNoResponse
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return strings.TrimSpace(msg.Content), nil
		}
		if round == maxToolRounds {
			return "", ErrToolRounds
		}
		messages = append(messages, msg)
		results, err := s.callTools(ctx, msg.ToolCalls)
		if err != nil {
			return "", err
		}
		messages = append(messages, results...)
	}
}

func (s *OpenAIService) callTools(ctx context.Context, calls []openai.ToolCall) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(calls))
	for _, call := range calls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		s.mu.RLock()
		handler, ok := s.handlers[call.Function.Name]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Function.Name)
		}
		s.log.Debug(ctx, "calling tool", "tool", call.Function.Name)
		result, err := handler(ctx, []byte(call.Function.Arguments))
		if err != nil {
			return nil, fmt.Errorf("tool %s failed: %w", call.Function.Name, err)
		}
		content, err := toolResultString(result)
		if err != nil {
			return nil, err
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    content,
			Name:       call.Function.Name,
			ToolCallID: call.ID,
		})
	}
	return out, nil
}
