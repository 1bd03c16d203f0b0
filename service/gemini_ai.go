package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiService struct {
	client    *genai.Client
	modelName string
	log       logging.Logger

	mu       sync.RWMutex
	tools    []*genai.Tool
	handlers map[string]types.FunctionHandler
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, log logging.Logger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("no API key provided")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		log:       log,
		handlers:  make(map[string]types.FunctionHandler),
	}, nil
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

func (s *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	model := s.client.GenerativeModel(s.modelName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", ErrNoResponse
	}
	return strings.TrimSpace(geminiText(resp)), nil
}

func (s *GeminiService) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	model := s.client.GenerativeModel(s.modelName)
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if text := geminiText(resp); text != "" {
			handler(text)
		}
	}
}

// RegisterTool adds a function declaration with string parameters, all required.
func (s *GeminiService) RegisterTool(spec types.ToolSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{geminiDeclaration(spec)},
	})
	s.handlers[spec.Name] = spec.Handler
}

func (s *GeminiService) ChatWithTools(ctx context.Context, system, prompt string) (string, error) {
	s.mu.RLock()
	model := s.client.GenerativeModel(s.modelName)
	model.Tools = s.tools
	s.mu.RUnlock()
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	chat := model.StartChat()
	resp, err := chat.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	for round := 0; ; round++ {
		if len(resp.Candidates) == 0 {
			return "", ErrNoResponse
		}
		calls := resp.Candidates[0].FunctionCalls()
		if len(calls) == 0 {
			break
		}
		if round == maxToolRounds {
			return "", ErrToolRounds
		}
		parts, err := s.callTools(ctx, calls)
		if err != nil {
			return "", err
		}
		if resp, err = chat.SendMessage(ctx, parts...); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(geminiText(resp)), nil
}

func (s *GeminiService) callTools(ctx context.Context, calls []genai.FunctionCall) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(calls))
	for _, call := range calls {
		s.mu.RLock()
		handler, ok := s.handlers[call.Name]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
		}
		args, err := json.Marshal(call.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal function args: %w", err)
		}
		s.log.Debug(ctx, "calling tool", "tool", call.Name)
		result, err := handler(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("tool %s failed: %w", call.Name, err)
		}
		parts = append(parts, genai.FunctionResponse{
			Name:     call.Name,
			Response: map[string]any{"result": result},
		})
	}
	return parts, nil
}

func geminiDeclaration(spec types.ToolSpec) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(spec.Params))
	required := make([]string, 0, len(spec.Params))
	for name, desc := range spec.Params {
		props[name] = &genai.Schema{Type: genai.TypeString, Description: desc}
		required = append(required, name)
	}
	sort.Strings(required)
	return &genai.FunctionDeclaration{
		Name:        spec.Name,
		Description: spec.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   required,
		},
	}
}

func geminiText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}
