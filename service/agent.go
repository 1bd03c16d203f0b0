package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
)

const agentSystemTemplate = `You are a research assistant that helps the user study a document.
Answer the user's request using the document, and call the available tools when outside
information is needed or when the user asks to keep a copy of the research.
Wrap the output in this format and provide no other text:
%s`

var ErrNoJSONObject = errors.New("no JSON object found in model output")

// AgentResult is the raw model answer and, when it matched the schema, its
// parsed form. ParseError is set when parsing failed.
type AgentResult struct {
	Raw        string
	Structured *types.ResearchResponse
	ParseError error
}

// Agent asks a tool-capable model for a ResearchResponse.
type Agent struct {
	chatter ToolChatter
	schema  jsonschema.Definition
	system  string
	log     logging.Logger
}

func NewAgent(chatter ToolChatter, tools []types.ToolSpec, log logging.Logger) (*Agent, error) {
	schema, err := jsonschema.GenerateSchemaForType(types.ResearchResponse{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate response schema: %w", err)
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		chatter.RegisterTool(t)
	}
	return &Agent{
		chatter: chatter,
		schema:  *schema,
		system:  fmt.Sprintf(agentSystemTemplate, schemaJSON),
		log:     log,
	}, nil
}

// Run never fails because of malformed output; that is reported through
// AgentResult.ParseError instead.
func (a *Agent) Run(ctx context.Context, prompt string) (*AgentResult, error) {
	raw, err := a.chatter.ChatWithTools(ctx, a.system, prompt)
	if err != nil {
		return nil, err
	}
	res := &AgentResult{Raw: raw}
	parsed, err := a.Parse(raw)
	if err != nil {
		a.log.Warn(ctx, "structured output did not parse", "error", err)
		res.ParseError = err
		return res, nil
	}
	res.Structured = parsed
	return res, nil
}

// Parse extracts the first JSON object in raw and validates it against the
// ResearchResponse schema.
func (a *Agent) Parse(raw string) (*types.ResearchResponse, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var out types.ResearchResponse
	if err := jsonschema.VerifySchemaAndUnmarshal(a.schema, obj, &out); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}
	return &out, nil
}

func extractJSONObject(raw string) ([]byte, error) {
	s := stripCodeFence(raw)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, ErrNoJSONObject
	}
	var obj json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s[start:])).Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSONObject, err)
	}
	return obj, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string, e.g. "json"
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, "```")
}
