package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
	"github.com/tieubaoca/research-assistant/utils"
)

// ErrGeneration wraps every failure coming back from the model provider.
var ErrGeneration = errors.New("model request failed")

// RunRequest is one research action on an already loaded document.
type RunRequest struct {
	Mode     types.Mode
	Question string
	Answers  types.Answers
}

// ResearchService composes prompts and sends them to the model, either as a
// raw completion or through the agent when one is configured.
type ResearchService struct {
	gen   Generator
	agent *Agent
	log   logging.Logger
}

// NewResearchService uses agent for every call when it is not nil.
func NewResearchService(gen Generator, agent *Agent, log logging.Logger) *ResearchService {
	return &ResearchService{gen: gen, agent: agent, log: log}
}

func (s *ResearchService) Run(ctx context.Context, doc string, mode types.Mode, question string) (*types.ResearchResult, error) {
	p, err := ComposePrompt(doc, mode, question)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, mode, p)
}

// Evaluate grades the answers to the Challenge Me questions.
func (s *ResearchService) Evaluate(ctx context.Context, doc string, answers types.Answers) (*types.ResearchResult, error) {
	return s.complete(ctx, types.ModeEvaluate, ComposeEvaluation(doc, answers))
}

// Do dispatches req to Run or Evaluate.
func (s *ResearchService) Do(ctx context.Context, doc string, req RunRequest) (*types.ResearchResult, error) {
	if req.Mode == types.ModeEvaluate {
		return s.Evaluate(ctx, doc, req.Answers)
	}
	return s.Run(ctx, doc, req.Mode, req.Question)
}

// Stream is Do with the output delivered to handler as it is produced. When
// the provider cannot stream, or the agent is in use, handler gets the whole
// output once.
func (s *ResearchService) Stream(ctx context.Context, doc string, req RunRequest, handler types.StreamHandler) (*types.ResearchResult, error) {
	var p Prompt
	if req.Mode == types.ModeEvaluate {
		p = ComposeEvaluation(doc, req.Answers)
	} else {
		var err error
		if p, err = ComposePrompt(doc, req.Mode, req.Question); err != nil {
			return nil, err
		}
	}

	sg, ok := s.gen.(StreamGenerator)
	if s.agent != nil || !ok {
		res, err := s.complete(ctx, req.Mode, p)
		if err != nil {
			return nil, err
		}
		handler(res.Output)
		return res, nil
	}

	var b strings.Builder
	err := sg.GenerateStream(ctx, p.Text, func(chunk string) {
		b.WriteString(chunk)
		handler(chunk)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	res := &types.ResearchResult{Mode: req.Mode, EffectiveMode: p.Mode, Output: strings.TrimSpace(b.String())}
	s.render(ctx, res)
	return res, nil
}

func (s *ResearchService) complete(ctx context.Context, requested types.Mode, p Prompt) (*types.ResearchResult, error) {
	res := &types.ResearchResult{Mode: requested, EffectiveMode: p.Mode}
	s.log.Info(ctx, "running research", "mode", string(requested), "effective_mode", string(p.Mode), "agent", s.agent != nil)

	if s.agent != nil {
		out, err := s.agent.Run(ctx, p.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		res.Output = out.Raw
		if out.ParseError != nil {
			res.ParseError = out.ParseError.Error()
		} else {
			res.Structured = out.Structured
			res.Output = out.Structured.Summary
		}
	} else {
		out, err := s.gen.Generate(ctx, p.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		res.Output = out
	}

	s.render(ctx, res)
	return res, nil
}

func (s *ResearchService) render(ctx context.Context, res *types.ResearchResult) {
	html, err := utils.RenderMarkdown(res.Output)
	if err != nil {
		s.log.Warn(ctx, "failed to render markdown", "error", err)
		return
	}
	res.HTML = html
}
