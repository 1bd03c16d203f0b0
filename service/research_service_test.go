package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/types"
)

type fakeGenerator struct {
	reply   string
	chunks  []string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeGenerator) GenerateStream(_ context.Context, prompt string, handler types.StreamHandler) error {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		handler(c)
	}
	return nil
}

func TestResearchService_RunQuery(t *testing.T) {
	gen := &fakeGenerator{reply: "**Answer**"}
	s := NewResearchService(gen, nil, logging.Nop())

	res, err := s.Run(context.Background(), "DOC", types.ModeQuery, "What is X?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Document Content:\nDOC\n\nUser Question: What is X?"}, gen.prompts)
	assert.Equal(t, types.ModeQuery, res.EffectiveMode)
	assert.Equal(t, "**Answer**", res.Output)
	assert.Contains(t, res.HTML, "<strong>Answer</strong>")
}

func TestResearchService_EmptyQueryRecordsSummarize(t *testing.T) {
	gen := &fakeGenerator{reply: "summary"}
	res, err := NewResearchService(gen, nil, logging.Nop()).Run(context.Background(), "DOC", types.ModeQuery, " ")
	require.NoError(t, err)
	assert.Equal(t, types.ModeQuery, res.Mode)
	assert.Equal(t, types.ModeSummarize, res.EffectiveMode)
	assert.Contains(t, gen.prompts[0], "Summarize the document")
}

func TestResearchService_Evaluate(t *testing.T) {
	gen := &fakeGenerator{reply: "Q1 correct"}
	res, err := NewResearchService(gen, nil, logging.Nop()).Do(context.Background(), "DOC", RunRequest{
		Mode:    types.ModeEvaluate,
		Answers: types.Answers{"a", "b", "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.ModeEvaluate, res.EffectiveMode)
	assert.Contains(t, gen.prompts[0], "Q1: a\nQ2: b\nQ3: c\n")
}

func TestResearchService_ModelErrorIsWrapped(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("503")}
	_, err := NewResearchService(gen, nil, logging.Nop()).Run(context.Background(), "DOC", types.ModeSummarize, "")
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestResearchService_InvalidMode(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := NewResearchService(gen, nil, logging.Nop()).Run(context.Background(), "DOC", types.Mode("x"), "")
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Empty(t, gen.prompts)
}

func TestResearchService_AgentStructured(t *testing.T) {
	chatter := &fakeChatter{reply: `{"topic":"T","summary":"S","sources":["doc"],"tools_used":["wikipedia"]}`}
	agent, err := NewAgent(chatter, nil, logging.Nop())
	require.NoError(t, err)

	res, err := NewResearchService(&fakeGenerator{}, agent, logging.Nop()).Run(context.Background(), "DOC", types.ModeChallenge, "")
	require.NoError(t, err)
	require.NotNil(t, res.Structured)
	assert.Equal(t, "S", res.Output)
	assert.Empty(t, res.ParseError)
	assert.Contains(t, chatter.prompts[0], "Challenge Me: Generate 3")
}

func TestResearchService_AgentParseFailureReturnsRaw(t *testing.T) {
	chatter := &fakeChatter{reply: "plain prose answer"}
	agent, err := NewAgent(chatter, nil, logging.Nop())
	require.NoError(t, err)

	res, err := NewResearchService(&fakeGenerator{}, agent, logging.Nop()).Run(context.Background(), "DOC", types.ModeSummarize, "")
	require.NoError(t, err)
	assert.Nil(t, res.Structured)
	assert.Equal(t, "plain prose answer", res.Output)
	assert.NotEmpty(t, res.ParseError)
}

func TestResearchService_StreamChunks(t *testing.T) {
	gen := &fakeGenerator{chunks: []string{"Hel", "lo "}}
	var got []string
	res, err := NewResearchService(gen, nil, logging.Nop()).Stream(context.Background(), "DOC",
		RunRequest{Mode: types.ModeSummarize}, func(c string) { got = append(got, c) })
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo "}, got)
	assert.Equal(t, "Hello", res.Output)
}

func TestResearchService_StreamFallsBackToSingleChunk(t *testing.T) {
	chatter := &fakeChatter{reply: "raw"}
	agent, err := NewAgent(chatter, nil, logging.Nop())
	require.NoError(t, err)

	var got []string
	_, err = NewResearchService(&fakeGenerator{}, agent, logging.Nop()).Stream(context.Background(), "DOC",
		RunRequest{Mode: types.ModeQuery, Question: "q"}, func(c string) { got = append(got, c) })
	require.NoError(t, err)
	assert.Equal(t, []string{"raw"}, got)
}
