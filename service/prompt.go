package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tieubaoca/research-assistant/types"
)

const (
	documentHeader       = "Document Content:\n%s\n\n"
	queryInstruction     = "User Question: %s"
	summaryInstruction   = "Summarize the document in ≤150 words. Use sections like Introduction, Key Points, Conclusion if applicable."
	challengeInstruction = "Challenge Me: Generate 3 logic/comprehension questions from the document."
	evaluationPreamble   = "User answered the Challenge Me questions as follows:\n"
	evaluationRequest    = "Please evaluate each response, justify correctness, and reference the document."
)

var ErrInvalidMode = errors.New("invalid mode")

// Prompt is a composed model input together with the mode it was built for.
// Mode differs from the requested one when a query had no question.
type Prompt struct {
	Mode types.Mode
	Text string
}

// ComposePrompt builds the model input for mode. A blank question in query
// mode yields the summary prompt.
func ComposePrompt(doc string, mode types.Mode, question string) (Prompt, error) {
	switch mode {
	case types.ModeQuery:
		if strings.TrimSpace(question) == "" {
			return Prompt{Mode: types.ModeSummarize, Text: summaryPrompt(doc)}, nil
		}
		return Prompt{Mode: mode, Text: fmt.Sprintf(documentHeader+queryInstruction, doc, question)}, nil
	case types.ModeSummarize:
		return Prompt{Mode: mode, Text: summaryPrompt(doc)}, nil
	case types.ModeChallenge:
		return Prompt{Mode: mode, Text: fmt.Sprintf(documentHeader, doc) + challengeInstruction}, nil
	case types.ModeEvaluate:
		return Prompt{}, fmt.Errorf("%w: %q needs answers", ErrInvalidMode, mode)
	}
	return Prompt{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}

// ComposeEvaluation asks the model to grade the user's Challenge Me answers.
func ComposeEvaluation(doc string, answers types.Answers) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, documentHeader, doc)
	b.WriteString(evaluationPreamble)
	for i, a := range answers {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, a)
	}
	b.WriteString("\n")
	b.WriteString(evaluationRequest)
	return Prompt{Mode: types.ModeEvaluate, Text: b.String()}
}

func summaryPrompt(doc string) string {
	return fmt.Sprintf(documentHeader, doc) + summaryInstruction
}
