package types

import (
	"fmt"
	"strings"
)

// Mode selects which instruction the prompt composer appends to a document.
type Mode string

const (
	ModeQuery     Mode = "query"
	ModeSummarize Mode = "summarize"
	ModeChallenge Mode = "challenge"
	ModeEvaluate  Mode = "evaluate"
)

// Label returns the name shown to users.
func (m Mode) Label() string {
	switch m {
	case ModeQuery:
		return "Query"
	case ModeSummarize:
		return "Just Summarize"
	case ModeChallenge:
		return "Challenge Me"
	case ModeEvaluate:
		return "Evaluation"
	default:
		return string(m)
	}
}

// Modes lists the modes a user can pick directly.
var Modes = []Mode{ModeQuery, ModeSummarize, ModeChallenge}

// ParseMode accepts both the short identifiers and the display labels.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "query", "q", "1":
		return ModeQuery, nil
	case "summarize", "just summarize", "summary", "s", "2":
		return ModeSummarize, nil
	case "challenge", "challenge me", "c", "3":
		return ModeChallenge, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// QuizQuestions is the number of questions Challenge Me asks for.
const QuizQuestions = 3

// Answers holds the user's replies to the Challenge Me questions.
type Answers [QuizQuestions]string

// ResearchResponse is the schema the agent is asked to answer in.
type ResearchResponse struct {
	Topic     string   `json:"topic" description:"Topic of the document or question"`
	Summary   string   `json:"summary" description:"The answer, summary, questions or evaluation"`
	Sources   []string `json:"sources" description:"Sources consulted, document sections or URLs"`
	ToolsUsed []string `json:"tools_used" description:"Names of the tools that were called"`
}

// ResearchResult is what presentation layers render for one Run.
type ResearchResult struct {
	Mode          Mode              `json:"mode"`
	EffectiveMode Mode              `json:"effective_mode"`
	Output        string            `json:"output"`
	HTML          string            `json:"html,omitempty"`
	Structured    *ResearchResponse `json:"structured,omitempty"`
	ParseError    string            `json:"parse_error,omitempty"`
}
