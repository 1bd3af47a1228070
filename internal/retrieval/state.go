package retrieval

import (
	"fmt"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
)

// State is a step of an orchestration run.
type State string

const (
	StateStart             State = "START"
	StatePatternsRequested State = "PATTERNS_REQUESTED"
	StatePatternsParsed    State = "PATTERNS_PARSED"
	StateFilterRequested   State = "FILTER_REQUESTED"
	StateFilterParsed      State = "FILTER_PARSED"
	StateContextQueried    State = "CONTEXT_QUERIED"
	StateAnswerRequested   State = "ANSWER_REQUESTED"
	StateDone              State = "DONE"
	StateFailed            State = "FAILED"
)

// TraceEntry is one prompt sent to the LLM and the raw text it returned.
type TraceEntry struct {
	Stage    State  `json:"stage"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// StageError reports the transition a run failed on. Raw holds the
// unparsed LLM output when parsing failed; Filter holds the parsed filter
// when the store query failed.
type StageError struct {
	From   State
	To     State
	Code   apperr.Code
	Raw    string
	Filter map[string]any
	Trace  []TraceEntry
	err    *apperr.Error
}

// StageDetails is the error detail payload exposed over HTTP and MCP.
type StageDetails struct {
	RunID  string         `json:"run_id"`
	From   State          `json:"from"`
	To     State          `json:"to"`
	Raw    string         `json:"raw,omitempty"`
	Filter map[string]any `json:"filter,omitempty"`
	Trace  []TraceEntry   `json:"trace,omitempty"`
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s -> %s: %v", e.From, e.To, e.err)
}

// Unwrap exposes the coded error so apperr.CodeOf sees the stage's code.
func (e *StageError) Unwrap() error { return e.err }
