// Package retrieval runs the two-stage LLM pipeline: the LLM proposes file
// patterns, turns them into a TOC filter, and answers from the matched records.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/llm"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/prompts"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/toc"
)

const tracerName = "github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/retrieval"

// Defaults for Config fields left at zero.
const (
	DefaultContextSummaryLimit = 10
	DefaultPreviewLimit        = 3
	DefaultMaxResults          = 50
)

const (
	fallbackNickname = "the codebase"
	fallbackProduct  = "the product"
)

// Config holds the truncation limits of a run.
type Config struct {
	ContextSummaryLimit int
	PreviewLimit        int
	MaxResults          int
	// DefaultModel is used when a request carries no model id.
	DefaultModel string
}

func (c Config) withDefaults() Config {
	if c.ContextSummaryLimit <= 0 {
		c.ContextSummaryLimit = DefaultContextSummaryLimit
	}
	if c.PreviewLimit <= 0 {
		c.PreviewLimit = DefaultPreviewLimit
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	return c
}

// Request is one question to answer.
type Request struct {
	Question   string `json:"question"`
	ModelID    string `json:"model_id"`
	MaxResults int    `json:"max_context_docs"`
	Debug      bool   `json:"debug"`
}

// Response is the outcome of a completed run. Trace is set only for debug requests.
type Response struct {
	Question     string           `json:"question"`
	Patterns     []any            `json:"patterns"`
	Filter       map[string]any   `json:"filter"`
	MatchedCount int              `json:"matched_count"`
	Preview      []feature.Record `json:"preview"`
	Answer       string           `json:"answer"`
	Trace        []TraceEntry     `json:"trace,omitempty"`
}

// Orchestrator drives runs against an LLM and a TOC store. It holds no
// per-run state and is safe for concurrent use.
type Orchestrator struct {
	llm     llm.TextCompleter
	store   toc.Store
	prompts *prompts.Library
	cfg     Config
	tracer  trace.Tracer
}

// New creates an Orchestrator. A nil library uses the embedded prompts.
func New(completer llm.TextCompleter, store toc.Store, lib *prompts.Library, cfg Config) *Orchestrator {
	if lib == nil {
		lib = prompts.Default()
	}
	return &Orchestrator{
		llm:     completer,
		store:   store,
		prompts: lib,
		cfg:     cfg.withDefaults(),
		tracer:  otel.Tracer(tracerName),
	}
}

// run is the state of a single orchestration.
type run struct {
	id    string
	req   Request
	state State
	trace []TraceEntry
	log   *slog.Logger
}

func (r *run) advance(to State) {
	r.log.Debug("retrieval transition", "from", r.state, "to", to)
	r.state = to
}

func (r *run) fail(to State, code apperr.Code, msg string, cause error) *StageError {
	from := r.state
	r.log.Warn("retrieval failed", "from", from, "to", to, "code", code, "error", cause)
	r.state = StateFailed

	se := &StageError{From: from, To: to, Code: code, Trace: r.trace}
	se.err = apperr.New(code, msg, cause)
	return se
}

// details attaches the diagnostic payload once Raw and Filter are set.
func (r *run) details(se *StageError) *StageError {
	d := StageDetails{RunID: r.id, From: se.From, To: se.To, Raw: se.Raw, Filter: se.Filter}
	if r.req.Debug {
		d.Trace = se.Trace
	}
	se.err.WithDetails(d)
	return se
}

// Run answers one question. Failures are *StageError values naming the
// transition that failed, except for request validation errors.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, apperr.Newf(apperr.InvalidArgument, "question is required")
	}
	if req.MaxResults < 0 {
		return nil, apperr.Newf(apperr.InvalidArgument, "max_context_docs must not be negative, got %d", req.MaxResults)
	}
	if req.MaxResults == 0 {
		req.MaxResults = o.cfg.MaxResults
	}
	if req.ModelID == "" {
		req.ModelID = o.cfg.DefaultModel
	}

	r := &run{id: uuid.NewString(), req: req, state: StateStart}
	r.log = slog.With("run_id", r.id)

	ctx, span := o.tracer.Start(ctx, "retrieval.Run", trace.WithAttributes(
		attribute.String("sherpa.run_id", r.id),
		attribute.String("gen_ai.request.model", req.ModelID),
		attribute.Int("sherpa.max_results", req.MaxResults),
	))
	defer span.End()

	resp, err := o.run(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Int("sherpa.matched_count", resp.MatchedCount))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (o *Orchestrator) run(ctx context.Context, r *run) (*Response, error) {
	question := r.req.Question
	mission := o.prompts.Text(prompts.MissionPrefix)

	// Stage 1: patterns.
	patternsPrompt := mission + "\n\n" +
		o.prompts.Text(prompts.PatternsRequest) + "\n\n" +
		"User Question: " + question + "\n" +
		"Return only a JSON array."
	patternsRaw, err := o.complete(ctx, r, StatePatternsRequested, patternsPrompt)
	if err != nil {
		return nil, err
	}
	patterns, err := ParseArray(patternsRaw)
	if err != nil {
		se := r.fail(StatePatternsParsed, apperr.LLMParseFailure, "failed to parse patterns JSON", err)
		se.Raw = patternsRaw
		return nil, r.details(se)
	}
	r.advance(StatePatternsParsed)

	// Stage 2: filter.
	patternsJSON, err := json.Marshal(patterns)
	if err != nil {
		return nil, fmt.Errorf("encoding patterns: %w", err)
	}
	filterPrompt := mission + "\n\n" +
		o.prompts.Text(prompts.SchemaStructure) + "\n\n" +
		"User Question: " + question + "\n" +
		"LLM File Patterns/Globs: " + string(patternsJSON) + "\n\n" +
		"Return only a valid JSON filter object."
	filterRaw, err := o.complete(ctx, r, StateFilterRequested, filterPrompt)
	if err != nil {
		return nil, err
	}
	filterObj, err := ParseObject(filterRaw)
	if err != nil {
		se := r.fail(StateFilterParsed, apperr.LLMParseFailure, "failed to parse filter JSON", err)
		se.Raw = filterRaw
		return nil, r.details(se)
	}
	filter, err := toc.ParseFilter(filterObj)
	if err != nil {
		se := r.fail(StateFilterParsed, apperr.LLMParseFailure, "filter is not a valid TOC filter", err)
		se.Raw = filterRaw
		se.Filter = filterObj
		return nil, r.details(se)
	}
	if len(filter.Ignored) > 0 {
		r.log.Debug("filter keys ignored", "keys", filter.Ignored)
	}
	r.advance(StateFilterParsed)

	// Stage 3: context query.
	records, err := o.query(ctx, filter, r.req.MaxResults)
	if err != nil {
		se := r.fail(StateContextQueried, apperr.CodeOf(err), "querying table of contents", err)
		se.Filter = filterObj
		return nil, r.details(se)
	}
	r.advance(StateContextQueried)

	// Stage 4: answer.
	indented, err := json.MarshalIndent(patterns, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding patterns: %w", err)
	}
	answerPrompt, err := o.prompts.RenderAnswer(prompts.AnswerData{
		CodebaseNickname: resolveName("codebase_nickname", filterRaw, filterObj, fallbackNickname),
		ProductName:      resolveName("product_name", filterRaw, filterObj, fallbackProduct),
		Question:         question,
		PatternsJSON:     string(indented),
		ContextSummary:   contextSummary(records, o.cfg.ContextSummaryLimit),
	})
	if err != nil {
		return nil, r.details(r.fail(StateAnswerRequested, apperr.Internal, "building answer prompt", err))
	}
	answer, err := o.complete(ctx, r, StateAnswerRequested, answerPrompt)
	if err != nil {
		return nil, err
	}
	r.advance(StateDone)

	resp := &Response{
		Question:     question,
		Patterns:     patterns,
		Filter:       filterObj,
		MatchedCount: len(records),
		Preview:      preview(records, o.cfg.PreviewLimit),
		Answer:       answer,
	}
	if r.req.Debug {
		resp.Trace = r.trace
	}
	r.log.Info("retrieval complete", "matched", len(records), "llm_calls", len(r.trace))
	return resp, nil
}

// complete sends prompt and moves the run to stage on success. Every
// attempted call is recorded in the trace.
func (o *Orchestrator) complete(ctx context.Context, r *run, stage State, prompt string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "llm."+strings.ToLower(string(stage)), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	out, err := o.llm.Complete(ctx, prompt, r.req.ModelID)
	r.trace = append(r.trace, TraceEntry{Stage: stage, Prompt: prompt, Response: out})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		code := apperr.CodeOf(err)
		if code == apperr.Internal {
			code = apperr.UpstreamFailure
		}
		return "", r.details(r.fail(stage, code, "llm completion failed", err))
	}
	span.SetAttributes(attribute.Int("sherpa.response_chars", len(out)))
	r.advance(stage)
	return out, nil
}

func (o *Orchestrator) query(ctx context.Context, f toc.Filter, limit int) ([]feature.Record, error) {
	ctx, span := o.tracer.Start(ctx, "toc.Query", trace.WithAttributes(attribute.Int("sherpa.limit", limit)))
	defer span.End()

	records, err := o.store.Query(ctx, f, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("sherpa.matched_count", len(records)))
	return records, nil
}

// resolveName looks key up in the raw filter response when it is itself a
// JSON object, then in the parsed filter, then falls back.
func resolveName(key, raw string, filter map[string]any, fallback string) string {
	var direct map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &direct); err == nil {
		if s, ok := direct[key].(string); ok && s != "" {
			return s
		}
	}
	if s, ok := filter[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// contextSummary lists the first limit records, one "- <path>" line each.
func contextSummary(records []feature.Record, limit int) string {
	var sb strings.Builder
	for i, rec := range records {
		if i == limit {
			break
		}
		line := rec.Path
		if line == "" {
			line = rec.SourceArtifact
		}
		sb.WriteString("- " + line + "\n")
	}
	return strings.TrimSpace(sb.String())
}

func preview(records []feature.Record, limit int) []feature.Record {
	if len(records) > limit {
		records = records[:limit]
	}
	out := make([]feature.Record, len(records))
	copy(out, records)
	return out
}
