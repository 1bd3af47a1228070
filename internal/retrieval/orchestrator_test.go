package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/apperr"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/db"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/toc"
)

// scriptedLLM returns canned responses in call order and records prompts.
type scriptedLLM struct {
	responses []string
	errs      map[int]error
	prompts   []string
	models    []string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt, modelID string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	s.models = append(s.models, modelID)
	if err := s.errs[i]; err != nil {
		return "", err
	}
	if i >= len(s.responses) {
		return "", errors.New("unexpected llm call")
	}
	return s.responses[i], nil
}

func testRecords() []feature.Record {
	return []feature.Record{
		{Repo: "shop-web", Program: "shop", Bucket: "Controller", Path: "src/Controllers/OrderController.cs", MatchedGlob: "*controller.cs", SourceArtifact: "a.json", Lang: "csharp"},
		{Repo: "shop-web", Program: "shop", Bucket: "Repository", Path: "src/Data/OrderRepository.cs", MatchedGlob: "*repository.cs", SourceArtifact: "a.json", Lang: "csharp"},
		{Repo: "shop-api", Program: "shop", Bucket: "Controller", Path: "api/Controllers/CartController.cs", MatchedGlob: "*controller.cs", SourceArtifact: "b.json", Lang: "csharp"},
		{Repo: "shop-web", Program: "shop", Path: "README.md", SourceArtifact: "a.json", Lang: "markdown"},
	}
}

func newTestStore(t *testing.T) *toc.SQLiteStore {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	s := toc.NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	if _, err := s.Reindex(context.Background(), testRecords()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	return s
}

func happyLLM() *scriptedLLM {
	return &scriptedLLM{responses: []string{
		"Here are the globs:\n```json\n[\"*controller.cs\"]\n```",
		`{"bucket": "Controller", "codebase_nickname": "Storefront"}`,
		"Start with OrderController.cs.",
	}}
}

func TestRunCompletesAllStages(t *testing.T) {
	fake := happyLLM()
	o := New(fake, newTestStore(t), nil, Config{DefaultModel: "amazon.nova-lite-v1:0"})

	resp, err := o.Run(context.Background(), Request{Question: "Where are orders handled?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(fake.prompts) != 3 {
		t.Fatalf("llm calls = %d, want 3", len(fake.prompts))
	}
	for _, m := range fake.models {
		if m != "amazon.nova-lite-v1:0" {
			t.Errorf("model = %q, want default model", m)
		}
	}
	if !strings.Contains(fake.prompts[0], "User Question: Where are orders handled?\nReturn only a JSON array.") {
		t.Errorf("patterns prompt = %q", fake.prompts[0])
	}
	if !strings.Contains(fake.prompts[1], `LLM File Patterns/Globs: ["*controller.cs"]`) {
		t.Errorf("filter prompt = %q", fake.prompts[1])
	}
	answerPrompt := fake.prompts[2]
	for _, want := range []string{"Storefront", "the product", "- src/Controllers/OrderController.cs\n- api/Controllers/CartController.cs", "Where are orders handled?"} {
		if !strings.Contains(answerPrompt, want) {
			t.Errorf("answer prompt missing %q", want)
		}
	}

	if resp.MatchedCount != 2 || len(resp.Preview) != 2 {
		t.Errorf("matched = %d, preview = %d", resp.MatchedCount, len(resp.Preview))
	}
	if resp.Answer != "Start with OrderController.cs." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Patterns) != 1 || resp.Patterns[0] != "*controller.cs" {
		t.Errorf("patterns = %v", resp.Patterns)
	}
	if resp.Filter["bucket"] != "Controller" {
		t.Errorf("filter = %v", resp.Filter)
	}
	if resp.Trace != nil {
		t.Error("trace should be omitted without debug")
	}

	data, _ := json.Marshal(resp)
	var fields map[string]any
	json.Unmarshal(data, &fields)
	var keys []string
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if got := strings.Join(keys, ","); got != "answer,filter,matched_count,patterns,preview,question" {
		t.Errorf("response fields = %s", got)
	}
}

func TestRunDebugTrace(t *testing.T) {
	fake := happyLLM()
	o := New(fake, newTestStore(t), nil, Config{})

	resp, err := o.Run(context.Background(), Request{Question: "q", ModelID: "m", Debug: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []State{StatePatternsRequested, StateFilterRequested, StateAnswerRequested}
	if len(resp.Trace) != len(want) {
		t.Fatalf("trace has %d entries, want %d", len(resp.Trace), len(want))
	}
	for i, e := range resp.Trace {
		if e.Stage != want[i] || e.Prompt != fake.prompts[i] || e.Response != fake.responses[i] {
			t.Errorf("trace[%d] = %+v", i, e)
		}
	}
}

func TestRunPatternsParseFailure(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"I think you want the controllers."}}
	o := New(fake, newTestStore(t), nil, Config{})

	_, err := o.Run(context.Background(), Request{Question: "q"})
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StageError", err)
	}
	if se.From != StatePatternsRequested || se.To != StatePatternsParsed {
		t.Errorf("transition = %s -> %s", se.From, se.To)
	}
	if se.Raw != "I think you want the controllers." {
		t.Errorf("raw = %q", se.Raw)
	}
	if !apperr.HasCode(err, apperr.LLMParseFailure) {
		t.Errorf("code = %s", apperr.CodeOf(err))
	}
	if len(fake.prompts) != 1 {
		t.Errorf("llm calls = %d, want 1", len(fake.prompts))
	}
}

func TestRunFilterFailures(t *testing.T) {
	tests := []struct {
		name       string
		filter     string
		wantFilter bool
	}{
		{"not json", "bucket = Controller", false},
		{"array", "```json\n[\"Controller\"]\n```", false},
		{"bad operator", `{"$where": "1"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &scriptedLLM{responses: []string{`["*controller.cs"]`, tt.filter}}
			o := New(fake, newTestStore(t), nil, Config{})

			_, err := o.Run(context.Background(), Request{Question: "q"})
			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StageError", err)
			}
			if se.From != StateFilterRequested || se.To != StateFilterParsed {
				t.Errorf("transition = %s -> %s", se.From, se.To)
			}
			if se.Code != apperr.LLMParseFailure || se.Raw != tt.filter {
				t.Errorf("code = %s, raw = %q", se.Code, se.Raw)
			}
			if (se.Filter != nil) != tt.wantFilter {
				t.Errorf("filter = %v", se.Filter)
			}
		})
	}
}

func TestRunStoreUnavailable(t *testing.T) {
	store := newTestStore(t)
	store.Close()
	fake := &scriptedLLM{responses: []string{`["*"]`, `{"repo": "shop-web"}`}}

	_, err := New(fake, store, nil, Config{}).Run(context.Background(), Request{Question: "q"})
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StageError", err)
	}
	if se.From != StateFilterParsed || se.To != StateContextQueried {
		t.Errorf("transition = %s -> %s", se.From, se.To)
	}
	if !apperr.HasCode(err, apperr.StoreUnavailable) {
		t.Errorf("code = %s", apperr.CodeOf(err))
	}
	if se.Filter["repo"] != "shop-web" {
		t.Errorf("filter = %v", se.Filter)
	}
}

func TestRunUpstreamFailure(t *testing.T) {
	fake := &scriptedLLM{errs: map[int]error{0: errors.New("connection reset")}}
	_, err := New(fake, newTestStore(t), nil, Config{}).Run(context.Background(), Request{Question: "q"})

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StageError", err)
	}
	if se.From != StateStart || se.To != StatePatternsRequested {
		t.Errorf("transition = %s -> %s", se.From, se.To)
	}
	if !apperr.HasCode(err, apperr.UpstreamFailure) {
		t.Errorf("code = %s", apperr.CodeOf(err))
	}
}

func TestRunLimits(t *testing.T) {
	fake := &scriptedLLM{responses: []string{`[]`, `{}`, "answer"}}
	o := New(fake, newTestStore(t), nil, Config{ContextSummaryLimit: 1, PreviewLimit: 1})

	resp, err := o.Run(context.Background(), Request{Question: "q", MaxResults: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.MatchedCount != 3 || len(resp.Preview) != 1 {
		t.Errorf("matched = %d, preview = %d", resp.MatchedCount, len(resp.Preview))
	}
	if strings.Contains(fake.prompts[2], "OrderRepository.cs") || !strings.Contains(fake.prompts[2], "- src/Controllers/OrderController.cs") {
		t.Errorf("summary should list exactly one record: %q", fake.prompts[2])
	}
}

func TestRunValidation(t *testing.T) {
	o := New(&scriptedLLM{}, newTestStore(t), nil, Config{})
	if _, err := o.Run(context.Background(), Request{Question: "  "}); !apperr.HasCode(err, apperr.InvalidArgument) {
		t.Errorf("empty question = %v", err)
	}
	if _, err := o.Run(context.Background(), Request{Question: "q", MaxResults: -1}); !apperr.HasCode(err, apperr.InvalidArgument) {
		t.Errorf("negative max = %v", err)
	}
}

func TestResolveName(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		filter map[string]any
		want   string
	}{
		{"raw object", `{"codebase_nickname": "Raw"}`, map[string]any{"codebase_nickname": "Parsed"}, "Raw"},
		{"fenced raw uses parsed", "```json\n{\"codebase_nickname\": \"Parsed\"}\n```", map[string]any{"codebase_nickname": "Parsed"}, "Parsed"},
		{"non-string", `{"codebase_nickname": 3}`, map[string]any{"codebase_nickname": 3}, "fallback"},
		{"missing", "text", nil, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveName("codebase_nickname", tt.raw, tt.filter, "fallback"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnswerRoute(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, New(happyLLM(), newTestStore(t), nil, Config{}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/stage1/answer",
		strings.NewReader(`{"question": "orders?", "model_id": "m", "max_context_docs": 5}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.MatchedCount != 2 {
		t.Errorf("matched = %d", resp.MatchedCount)
	}
}

func TestAnswerRouteParseFailure(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, New(&scriptedLLM{responses: []string{"nope"}}, newTestStore(t), nil, Config{}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/stage1/answer", strings.NewReader(`{"question": "q"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string       `json:"code"`
			Details StageDetails `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != string(apperr.LLMParseFailure) || body.Error.Details.Raw != "nope" {
		t.Errorf("error = %+v", body.Error)
	}
	if body.Error.Details.From != StatePatternsRequested || body.Error.Details.RunID == "" {
		t.Errorf("details = %+v", body.Error.Details)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/stage1/answer", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}
