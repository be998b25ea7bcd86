package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/offer-guard/internal/ai"
)

type fakeModels struct {
	mu    sync.Mutex
	calls []modelsCall
	queue []fakeResponse
}

type modelsCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelsCall{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func noWait(t *testing.T) {
	t.Helper()
	original := wait
	wait = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { wait = original })
}

func testGenerator(models modelsService, retries int) *Generator {
	return &Generator{
		models:     models,
		model:      "gemini-pro",
		maxRetries: retries,
		maxLogLen:  50,
		logger:     zap.NewNop(),
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	g := testGenerator(models, 2)

	resp, err := g.Generate(context.Background(), Request{Operation: "test", Prompt: "message"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if resp.Text != "retry ok" {
		t.Fatalf("unexpected output: %q", resp.Text)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}

	for _, call := range models.calls {
		if call.model != "gemini-pro" {
			t.Fatalf("unexpected model: %q", call.model)
		}
		if len(call.contents) != 1 || call.contents[0].Parts[0].Text != "message" {
			t.Fatalf("unexpected contents: %+v", call.contents)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	_, err := testGenerator(models, 2).Generate(context.Background(), Request{Prompt: "msg"})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	_, err := testGenerator(models, 3).Generate(context.Background(), Request{Prompt: "msg"})
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorHonoursShortRetryInfo(t *testing.T) {
	var waited []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	t.Cleanup(func() { wait = original })

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Details: []map[string]any{{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "3s"}},
	})
	models.enqueue(textResponse("ok"), nil)

	if _, err := testGenerator(models, 3).Generate(context.Background(), Request{Prompt: "msg"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(waited) != 1 || waited[0] != 3*time.Second {
		t.Fatalf("expected a single 3s wait, got %v", waited)
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	_, err := testGenerator(models, 3).Generate(context.Background(), Request{Prompt: "msg"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testGenerator(models, 3).Generate(ctx, Request{Prompt: "msg"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGeneratorGroundedRequestCarriesSearchTool(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: `{"ok": true}`},
			}},
			GroundingMetadata: &genai.GroundingMetadata{GroundingChunks: []*genai.GroundingChunk{
				{Web: &genai.GroundingChunkWeb{URI: "https://acme.example", Title: "Acme"}},
				{Web: &genai.GroundingChunkWeb{URI: "https://untitled.example"}},
				{Web: nil},
				{Web: &genai.GroundingChunkWeb{URI: "https://reviews.example", Title: "Reviews"}},
			}},
		}},
	}, nil)

	image := []byte{0x89, 'P', 'N', 'G'}
	resp, err := testGenerator(models, 1).Generate(context.Background(), Request{
		Prompt:    "check",
		Image:     image,
		ImageMIME: "image/png",
		Search:    true,
		Schema:    &genai.Schema{Type: genai.TypeObject},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Text != `{"ok": true}` {
		t.Fatalf("thought parts must be skipped, got %q", resp.Text)
	}

	want := []ai.VerificationLink{
		{URI: "https://acme.example", Title: "Acme"},
		{URI: "https://reviews.example", Title: "Reviews"},
	}
	if len(resp.Links) != len(want) {
		t.Fatalf("expected %d links, got %+v", len(want), resp.Links)
	}
	for i := range want {
		if resp.Links[i] != want[i] {
			t.Fatalf("link %d: expected %+v, got %+v", i, want[i], resp.Links[i])
		}
	}

	call := models.calls[0]
	if len(call.config.Tools) != 1 || call.config.Tools[0].GoogleSearch == nil {
		t.Fatalf("expected google search tool, got %+v", call.config.Tools)
	}
	if call.config.ResponseSchema != nil || call.config.ResponseMIMEType != "" {
		t.Fatalf("grounded requests must not set a response schema")
	}

	parts := call.contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %d", len(parts))
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/png" {
		t.Fatalf("unexpected image part: %+v", parts[1].InlineData)
	}
}

func TestGeneratorSchemaRequestUsesJSONResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(`[]`), nil)

	schema := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	resp, err := testGenerator(models, 1).Generate(context.Background(), Request{Prompt: "list", Schema: schema})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Links) != 0 || resp.Links == nil {
		t.Fatalf("expected empty non-nil links, got %#v", resp.Links)
	}

	cfg := models.calls[0].config
	if cfg.ResponseMIMEType != "application/json" || cfg.ResponseSchema != schema {
		t.Fatalf("expected json response config, got %+v", cfg)
	}
	if len(cfg.Tools) != 0 {
		t.Fatalf("expected no tools, got %+v", cfg.Tools)
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("   "), nil)

	_, err := testGenerator(models, 1).Generate(context.Background(), Request{Prompt: "msg"})
	if !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{}
	if _, err := testGenerator(models, 1).Generate(context.Background(), Request{Prompt: " "}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(models.calls))
	}
}

func TestWithMaxRetriesCopies(t *testing.T) {
	g := testGenerator(&fakeModels{}, 3)
	single := g.WithMaxRetries(1)

	if single.maxRetries != 1 {
		t.Fatalf("expected 1 retry, got %d", single.maxRetries)
	}
	if g.maxRetries != 3 {
		t.Fatalf("original generator must not change, got %d", g.maxRetries)
	}
	if g.WithMaxRetries(0).maxRetries != 1 {
		t.Fatal("expected at least one attempt")
	}
}

func TestAdvertisedDelayFromMessage(t *testing.T) {
	cases := []struct {
		message string
		want    time.Duration
		found   bool
	}{
		{message: "Please retry in 12.5s.", want: 12500 * time.Millisecond, found: true},
		{message: "retry after 500ms", want: 500 * time.Millisecond, found: true},
		{message: "retry after 7 seconds", want: 7 * time.Second, found: true},
		{message: "quota exceeded", found: false},
	}

	for _, tc := range cases {
		got, found := advertisedDelay(genai.APIError{Message: tc.message})
		if found != tc.found || got != tc.want {
			t.Fatalf("%q: expected (%v, %v), got (%v, %v)", tc.message, tc.want, tc.found, got, found)
		}
	}
}
