package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/logger"
	"github.com/spigell/offer-guard/internal/metrics"
	"github.com/spigell/offer-guard/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel        = "gemini-2.5-flash"
	defaultMaxRetries   = 3
	defaultMaxLogLength = 200

	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 30 * time.Second
	// quota errors advertising a longer delay are not worth waiting for.
	maxQuotaDelay = 20 * time.Second
)

var wait = utils.WaitFor

type modelsService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type chatSession interface {
	SendMessageStream(ctx context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error]
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator wraps the Google GenAI client with retries, logging and grounding extraction.
type Generator struct {
	models     modelsService
	chats      chatCreator
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger
}

// Options tune a Generator. Zero values select defaults.
type Options struct {
	Model        string
	MaxRetries   int
	MaxLogLength int
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, genaiChats{chats: client.Chats}, opts, log), nil
}

func newGenerator(models modelsService, chats chatCreator, opts Options, log *zap.Logger) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	logLen := opts.MaxLogLength
	if logLen <= 0 {
		logLen = defaultMaxLogLength
	}

	return &Generator{
		models:     models,
		chats:      chats,
		model:      model,
		maxRetries: retries,
		maxLogLen:  logLen,
		logger:     logger.WithCommonFields(log, Provider, model, ""),
	}
}

// WithMaxRetries returns a copy of g limited to n attempts per request.
func (g *Generator) WithMaxRetries(n int) *Generator {
	clone := *g
	if n < 1 {
		n = 1
	}
	clone.maxRetries = n
	return &clone
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Request is a single structured generation call.
type Request struct {
	// Operation labels logs and metrics.
	Operation string
	Prompt    string
	Image     []byte
	ImageMIME string
	// Search enables Google Search grounding.
	Search bool
	// Schema, when set, is enforced with a JSON response type. Gemini does not
	// accept a response schema together with tools, so grounded requests carry
	// the schema in the prompt and are validated after the fact.
	Schema      *genai.Schema
	Temperature *float32
}

// Response is the generated text and any web citations it was grounded on.
type Response struct {
	Text  string
	Links []ai.VerificationLink
}

// Generate sends req to Gemini, retrying temporary failures.
func (g *Generator) Generate(ctx context.Context, req Request) (*Response, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.Search {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	log := g.logger.With(zap.String(logger.FieldOperation, req.Operation))
	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
		zap.Bool("with_image", len(req.Image) > 0),
		zap.Bool("grounded", req.Search),
	)

	var (
		resp *genai.GenerateContentResponse
		err  error
	)
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err = g.models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == g.maxRetries {
			metrics.AIRequests.WithLabelValues(req.Operation, "error").Inc()
			return nil, fmt.Errorf("generate content: %w", err)
		}

		log.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			metrics.AIRequests.WithLabelValues(req.Operation, "error").Inc()
			return nil, fmt.Errorf("generate content: %w", err)
		}
	}

	text := responseText(resp)
	if text == "" {
		metrics.AIRequests.WithLabelValues(req.Operation, "empty").Inc()
		return nil, ai.ErrEmptyResponse
	}

	links := groundingLinks(resp)
	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, g.maxLogLen)),
		zap.Int("grounding_links", len(links)),
	)
	metrics.AIRequests.WithLabelValues(req.Operation, "ok").Inc()

	return &Response{Text: text, Links: links}, nil
}

// responseText joins the text parts of the first candidate, skipping thoughts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text := strings.TrimSpace(part.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}
	return strings.TrimSpace(builder.String())
}

// chunkText returns the raw text of a streamed chunk without trimming.
func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}
	return builder.String()
}

// groundingLinks extracts web citations that carry both uri and title.
func groundingLinks(resp *genai.GenerateContentResponse) []ai.VerificationLink {
	links := make([]ai.VerificationLink, 0)
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return links
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return links
	}
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		if chunk.Web.URI == "" || chunk.Web.Title == "" {
			continue
		}
		links = append(links, ai.VerificationLink{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return links
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(ms|s|sec|secs|seconds?)?`)

// retryDelay decides whether err is temporary and how long to wait before the
// next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	backoff := utils.Backoff(baseRetryDelay, maxRetryDelay, attempt)

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		advertised, found := advertisedDelay(apiErr)
		if !found {
			return backoff, true
		}
		if advertised > maxQuotaDelay {
			return 0, false
		}
		return advertised, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// advertisedDelay reads the server suggested delay from RetryInfo details or
// from the error message.
func advertisedDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
	}

	match := retryAfterPattern.FindStringSubmatch(apiErr.Message)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(match[2], "ms") {
		return time.Duration(value * float64(time.Millisecond)), true
	}
	return time.Duration(value * float64(time.Second)), true
}
