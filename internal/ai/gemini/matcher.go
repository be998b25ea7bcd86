package gemini

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/logger"
)

//go:embed prompts/match.md
var matchPromptTemplate string

var matchSchema = mustResponseSchema(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":           {Type: genai.TypeNumber},
		"missingKeywords": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"suggestedRewrites": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"original": {Type: genai.TypeString},
					"improved": {Type: genai.TypeString},
					"impact":   {Type: genai.TypeString},
				},
			},
		},
		"summary": {Type: genai.TypeString},
	},
	Required: []string{"score", "missingKeywords", "suggestedRewrites", "summary"},
})

// Matcher implements ai.ResumeMatcher.
type Matcher struct {
	generator generator
	logger    *zap.Logger
}

var _ ai.ResumeMatcher = (*Matcher)(nil)

func NewMatcher(g generator, log *zap.Logger) *Matcher {
	return &Matcher{
		generator: g,
		logger:    logger.Component(log, "resume-matcher"),
	}
}

// Match scores resume against jobDescription and proposes improvements.
func (m *Matcher) Match(ctx context.Context, resume, jobDescription string) (*ai.MatchResult, error) {
	if m == nil || m.generator == nil {
		return nil, errors.New("resume matcher is not initialized")
	}

	resume = strings.TrimSpace(resume)
	jobDescription = strings.TrimSpace(jobDescription)
	if resume == "" || jobDescription == "" {
		return nil, errors.New("resume and job description are both required")
	}

	prompt := strings.NewReplacer(
		"{{RESUME}}", resume,
		"{{JOB}}", jobDescription,
	).Replace(matchPromptTemplate)

	resp, err := m.generator.Generate(ctx, Request{
		Operation: "match",
		Prompt:    prompt,
		Schema:    matchSchema.genai,
	})
	if err != nil {
		return nil, err
	}

	var result ai.MatchResult
	if err := matchSchema.decode(resp.Text, &result); err != nil {
		return nil, fmt.Errorf("parse match result: %w", err)
	}
	if result.MissingKeywords == nil {
		result.MissingKeywords = []string{}
	}
	if result.SuggestedRewrites == nil {
		result.SuggestedRewrites = []ai.Rewrite{}
	}

	m.logger.Debug("resume matched",
		zap.Float64("score", result.Score),
		zap.Int("missing_keywords", len(result.MissingKeywords)),
	)

	return &result, nil
}
