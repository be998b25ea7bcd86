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

var (
	//go:embed prompts/internships.md
	internshipsPromptTemplate string
	//go:embed prompts/skills.md
	skillsPromptTemplate string
)

var internshipsSchema = mustResponseSchema(&genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":      {Type: genai.TypeString},
			"company":    {Type: genai.TypeString},
			"link":       {Type: genai.TypeString},
			"source":     {Type: genai.TypeString},
			"postedDate": {Type: genai.TypeString},
		},
		Required: []string{"title", "company", "link", "source"},
	},
})

var skillsSchema = mustResponseSchema(&genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"skill":       {Type: genai.TypeString},
			"relevance":   {Type: genai.TypeNumber, Description: "1-100"},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"skill", "relevance", "description"},
	},
})

// Researcher implements ai.MarketResearcher with grounded Gemini requests.
type Researcher struct {
	generator generator
	logger    *zap.Logger
}

var _ ai.MarketResearcher = (*Researcher)(nil)

func NewResearcher(g generator, log *zap.Logger) *Researcher {
	return &Researcher{
		generator: g,
		logger:    logger.Component(log, "market"),
	}
}

// Internships searches the web for recent internship postings matching query.
func (r *Researcher) Internships(ctx context.Context, query string) ([]ai.Internship, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	prompt := strings.NewReplacer(
		"{{QUERY}}", query,
		"{{SCHEMA}}", internshipsSchema.String(),
	).Replace(internshipsPromptTemplate)

	resp, err := r.generate(ctx, "internships", prompt, internshipsSchema)
	if err != nil {
		return nil, err
	}

	listings := make([]ai.Internship, 0)
	if err := internshipsSchema.decode(resp.Text, &listings); err != nil {
		return nil, fmt.Errorf("parse internships: %w", err)
	}

	r.logger.Debug("internships found", zap.String("query", query), zap.Int("count", len(listings)))
	return listings, nil
}

// SkillTrends asks for the most demanded skills in domain.
func (r *Researcher) SkillTrends(ctx context.Context, domain string) ([]ai.SkillTrend, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, errors.New("domain must not be empty")
	}

	prompt := strings.NewReplacer(
		"{{DOMAIN}}", domain,
		"{{SCHEMA}}", skillsSchema.String(),
	).Replace(skillsPromptTemplate)

	resp, err := r.generate(ctx, "skills", prompt, skillsSchema)
	if err != nil {
		return nil, err
	}

	trends := make([]ai.SkillTrend, 0)
	if err := skillsSchema.decode(resp.Text, &trends); err != nil {
		return nil, fmt.Errorf("parse skill trends: %w", err)
	}

	r.logger.Debug("skill trends found", zap.String("domain", domain), zap.Int("count", len(trends)))
	return trends, nil
}

func (r *Researcher) generate(ctx context.Context, operation, prompt string, schema *responseSchema) (*Response, error) {
	if r == nil || r.generator == nil {
		return nil, errors.New("market researcher is not initialized")
	}
	return r.generator.Generate(ctx, Request{
		Operation: operation,
		Prompt:    prompt,
		Search:    true,
		Schema:    schema.genai,
	})
}
