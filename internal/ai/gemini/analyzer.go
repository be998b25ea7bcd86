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
	"github.com/spigell/offer-guard/internal/offer"
)

const notProvided = "Not provided"

//go:embed prompts/offer.md
var offerPromptTemplate string

var offerSchema = mustResponseSchema(&genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"riskScore": {
			Type:        genai.TypeNumber,
			Description: "A score from 0-100 indicating likelihood of a scam.",
		},
		"redFlags": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "List of suspicious elements found via text or web search.",
		},
		"trustIndicators": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "List of legitimate elements verified via web search or text.",
		},
		"recommendation": {
			Type:        genai.TypeString,
			Description: "Short, actionable advice.",
		},
		"reasoning": {
			Type:        genai.TypeString,
			Description: "Full explanation of the web verification and text analysis.",
		},
	},
	Required: []string{"riskScore", "redFlags", "trustIndicators", "recommendation", "reasoning"},
})

type generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Analyzer implements ai.OfferAnalyzer on top of a grounded Gemini request.
type Analyzer struct {
	generator generator
	logger    *zap.Logger
}

var _ ai.OfferAnalyzer = (*Analyzer)(nil)

// NewAnalyzer builds an offer analyzer. A *Generator is limited to a single
// attempt: the offer verdict falls back locally instead of being retried.
func NewAnalyzer(g generator, log *zap.Logger) *Analyzer {
	if gen, ok := g.(*Generator); ok {
		g = gen.WithMaxRetries(1)
	}
	return &Analyzer{
		generator: g,
		logger:    logger.Component(log, "offer-analyzer"),
	}
}

// AnalyzeOffer asks the model for a structured scam assessment of o.
func (a *Analyzer) AnalyzeOffer(ctx context.Context, o offer.JobOffer) (*ai.RemoteAnalysis, error) {
	if a == nil || a.generator == nil {
		return nil, errors.New("offer analyzer is not initialized")
	}

	log := a.logger.With(logger.OfferFields(o.CompanyName, o.JobTitle)...)

	req := Request{
		Operation: "offer",
		Search:    true,
		Schema:    offerSchema.genai,
	}

	withImage := false
	if o.HasImage() {
		data, mime, err := offer.DecodeImage(o.OfferImage)
		if err != nil {
			log.Warn("offer image could not be decoded, analyzing text only", zap.Error(err))
		} else {
			req.Image = data
			req.ImageMIME = mime
			withImage = true
		}
	}
	req.Prompt = renderOfferPrompt(o, withImage)

	resp, err := a.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	var analysis ai.RemoteAnalysis
	if err := offerSchema.decode(resp.Text, &analysis); err != nil {
		return nil, fmt.Errorf("parse offer analysis: %w", err)
	}

	if analysis.RedFlags == nil {
		analysis.RedFlags = []string{}
	}
	if analysis.TrustIndicators == nil {
		analysis.TrustIndicators = []string{}
	}
	analysis.VerificationLinks = resp.Links
	if analysis.VerificationLinks == nil {
		analysis.VerificationLinks = []ai.VerificationLink{}
	}

	log.Debug("offer analysis parsed",
		zap.Float64("ai_risk_score", analysis.RiskScore),
		zap.Int("red_flags", len(analysis.RedFlags)),
		zap.Int("trust_indicators", len(analysis.TrustIndicators)),
		zap.Int("verification_links", len(analysis.VerificationLinks)),
	)

	return &analysis, nil
}

func renderOfferPrompt(o offer.JobOffer, withImage bool) string {
	imageNote := ""
	if withImage {
		imageNote = "A screenshot of the offer is attached. Treat its contents as part of the posting."
	}

	replacer := strings.NewReplacer(
		"{{TITLE}}", o.JobTitle,
		"{{COMPANY}}", o.CompanyName,
		"{{EMAIL}}", orNotProvided(o.RecruiterEmail),
		"{{CONTACT}}", string(o.ContactMethod),
		"{{SALARY}}", orNotProvided(o.Salary),
		"{{DESCRIPTION}}", o.JobDescription,
		"{{IMAGE_NOTE}}", imageNote,
		"{{SCHEMA}}", offerSchema.String(),
	)
	return strings.TrimSpace(replacer.Replace(offerPromptTemplate))
}

func orNotProvided(value string) string {
	if strings.TrimSpace(value) == "" {
		return notProvided
	}
	return value
}
