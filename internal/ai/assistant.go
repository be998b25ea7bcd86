package ai

import (
	"context"
	"errors"
	"iter"

	"github.com/spigell/offer-guard/internal/offer"
)

var (
	// ErrEmptyResponse is returned when the model produced no usable text.
	ErrEmptyResponse = errors.New("model returned empty response")
	// ErrSchemaMismatch is returned when the model output does not match the requested shape.
	ErrSchemaMismatch = errors.New("model response does not match schema")
)

// VerificationLink is a web citation the model used for grounding.
type VerificationLink struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// RemoteAnalysis is the structured scam assessment returned by the model.
type RemoteAnalysis struct {
	RiskScore         float64            `json:"riskScore"`
	RedFlags          []string           `json:"redFlags"`
	TrustIndicators   []string           `json:"trustIndicators"`
	Recommendation    string             `json:"recommendation"`
	Reasoning         string             `json:"reasoning"`
	VerificationLinks []VerificationLink `json:"verificationLinks"`
}

// OfferAnalyzer inspects a job offer (text and optional image) for scam patterns,
// corroborating it with live web search.
type OfferAnalyzer interface {
	AnalyzeOffer(ctx context.Context, o offer.JobOffer) (*RemoteAnalysis, error)
}

// Internship is a live posting found through web search.
type Internship struct {
	Title      string `json:"title"`
	Company    string `json:"company"`
	Link       string `json:"link"`
	Source     string `json:"source"`
	PostedDate string `json:"postedDate,omitempty"`
}

// SkillTrend describes a skill currently in demand for a domain.
type SkillTrend struct {
	Skill       string  `json:"skill"`
	Relevance   float64 `json:"relevance"`
	Description string  `json:"description"`
}

// MarketResearcher looks up internships and skill trends.
type MarketResearcher interface {
	Internships(ctx context.Context, query string) ([]Internship, error)
	SkillTrends(ctx context.Context, domain string) ([]SkillTrend, error)
}

// Rewrite is a suggested improvement of a single resume bullet.
type Rewrite struct {
	Original string `json:"original"`
	Improved string `json:"improved"`
	Impact   string `json:"impact"`
}

// MatchResult compares a resume with a job description.
type MatchResult struct {
	Score             float64   `json:"score"`
	MissingKeywords   []string  `json:"missingKeywords"`
	SuggestedRewrites []Rewrite `json:"suggestedRewrites"`
	Summary           string    `json:"summary"`
}

// ResumeMatcher scores a resume against a job description.
type ResumeMatcher interface {
	Match(ctx context.Context, resume, jobDescription string) (*MatchResult, error)
}

// ChatConfig configures a multi-turn conversation.
type ChatConfig struct {
	SystemInstruction string
	Temperature       float32
}

// ChatSession is a multi-turn conversation. Stream yields text increments of the
// model reply; the reply is appended to the session history once fully consumed.
type ChatSession interface {
	Stream(ctx context.Context, message string) iter.Seq2[string, error]
}

// ChatStarter opens new chat sessions.
type ChatStarter interface {
	StartChat(ctx context.Context, cfg ChatConfig) (ChatSession, error)
}
