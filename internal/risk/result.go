package risk

import (
	"github.com/spigell/offer-guard/internal/ai"
)

// Level is the discrete risk band.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Label is the human readable form, e.g. "HIGH RISK".
func (l Level) Label() string {
	return string(l) + " RISK"
}

// Result is the final verdict for one job offer.
type Result struct {
	RiskLevel         Level                 `json:"riskLevel"`
	RiskScore         int                   `json:"riskScore"`
	RedFlags          []string              `json:"redFlags"`
	TrustIndicators   []string              `json:"trustIndicators"`
	AIRecommendation  string                `json:"aiRecommendation"`
	DetailedAnalysis  string                `json:"detailedAnalysis"`
	VerificationLinks []ai.VerificationLink `json:"verificationLinks"`

	// Fallback is set when the remote analysis was replaced by the local default.
	// It is not rendered differently.
	Fallback bool `json:"-"`
}

// Merge concatenates lists, keeping the first occurrence of every exact string.
func Merge(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
