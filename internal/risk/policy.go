package risk

import (
	"errors"
	"math"
	"strings"
)

// Policy holds the constants of the heuristic and fusion rules.
type Policy struct {
	MoneyWeight      float64  `mapstructure:"money-weight"`
	FreeEmailWeight  float64  `mapstructure:"free-email-weight"`
	FreeEmailDomains []string `mapstructure:"free-email-domains"`

	// Both scores must exceed AmplifyThreshold for the combined score to be amplified.
	AmplifyThreshold float64 `mapstructure:"amplify-threshold"`
	AmplifyDivisor   float64 `mapstructure:"amplify-divisor"`

	HighThreshold   float64 `mapstructure:"high-threshold"`
	MediumThreshold float64 `mapstructure:"medium-threshold"`

	FallbackScoreMoney float64 `mapstructure:"fallback-score-money"`
	FallbackScore      float64 `mapstructure:"fallback-score"`
}

// DefaultPolicy returns the stock constants.
func DefaultPolicy() Policy {
	return Policy{
		MoneyWeight:        50,
		FreeEmailWeight:    20,
		FreeEmailDomains:   []string{"gmail.com", "outlook.com", "yahoo.com", "hotmail.com"},
		AmplifyThreshold:   20,
		AmplifyDivisor:     1.2,
		HighThreshold:      70,
		MediumThreshold:    35,
		FallbackScoreMoney: 95,
		FallbackScore:      40,
	}
}

// Validate rejects policies that would break the score invariants.
func (p Policy) Validate() error {
	if p.AmplifyDivisor <= 0 || math.IsNaN(p.AmplifyDivisor) {
		return errors.New("amplify-divisor must be positive")
	}
	if p.MediumThreshold > p.HighThreshold {
		return errors.New("medium-threshold must not exceed high-threshold")
	}
	if p.MoneyWeight < 0 || p.FreeEmailWeight < 0 {
		return errors.New("rule weights must not be negative")
	}
	return nil
}

func (p Policy) isFreeEmailDomain(domain string) bool {
	for _, d := range p.FreeEmailDomains {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return true
		}
	}
	return false
}

// Fuse combines the heuristic and remote scores into the final integer score.
// The larger score wins unless both exceed AmplifyThreshold, in which case their
// sum is scaled by AmplifyDivisor. The result is always within [0, 100].
func (p Policy) Fuse(base, remote float64) int {
	base = sanitize(base)
	remote = sanitize(remote)

	final := math.Max(base, remote)
	if base > p.AmplifyThreshold && remote > p.AmplifyThreshold {
		final = math.Min(100, (base+remote)/p.AmplifyDivisor)
	}

	return int(math.Round(clamp(final)))
}

// Level maps a final score onto a risk band. Lower bounds are inclusive.
func (p Policy) Level(score int) Level {
	s := float64(score)
	switch {
	case s >= p.HighThreshold:
		return LevelHigh
	case s >= p.MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, sanitize(v)))
}
