package risk

import (
	"fmt"
	"strings"

	"github.com/spigell/offer-guard/internal/offer"
)

// Heuristics is the output of the local rule set.
type Heuristics struct {
	BaseScore       float64
	RedFlags        []string
	TrustIndicators []string
	// Triggered names the rules that raised a red flag.
	Triggered []string
}

func (h *Heuristics) flag(score float64, msg string) {
	h.BaseScore += score
	h.RedFlags = append(h.RedFlags, msg)
}

func (h *Heuristics) trust(msg string) {
	h.TrustIndicators = append(h.TrustIndicators, msg)
}

// rule inspects one aspect of an offer. Rules are independent and additive.
type rule struct {
	name  string
	apply func(p Policy, o offer.JobOffer, h *Heuristics)
}

var rules = []rule{
	{name: "upfront_payment", apply: upfrontPaymentRule},
	{name: "recruiter_email_domain", apply: recruiterDomainRule},
}

// Evaluate runs the local rules with the default policy.
func Evaluate(o offer.JobOffer) Heuristics {
	return DefaultPolicy().Evaluate(o)
}

// Evaluate runs the local rules. It has no side effects and never fails.
func (p Policy) Evaluate(o offer.JobOffer) Heuristics {
	h := Heuristics{
		RedFlags:        make([]string, 0, len(rules)),
		TrustIndicators: make([]string, 0, len(rules)),
	}
	for _, r := range rules {
		flagged := len(h.RedFlags)
		r.apply(p, o, &h)
		if len(h.RedFlags) > flagged {
			h.Triggered = append(h.Triggered, r.name)
		}
	}
	return h
}

func upfrontPaymentRule(p Policy, o offer.JobOffer, h *Heuristics) {
	if o.AskedForMoney {
		h.flag(p.MoneyWeight, "Asking for payment for equipment or training is a major scam indicator.")
		return
	}
	h.trust("No immediate request for money detected.")
}

func recruiterDomainRule(p Policy, o offer.JobOffer, h *Heuristics) {
	if strings.TrimSpace(o.RecruiterEmail) == "" {
		return
	}

	domain := EmailDomain(o.RecruiterEmail)
	if domain == "" {
		return
	}

	if p.isFreeEmailDomain(domain) {
		if strings.TrimSpace(o.CompanyName) != "" {
			h.flag(p.FreeEmailWeight, fmt.Sprintf("Uses a public email (@%s) instead of a corporate domain.", domain))
		}
		return
	}

	h.trust(fmt.Sprintf("Uses a custom domain (@%s) which is common for real businesses.", domain))
}

// EmailDomain returns the lower-cased part after the last "@", or "" when there is none.
func EmailDomain(email string) string {
	email = strings.TrimSpace(email)
	idx := strings.LastIndex(email, "@")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[idx+1:]))
}
