package chat

import (
	"fmt"
	"strings"

	"github.com/spigell/offer-guard/internal/ai"
)

const (
	coachTemperature       = 0.7
	negotiationTemperature = 0.9

	// ErrorReply is shown by the coach when a reply could not be produced.
	ErrorReply = "Sorry, I encountered an error. Let's try again."
)

// Mode selects the coach persona.
type Mode string

const (
	ModeGeneral   Mode = "General"
	ModeInterview Mode = "Interview"
	ModeResume    Mode = "Resume"
	ModeSkills    Mode = "Skills"
)

// Modes lists every coach mode in menu order.
var Modes = []Mode{ModeGeneral, ModeInterview, ModeResume, ModeSkills}

// ParseMode matches s case-insensitively. An empty value selects ModeGeneral.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModeGeneral, nil
	}
	for _, mode := range Modes {
		if strings.EqualFold(string(mode), s) {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown coach mode %q (expected one of %s)", s, joinModes())
}

func joinModes() string {
	names := make([]string, 0, len(Modes))
	for _, mode := range Modes {
		names = append(names, string(mode))
	}
	return strings.Join(names, ", ")
}

// Label is the human readable name of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeInterview:
		return "Mock Interview"
	case ModeResume:
		return "Resume Review"
	case ModeSkills:
		return "Skill Builder"
	default:
		return "Career Advice"
	}
}

// Persona describes who the model plays in a conversation.
type Persona struct {
	Name     string
	Config   ai.ChatConfig
	Greeting string
	// TracksStress enables the [STRESS: XX] protocol.
	TracksStress  bool
	InitialStress int
	// ErrorReply, when set, is appended to the transcript after a failed turn.
	ErrorReply  string
	Suggestions []string
}

// CoachPersona returns the career coach persona for mode.
func CoachPersona(mode Mode) Persona {
	p := Persona{
		Name:       "Career Catalyst",
		Config:     ai.ChatConfig{Temperature: coachTemperature},
		ErrorReply: ErrorReply,
	}

	switch mode {
	case ModeInterview:
		p.Config.SystemInstruction = "You are an expert technical interviewer. Conduct a mock interview. Ask one professional question at a time, wait for the user's answer, and then provide constructive feedback before asking the next one."
		p.Greeting = "Ready for your mock interview? What role are we practicing for today?"
	case ModeResume:
		p.Config.SystemInstruction = "You are a senior recruiter. Help the user improve their resume. Ask them to paste their experience and give them high-impact, results-oriented suggestions for bullet points."
		p.Greeting = "Paste a section of your resume, and I'll help you make it stand out!"
	case ModeSkills:
		p.Config.SystemInstruction = "You are a career strategist. Help the user build a learning roadmap for their target role. Suggest specific technologies, certifications, and project ideas."
		p.Greeting = "Which domain do you want to master? Let's build a roadmap."
	default:
		p.Config.SystemInstruction = "You are 'Career Catalyst', an expert career coach. Help users prepare for jobs, crack interviews, and build skills."
		p.Greeting = "Hello! I'm your Career Catalyst. How can I help you reach your professional goals today?"
	}

	return p
}

// QuickPrompt switches the coach to Mode and opens with a canned message.
type QuickPrompt struct {
	Label string
	Mode  Mode
}

var QuickPrompts = []QuickPrompt{
	{Label: "Mock Interview", Mode: ModeInterview},
	{Label: "Fix Resume", Mode: ModeResume},
	{Label: "Skill Path", Mode: ModeSkills},
	{Label: "Salary Negotiation", Mode: ModeGeneral},
}

// Message is the text sent on behalf of the user.
func (q QuickPrompt) Message() string {
	return "I want to practice: " + q.Label
}

// NegotiationPersona is the HR director the user negotiates salary with.
func NegotiationPersona() Persona {
	return Persona{
		Name: "Sarah (HR Director)",
		Config: ai.ChatConfig{
			SystemInstruction: strings.Join([]string{
				"You are 'Sarah', a seasoned HR Director at a top tech firm.",
				"Your goal is to hire the candidate at the lowest possible market-fair rate.",
				"The user is a candidate negotiating their salary.",
				"- Be professional but firm.",
				"- Use common HR tactics (mentioning budget caps, total rewards package, other candidates).",
				"- Provide a 'Stress Level' update at the start of each of your responses in the format [STRESS: XX] where XX is 0-100 based on how aggressive or demanding the user is being.",
				"- Start by saying: 'We're very excited to offer you the role. We're looking at a base salary of $110,000. How does that sound?'",
			}, "\n"),
			Temperature: negotiationTemperature,
		},
		Greeting:      "We're very excited to offer you the role. We're looking at a base salary of $110,000. How does that sound?",
		TracksStress:  true,
		InitialStress: 20,
		Suggestions: []string{
			"I have a competing offer.",
			"Can we talk about equity?",
			"Based on my research...",
			"I'd like to sign today if...",
		},
	}
}
