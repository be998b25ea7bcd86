package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/risk"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var Formats = []string{FormatText, FormatJSON, FormatYAML}

// ValidateFormat rejects unknown output formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (expected one of %s)", format, strings.Join(Formats, ", "))
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		// yaml.v3 honours yaml tags only, so go through JSON to keep field names.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q is not a structured format", format)
	}
}

// Analysis renders a verdict for the terminal.
func Analysis(w io.Writer, r *risk.Result) {
	fmt.Fprintf(w, "%s (score %d/100)\n", r.RiskLevel.Label(), r.RiskScore)

	if r.AIRecommendation != "" {
		fmt.Fprintf(w, "\nRecommendation: %s\n", r.AIRecommendation)
	}

	list(w, "Red flags", r.RedFlags)
	list(w, "Trust indicators", r.TrustIndicators)

	if r.DetailedAnalysis != "" {
		fmt.Fprintf(w, "\nAnalysis:\n%s\n", indent(r.DetailedAnalysis))
	}

	if len(r.VerificationLinks) > 0 {
		fmt.Fprintln(w, "\nVerification links:")
		for _, link := range r.VerificationLinks {
			fmt.Fprintf(w, "  - %s <%s>\n", link.Title, link.URI)
		}
	}
}

func list(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(items) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func indent(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// History renders saved analyses as a table.
func History(w io.Writer, items []history.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No saved analyses.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tRISK\tSCORE\tCOMPANY\tTITLE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			item.ID,
			item.Timestamp.Local().Format(time.DateTime),
			item.Result.RiskLevel,
			item.Result.RiskScore,
			item.Offer.CompanyName,
			item.Offer.JobTitle,
		)
	}
	return tw.Flush()
}

// HistoryItem renders one saved analysis with its offer.
func HistoryItem(w io.Writer, item history.Item) {
	fmt.Fprintf(w, "%s  %s\n", item.ID, item.Timestamp.Local().Format(time.DateTime))
	fmt.Fprintf(w, "%s at %s (contact: %s)\n", item.Offer.JobTitle, item.Offer.CompanyName, item.Offer.ContactMethod)
	if item.Offer.RecruiterEmail != "" {
		fmt.Fprintf(w, "Recruiter: %s\n", item.Offer.RecruiterEmail)
	}
	if item.Offer.Salary != "" {
		fmt.Fprintf(w, "Salary: %s\n", item.Offer.Salary)
	}
	fmt.Fprintln(w)
	Analysis(w, &item.Result)
}

// Internships renders live postings.
func Internships(w io.Writer, listings []ai.Internship) error {
	if len(listings) == 0 {
		_, err := fmt.Fprintln(w, "No internships found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tCOMPANY\tSOURCE\tPOSTED\tLINK")
	for _, l := range listings {
		posted := l.PostedDate
		if posted == "" {
			posted = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.Title, l.Company, l.Source, posted, l.Link)
	}
	return tw.Flush()
}

const barWidth = 20

// SkillTrends renders trending skills with a relevance bar.
func SkillTrends(w io.Writer, trends []ai.SkillTrend) error {
	if len(trends) == 0 {
		_, err := fmt.Fprintln(w, "No skill trends found.")
		return err
	}

	for _, trend := range trends {
		fmt.Fprintf(w, "%-24s %s %3.0f\n", trend.Skill, bar(trend.Relevance), trend.Relevance)
		if trend.Description != "" {
			fmt.Fprintf(w, "  %s\n", trend.Description)
		}
	}
	return nil
}

func bar(relevance float64) string {
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 100 {
		relevance = 100
	}
	filled := int(relevance / 100 * barWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}

// Match renders a resume comparison.
func Match(w io.Writer, m *ai.MatchResult) {
	fmt.Fprintf(w, "Match score: %.0f%%\n", m.Score)
	if m.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", m.Summary)
	}

	list(w, "Missing keywords", m.MissingKeywords)

	if len(m.SuggestedRewrites) > 0 {
		fmt.Fprintln(w, "\nSuggested rewrites:")
		for i, rw := range m.SuggestedRewrites {
			fmt.Fprintf(w, "  %d. %s\n     -> %s\n", i+1, rw.Original, rw.Improved)
			if rw.Impact != "" {
				fmt.Fprintf(w, "     (%s)\n", rw.Impact)
			}
		}
	}
}

// StressMeter renders the negotiation stress level.
func StressMeter(level int) string {
	label := "calm"
	switch {
	case level > 70:
		label = "tense"
	case level > 40:
		label = "uneasy"
	}
	return fmt.Sprintf("Stress %s %d%% (%s)", bar(float64(level)), level, label)
}
