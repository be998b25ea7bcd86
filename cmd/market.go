package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/ai/gemini"
	"github.com/spigell/offer-guard/internal/report"
)

var internshipsCmd = &cobra.Command{
	Use:     "internships QUERY",
	Short:   "Find live internship postings",
	Example: `  offer-guard internships "backend go remote"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withResearcher(cmd, func(ctx context.Context, r ai.MarketResearcher, lg *zap.Logger, format string) error {
			listings, err := r.Internships(ctx, query)
			if err != nil {
				lg.Warn("internship search failed", zap.String("query", query), zap.Error(err))
				listings = []ai.Internship{}
			}
			if format == report.FormatText {
				return report.Internships(cmd.OutOrStdout(), listings)
			}
			return report.Encode(cmd.OutOrStdout(), format, listings)
		})
	},
}

var skillsCmd = &cobra.Command{
	Use:     "skills DOMAIN",
	Short:   "Show skills in demand for a domain",
	Example: `  offer-guard skills "data engineering"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain := strings.Join(args, " ")
		return withResearcher(cmd, func(ctx context.Context, r ai.MarketResearcher, lg *zap.Logger, format string) error {
			trends, err := r.SkillTrends(ctx, domain)
			if err != nil {
				lg.Warn("skill trends lookup failed", zap.String("domain", domain), zap.Error(err))
				trends = []ai.SkillTrend{}
			}
			if format == report.FormatText {
				return report.SkillTrends(cmd.OutOrStdout(), trends)
			}
			return report.Encode(cmd.OutOrStdout(), format, trends)
		})
	},
}

func init() {
	rootCmd.AddCommand(internshipsCmd, skillsCmd)

	for _, c := range []*cobra.Command{internshipsCmd, skillsCmd} {
		c.Flags().StringP("output", "o", report.FormatText, "output format: text, json or yaml")
	}
}

func withResearcher(cmd *cobra.Command, fn func(ctx context.Context, r ai.MarketResearcher, lg *zap.Logger, format string) error) error {
	lg, config := setup()
	defer lg.Sync()

	format, _ := cmd.Flags().GetString("output")
	if err := report.ValidateFormat(format); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, config.AI, lg)
	if err != nil {
		return err
	}

	return fn(ctx, gemini.NewResearcher(generator, lg), lg, format)
}
