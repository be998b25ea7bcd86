package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai/gemini"
	"github.com/spigell/offer-guard/internal/report"
)

var matchCmd = &cobra.Command{
	Use:     "match",
	Short:   "Score a resume against a job description",
	Example: `  offer-guard match --resume resume.txt --job job.txt`,
	Args:    cobra.NoArgs,
	RunE:    runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	flags := matchCmd.Flags()
	flags.String("resume", "", "file with the resume text")
	flags.String("job", "", "file with the job description")
	flags.StringP("output", "o", report.FormatText, "output format: text, json or yaml")
	_ = matchCmd.MarkFlagRequired("resume")
	_ = matchCmd.MarkFlagRequired("job")
}

func runMatch(cmd *cobra.Command, _ []string) error {
	lg, config := setup()
	defer lg.Sync()

	format, _ := cmd.Flags().GetString("output")
	if err := report.ValidateFormat(format); err != nil {
		return err
	}

	resumePath, _ := cmd.Flags().GetString("resume")
	jobPath, _ := cmd.Flags().GetString("job")

	resume, err := os.ReadFile(resumePath)
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}
	job, err := os.ReadFile(jobPath)
	if err != nil {
		return fmt.Errorf("read job description: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, config.AI, lg)
	if err != nil {
		return err
	}

	result, err := gemini.NewMatcher(generator, lg).Match(ctx, string(resume), string(job))
	if err != nil {
		lg.Error("resume match failed", zap.Error(err))
		return errors.New("failed to compare the resume with the job description")
	}

	if format == report.FormatText {
		report.Match(cmd.OutOrStdout(), result)
		return nil
	}
	return report.Encode(cmd.OutOrStdout(), format, result)
}
