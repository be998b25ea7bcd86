package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved analyses",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved analyses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHistory(cmd, func(ctx context.Context, store history.Store, format string) error {
			items, err := store.List(ctx)
			if err != nil {
				return err
			}
			if format == report.FormatText {
				return report.History(cmd.OutOrStdout(), items)
			}
			return report.Encode(cmd.OutOrStdout(), format, items)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store history.Store, format string) error {
			item, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if format == report.FormatText {
				report.HistoryItem(cmd.OutOrStdout(), item)
				return nil
			}
			return report.Encode(cmd.OutOrStdout(), format, item)
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Delete a saved analysis",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store history.Store, _ string) error {
			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved analyses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHistory(cmd, func(ctx context.Context, store history.Store, _ string) error {
			if err := store.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyClearCmd)

	historyCmd.PersistentFlags().StringP("output", "o", report.FormatText, "output format: text, json or yaml")
}

func withHistory(cmd *cobra.Command, fn func(ctx context.Context, store history.Store, format string) error) error {
	lg, config := setup()
	defer lg.Sync()

	format, _ := cmd.Flags().GetString("output")
	if err := report.ValidateFormat(format); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, closeStore, err := newHistoryStore(ctx, config.History, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	lg.Debug("history backend ready", zap.String("backend", config.History.Backend))
	return fn(ctx, store, format)
}
