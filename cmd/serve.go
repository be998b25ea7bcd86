package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai/gemini"
	"github.com/spigell/offer-guard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		lg, config := setup()
		defer lg.Sync()

		if cmd.Flags().Changed("listen") {
			config.Server.Listen, _ = cmd.Flags().GetString("listen")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		generator, err := newGenerator(ctx, config.AI, lg)
		if err != nil {
			return err
		}

		store, closeStore, err := newHistoryStore(ctx, config.History, lg)
		if err != nil {
			return err
		}
		defer closeStore()

		lg.Info("starting api server",
			zap.String("model", generator.Model()),
			zap.String("history_backend", config.History.Backend),
		)

		srv := server.New(config.Server, server.Deps{
			Analyzer: newEngine(generator, config, lg),
			History:  store,
			Market:   gemini.NewResearcher(generator, lg),
			Matcher:  gemini.NewMatcher(generator, lg),
			Logger:   lg,
		})
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "address to listen on (overrides server.listen)")
}
