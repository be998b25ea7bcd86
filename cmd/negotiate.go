package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/chat"
	"github.com/spigell/offer-guard/internal/report"
)

const cmdSuggest = "/suggest"

var negotiateCmd = &cobra.Command{
	Use:   "negotiate",
	Short: "Practice a salary negotiation with an HR director",
	Long: `Practice a salary negotiation with an HR director who reports how stressed
your demands make her.

Commands inside the chat:
  /suggest N   send suggestion N
  /reset       start over
  /exit        leave`,
	Args: cobra.NoArgs,
	RunE: runNegotiate,
}

func init() {
	rootCmd.AddCommand(negotiateCmd)
}

func runNegotiate(cmd *cobra.Command, _ []string) error {
	lg, config := setup()
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, config.AI, lg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	persona := chat.NegotiationPersona()
	conv, err := chat.NewConversation(ctx, generator, persona, lg)
	if err != nil {
		return err
	}
	showNegotiation(out, conv)

	printer := &deltaPrinter{w: out}
	for {
		line, err := readMessage("You")
		if err == errQuit {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		switch name, arg, _ := strings.Cut(line, " "); name {
		case cmdReset:
			if err := conv.Reset(ctx); err != nil {
				return err
			}
			showNegotiation(out, conv)
			continue
		case cmdSuggest:
			n, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil || n < 1 || n > len(persona.Suggestions) {
				fmt.Fprintf(out, "suggestion must be a number from 1 to %d\n", len(persona.Suggestions))
				continue
			}
			line = persona.Suggestions[n-1]
			fmt.Fprintf(out, "You: %s\n", line)
		default:
			if strings.HasPrefix(name, "/") {
				fmt.Fprintf(out, "unknown command %s\n", name)
				continue
			}
		}

		fmt.Fprint(out, persona.Name+": ")
		reply, err := conv.Send(ctx, line, printer.update)
		printer.finish(reply)
		if err != nil {
			lg.Debug("negotiation reply failed", zap.Error(err))
			fmt.Fprintln(out, "The negotiation hit a snag. Try again.")
		}
		if ctx.Err() != nil {
			return nil
		}
		stressLine(out, conv)
	}
}

func showNegotiation(out io.Writer, conv *chat.Conversation) {
	persona := conv.Persona()
	fmt.Fprintf(out, "%s: %s\n", persona.Name, conv.Messages()[0].Text)
	stressLine(out, conv)
	fmt.Fprintln(out, "Suggestions:")
	for i, s := range persona.Suggestions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, s)
	}
}

func stressLine(out io.Writer, conv *chat.Conversation) {
	if level, ok := conv.Stress(); ok {
		fmt.Fprintln(out, report.StressMeter(level))
	}
}
