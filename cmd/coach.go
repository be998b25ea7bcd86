package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/chat"
)

const (
	cmdMode    = "/mode"
	cmdPrompts = "/prompts"
	cmdPrompt  = "/prompt"
)

var coachCmd = &cobra.Command{
	Use:   "coach",
	Short: "Chat with a career coach",
	Long: `Chat with a career coach.

Commands inside the chat:
  /mode NAME   switch to General, Interview, Resume or Skills
  /prompts     list quick prompts
  /prompt N    send quick prompt N
  /reset       start over
  /exit        leave`,
	Args: cobra.NoArgs,
	RunE: runCoach,
}

func init() {
	rootCmd.AddCommand(coachCmd)
	coachCmd.Flags().StringP("mode", "m", string(chat.ModeGeneral), "coach mode: General, Interview, Resume or Skills")
}

func runCoach(cmd *cobra.Command, _ []string) error {
	lg, config := setup()
	defer lg.Sync()

	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, err := chat.ParseMode(modeFlag)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("mode") {
		if mode, err = selectMode(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, config.AI, lg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	conv, err := chat.NewConversation(ctx, generator, chat.CoachPersona(mode), lg)
	if err != nil {
		return err
	}
	greet(out, conv, mode)

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

		if strings.HasPrefix(line, "/") {
			next, message, err := coachCommand(out, line, mode)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if next != mode || line == cmdReset {
				mode = next
				if conv, err = chat.NewConversation(ctx, generator, chat.CoachPersona(mode), lg); err != nil {
					return err
				}
				greet(out, conv, mode)
			}
			if message == "" {
				continue
			}
			line = message
			fmt.Fprintf(out, "You: %s\n", line)
		}

		fmt.Fprint(out, conv.Persona().Name+": ")
		reply, err := conv.Send(ctx, line, printer.update)
		printer.finish(reply)
		if err != nil {
			lg.Debug("coach reply failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func selectMode() (chat.Mode, error) {
	labels := make([]string, 0, len(chat.Modes))
	for _, m := range chat.Modes {
		labels = append(labels, m.Label())
	}

	prompt := promptui.Select{Label: "What do you want to work on?", Items: labels}
	i, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return chat.Modes[i], nil
}

func greet(out io.Writer, conv *chat.Conversation, mode chat.Mode) {
	fmt.Fprintf(out, "[%s]\n%s: %s\n", mode.Label(), conv.Persona().Name, conv.Messages()[0].Text)
}

// coachCommand handles a slash command and returns the mode to continue in
// and an optional message to send.
func coachCommand(out io.Writer, line string, mode chat.Mode) (chat.Mode, string, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case cmdReset:
		return mode, "", nil
	case cmdMode:
		next, err := chat.ParseMode(arg)
		return next, "", err
	case cmdPrompts:
		for i, q := range chat.QuickPrompts {
			fmt.Fprintf(out, "  %d. %s\n", i+1, q.Label)
		}
		return mode, "", nil
	case cmdPrompt:
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(chat.QuickPrompts) {
			return mode, "", fmt.Errorf("quick prompt must be a number from 1 to %d", len(chat.QuickPrompts))
		}
		q := chat.QuickPrompts[n-1]
		return q.Mode, q.Message(), nil
	default:
		return mode, "", fmt.Errorf("unknown command %s", name)
	}
}
