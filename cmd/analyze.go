package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/offer"
	"github.com/spigell/offer-guard/internal/report"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

const analysisFailedNotice = "Something went wrong during analysis."

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Check a job offer for scam patterns",
	Example: `  offer-guard analyze --file offer.yaml
  offer-guard analyze --title "Data Entry" --company Acme --description "..." --email hr@gmail.com --asked-for-money
  offer-guard analyze --interactive --image screenshot.png`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addOfferFlags(analyzeCmd)
}

func addOfferFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("file", "f", "", "yaml or json file with the offer")
	flags.String("title", "", "job title")
	flags.String("company", "", "company name")
	flags.String("description", "", "job description text (prefix with @ to read a file)")
	flags.String("email", "", "recruiter email")
	flags.String("salary", "", "offered salary as stated")
	flags.Bool("asked-for-money", false, "the recruiter asked you to pay for equipment, training or anything else")
	flags.String("contact", "", "how the recruiter contacted you: Email, WhatsApp, Telegram or Other")
	flags.String("image", "", "screenshot of the offer")
	flags.BoolP("interactive", "i", false, "ask for the offer fields interactively")
	flags.Bool("no-history", false, "do not save the analysis to history")
	flags.StringP("output", "o", report.FormatText, "output format: text, json or yaml")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	lg, config := setup()
	defer lg.Sync()

	format, _ := cmd.Flags().GetString("output")
	if err := report.ValidateFormat(format); err != nil {
		return err
	}

	o, err := offerFromFlags(cmd)
	if err != nil {
		return err
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if o, err = promptOffer(o); err != nil {
			return err
		}
	}

	o = o.Normalize()
	if err := o.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := newGenerator(ctx, config.AI, lg)
	if err != nil {
		return err
	}

	lg.Info("analyzing job offer",
		zap.String("company", o.CompanyName),
		zap.String("job_title", o.JobTitle),
		zap.Bool("with_image", o.HasImage()),
	)

	result, err := newEngine(generator, config, lg).Analyze(ctx, o)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), analysisFailedNotice)
		return err
	}

	out := cmd.OutOrStdout()
	if format == report.FormatText {
		report.Analysis(out, result)
	} else if err := report.Encode(out, format, result); err != nil {
		return err
	}

	if skip, _ := cmd.Flags().GetBool("no-history"); skip {
		return nil
	}

	store, closeStore, err := newHistoryStore(ctx, config.History, lg)
	if err != nil {
		lg.Warn("history is unavailable, analysis not saved", zap.Error(err))
		return nil
	}
	defer closeStore()

	item := history.NewItem(o, result)
	if err := store.Add(ctx, item); err != nil {
		lg.Warn("failed to save analysis to history", zap.Error(err))
		return nil
	}
	lg.Info("analysis saved to history", zap.String("id", item.ID))

	return nil
}

// offerFromFlags loads --file, if any, and overrides it with explicitly set flags.
func offerFromFlags(cmd *cobra.Command) (offer.JobOffer, error) {
	flags := cmd.Flags()

	var (
		o   offer.JobOffer
		err error
	)
	if path, _ := flags.GetString("file"); path != "" {
		if o, err = offer.Load(path); err != nil {
			return o, err
		}
	}

	strFields := map[string]*string{
		"title":   &o.JobTitle,
		"company": &o.CompanyName,
		"email":   &o.RecruiterEmail,
		"salary":  &o.Salary,
	}
	for name, dst := range strFields {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	if flags.Changed("description") {
		value, _ := flags.GetString("description")
		if o.JobDescription, err = readTextArg(value); err != nil {
			return o, err
		}
	}

	if flags.Changed("asked-for-money") {
		o.AskedForMoney, _ = flags.GetBool("asked-for-money")
	}

	if flags.Changed("contact") {
		value, _ := flags.GetString("contact")
		if o.ContactMethod, err = offer.ParseContactMethod(value); err != nil {
			return o, err
		}
	}

	if path, _ := flags.GetString("image"); path != "" {
		if o.OfferImage, err = offer.EncodeImageFile(path); err != nil {
			return o, err
		}
	}

	return o, nil
}

// readTextArg returns value, or the contents of the file when value starts with "@".
func readTextArg(value string) (string, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}
	return string(data), nil
}

// promptOffer asks for every field, using o as the defaults.
func promptOffer(o offer.JobOffer) (offer.JobOffer, error) {
	var err error

	if o.JobTitle, err = promptText("Job title", o.JobTitle, true); err != nil {
		return o, err
	}
	if o.CompanyName, err = promptText("Company", o.CompanyName, true); err != nil {
		return o, err
	}
	if o.RecruiterEmail, err = promptText("Recruiter email (optional)", o.RecruiterEmail, false); err != nil {
		return o, err
	}
	if o.Salary, err = promptText("Salary (optional)", o.Salary, false); err != nil {
		return o, err
	}

	contactItems := make([]string, 0, len(offer.ContactMethods))
	for _, m := range offer.ContactMethods {
		contactItems = append(contactItems, string(m))
	}
	contactPrompt := promptui.Select{Label: "How did they contact you?", Items: contactItems}
	_, contact, err := contactPrompt.Run()
	if err != nil {
		return o, err
	}
	o.ContactMethod = offer.ContactMethod(contact)

	moneyPrompt := promptui.Select{Label: "Did they ask you for money?", Items: []string{PromptNo, PromptYes}}
	_, money, err := moneyPrompt.Run()
	if err != nil {
		return o, err
	}
	o.AskedForMoney = money == PromptYes

	description, err := promptText("Job description (text or @file)", o.JobDescription, true)
	if err != nil {
		return o, err
	}
	if o.JobDescription, err = readTextArg(description); err != nil {
		return o, err
	}

	if !o.HasImage() {
		imagePath, err := promptText("Screenshot path (optional)", "", false)
		if err != nil {
			return o, err
		}
		if imagePath != "" {
			if o.OfferImage, err = offer.EncodeImageFile(imagePath); err != nil {
				return o, err
			}
		}
	}

	return o, nil
}

func promptText(label, def string, required bool) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
	}
	if required {
		p.Validate = func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("value is required")
			}
			return nil
		}
	}
	value, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
