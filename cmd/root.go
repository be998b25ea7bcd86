package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/risk"
	"github.com/spigell/offer-guard/internal/server"
)

const (
	app       = "offer-guard"
	envPrefix = "OFFER_GUARD"
)

type Config struct {
	AI      *AIConfig      `mapstructure:"ai"`
	Risk    risk.Policy    `mapstructure:"risk"`
	History *HistoryConfig `mapstructure:"history"`
	Server  server.Config  `mapstructure:"server"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type HistoryConfig struct {
	Backend  string `mapstructure:"backend"`
	File     string `mapstructure:"file"`
	RedisURL string `mapstructure:"redis-url"`
	Key      string `mapstructure:"key"`
	MaxItems int    `mapstructure:"max-items"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "offer-guard checks job offers for scam patterns and helps with the job hunt",
		Long: `offer-guard blends a few local heuristics with a web-grounded AI review to
rate how likely a job offer is a scam. It also finds internships, tracks skill
trends, matches resumes against job descriptions and runs practice chats.`,
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is offer-guard.yaml in current directory or ~/.offer-guard)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())

	for key, env := range map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, envPrefix+"_"+envKey(key), env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}
}

func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func setDefaults(v *viper.Viper) {
	policy := risk.DefaultPolicy()

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.timeout", risk.DefaultTimeout)
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("risk.money-weight", policy.MoneyWeight)
	v.SetDefault("risk.free-email-weight", policy.FreeEmailWeight)
	v.SetDefault("risk.free-email-domains", policy.FreeEmailDomains)
	v.SetDefault("risk.amplify-threshold", policy.AmplifyThreshold)
	v.SetDefault("risk.amplify-divisor", policy.AmplifyDivisor)
	v.SetDefault("risk.high-threshold", policy.HighThreshold)
	v.SetDefault("risk.medium-threshold", policy.MediumThreshold)
	v.SetDefault("risk.fallback-score-money", policy.FallbackScoreMoney)
	v.SetDefault("risk.fallback-score", policy.FallbackScore)

	v.SetDefault("history.backend", "file")
	v.SetDefault("history.file", "~/.offer-guard/history.json")
	v.SetDefault("history.key", history.DefaultRedisKey)
	v.SetDefault("history.max-items", history.DefaultMaxItems)

	v.SetDefault("server.listen", server.DefaultListen)
	v.SetDefault("server.rate-limit", server.DefaultRateLimit)
	v.SetDefault("server.burst", server.DefaultBurst)
}

func initConfig() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// We can't proceed if the given config file can't be parsed.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.SetConfigName(app)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/." + app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.History == nil {
		config.History = &HistoryConfig{}
	}
	if err := config.Risk.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
