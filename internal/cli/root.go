package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/factrank/internal/app"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/model"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factrank",
	Short: "factrank - trust-weighted fact retrieval and ranking",
	Long: `factrank retrieves candidate facts from web search and a local fact
store, scores every source for domain reputation, corroboration and
recency, and ranks them with lexical and semantic relevance.

Answers are generated only from the ranked facts, with inline [n]
citations pointing at their sources.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("factrank %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.factrank/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.factrank")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	// FACTRANK_SEARCH_MAX_RESULTS maps to search.max_results
	viper.SetEnvPrefix("FACTRANK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range secretKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// secretKeys never appear in YAML but may come from FACTRANK_* variables
var secretKeys = []string{
	"llm.api_key",
	"embedding.api_key",
	"search.tavily_api_key",
	"search.serpapi_key",
	"search.google_api_key",
	"server.api_key",
}

// setDefaults registers every default so env overrides reach nested keys
func setDefaults(v *viper.Viper, cfg model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for k, val := range tree {
		v.SetDefault(k, val)
	}
	return nil
}

// loadConfig merges defaults, config file, env and flags, then fills API
// keys from the providers' conventional environment variables
func loadConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(&cfg, os.Getenv)
	return cfg, cfg.Validate()
}

func applyProviderEnv(cfg *model.Config, getenv func(string) string) {
	setIfEmpty := func(dst *string, env string) {
		if *dst == "" {
			*dst = getenv(env)
		}
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		setIfEmpty(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	case "anthropic", "claude":
		setIfEmpty(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	case "ollama":
		setIfEmpty(&cfg.LLM.BaseURL, "OLLAMA_BASE_URL")
	}

	switch strings.ToLower(cfg.Embedding.Provider) {
	case "openai":
		setIfEmpty(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	case "ollama":
		if base := getenv("OLLAMA_BASE_URL"); cfg.Embedding.BaseURL == "" && base != "" {
			cfg.Embedding.BaseURL = strings.TrimSuffix(base, "/") + "/v1"
		}
	}

	setIfEmpty(&cfg.Search.TavilyAPIKey, "TAVILY_API_KEY")
	setIfEmpty(&cfg.Search.SerpAPIKey, "SERPAPI_KEY")
	setIfEmpty(&cfg.Search.GoogleAPIKey, "GOOGLE_API_KEY")
	setIfEmpty(&cfg.Search.GoogleCSEID, "GOOGLE_CSE_ID")
	setIfEmpty(&cfg.HTTP.HTTPProxy, "HTTP_PROXY")
	setIfEmpty(&cfg.HTTP.HTTPSProxy, "HTTPS_PROXY")
	setIfEmpty(&cfg.HTTP.NoProxy, "NO_PROXY")
}

// buildApp loads config and wires every component. Callers must Close.
func buildApp() (*app.App, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if verbose && logLevel == "" {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	if verbose {
		logger.Debug("configuration loaded", zap.String("config_file", viper.ConfigFileUsed()))
	}
	return a, nil
}
