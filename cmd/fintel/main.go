// fintel: Financial Intelligence Agent
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fintel/internal/agent"
	"github.com/seenimoa/fintel/internal/config"
	"github.com/seenimoa/fintel/internal/datasource"
	"github.com/seenimoa/fintel/internal/infra"
	"github.com/seenimoa/fintel/internal/llm"
	"github.com/seenimoa/fintel/internal/logging"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command's PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fintel",
	Short: "fintel: Financial Intelligence Agent",
	Long: `fintel answers "give me financial intelligence for country X".
A tool-calling model (Groq, llama-3.3-70b-versatile) looks up the country's
currency and exchange rates, major stock indices and stock exchange location,
and the answer is rendered in the terminal or the web dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	statusCmd.Flags().Bool("ping", false, "verify the Groq API key against the models endpoint")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
}

// newProviders wires the lookup providers from the configuration.
func newProviders(cfg *config.Config, log *slog.Logger) *datasource.Providers {
	providers := datasource.NewProviders(datasource.NewCatalog(),
		datasource.WithRateSource(datasource.NewExchangeRateClient(
			datasource.WithBaseURL(cfg.Currency.BaseURL),
		)),
		datasource.WithCredential(config.Credential(config.EnvExchangeRateKey, cfg.Currency.APIKey)),
		datasource.WithLimiter(infra.PerMinute(cfg.Currency.RequestsPerMinute)),
		datasource.WithTimeout(cfg.Currency.Timeout()),
		datasource.WithLogger(log),
	)
	if cfg.News.Enabled {
		providers.Headlines = datasource.NewHeadlinesProvider(cfg.News.FeedPattern, cfg.News.Limit, log)
	}
	return providers
}

// newOrchestrator builds the orchestrator for the configured runtime.
func newOrchestrator(cfg *config.Config, providers *datasource.Providers, log *slog.Logger) (*agent.Orchestrator, error) {
	return agent.New(agent.Config{
		LLM:       cfg.LLM,
		Providers: providers,
		Logger:    log,
	})
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "fintel %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  fintel System Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    Runtime:       %s\n", cfg.LLM.Runtime)
		fmt.Fprintf(out, "    Model:         %s (%s)\n", cfg.LLM.Model, cfg.LLM.BaseURL)
		fmt.Fprintf(out, "    Rates API:     %s (timeout %s)\n", cfg.Currency.BaseURL, cfg.Currency.Timeout())
		fmt.Fprintf(out, "    Headlines:     %t\n", cfg.News.Enabled)
		fmt.Fprintf(out, "    API Server:    %s\n", cfg.API.Addr())
		fmt.Fprintf(out, "    Countries:     %d known\n", len(datasource.NewCatalog().Countries()))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			} else if k.Required {
				status = "not set (required)"
			}
			fmt.Fprintf(out, "    %-25s %s\n", k.Name+":", status)
		}

		if ping, _ := cmd.Flags().GetBool("ping"); ping {
			fmt.Fprintln(out)
			result := "ok"
			if err := pingGroq(cmd.Context(), cfg.LLM); err != nil {
				result = "failed: " + err.Error()
			}
			fmt.Fprintf(out, "  Groq Ping:       %s\n", result)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}

// pingGroq checks that the Groq key resolved for a run is accepted.
func pingGroq(ctx context.Context, llmCfg config.LLMConfig) error {
	key := config.Credential(config.EnvGroqKey, llmCfg.APIKey)()
	provider, err := llm.NewGroqProvider(key,
		llm.WithGroqBaseURL(llmCfg.BaseURL),
		llm.WithGroqModel(llmCfg.Model),
		llm.WithGroqHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	if err != nil {
		return err
	}
	return provider.Ping(ctx)
}
