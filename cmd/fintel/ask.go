package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fintel/internal/agent"
	"github.com/seenimoa/fintel/internal/presenter"
)

// --- Ask Command ---

var askCmd = &cobra.Command{
	Use:   "ask [country]",
	Short: "Ask the agent for a country's financial intelligence",
	Long: `Runs the orchestrator for one country and renders the answer.
With --json the run ID, raw answer and parsed report are printed as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		country := strings.Join(args, " ")
		asJSON, _ := cmd.Flags().GetBool("json")

		orch, err := newOrchestrator(cfg, newProviders(cfg, logger), logger)
		if err != nil {
			return err
		}

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			orch.Subscribe(func(ev agent.Event) {
				if ev.Type == agent.EventToolCalled {
					fmt.Fprintf(cmd.ErrOrStderr(), "-> %s %s\n", ev.Tool, ev.Args)
				}
			})
		}

		answer, err := orch.Run(cmd.Context(), country)
		if err != nil {
			if errors.Is(err, agent.ErrMissingAPIKey) {
				return fmt.Errorf("%w (set GROQ_API_KEY or llm.api_key)", err)
			}
			return err
		}

		report := presenter.Parse(answer.Text)
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*agent.Answer
				Report *presenter.Report `json:"report"`
			}{answer, report})
		}

		fmt.Fprint(out, presenter.RenderTerminal(report))
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("json", false, "print the answer and parsed report as JSON")
	askCmd.Flags().BoolP("verbose", "v", false, "print tool calls as they happen")
	rootCmd.AddCommand(askCmd)
}
