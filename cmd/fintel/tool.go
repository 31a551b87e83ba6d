package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fintel/api"
	"github.com/seenimoa/fintel/internal/agent"
	"github.com/seenimoa/fintel/internal/llm"
)

// --- Tool Command (direct lookups, no LLM) ---

var toolCmd = &cobra.Command{
	Use:   "tool [currency|stock|maps|news] [country]",
	Short: "Run one lookup tool directly",
	Long: `Calls a lookup tool the way the model would and prints its raw output.
Useful for checking the live exchange-rate key without spending LLM calls.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := api.ResolveToolName(args[0])
		country := strings.Join(args[1:], " ")

		registry := llm.NewToolRegistry(agent.ToolsFor(newProviders(cfg, logger))...)
		if _, ok := registry.Get(name); !ok {
			return fmt.Errorf("unknown tool %q (available: %s)", args[0], strings.Join(registry.Names(), ", "))
		}

		argsJSON, _ := json.Marshal(map[string]string{"country": country})
		out, err := registry.Execute(cmd.Context(), llm.ToolCall{Name: name, Arguments: argsJSON})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

// --- Brief Command ---

var briefCmd = &cobra.Command{
	Use:   "brief [country]",
	Short: "Run every lookup for a country in parallel, without the LLM",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brief, err := newProviders(cfg, logger).Brief(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(brief)
	},
}

func init() {
	rootCmd.AddCommand(toolCmd)
	rootCmd.AddCommand(briefCmd)
}
