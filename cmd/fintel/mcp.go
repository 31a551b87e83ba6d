package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/seenimoa/fintel/internal/agent"
	"github.com/seenimoa/fintel/internal/datasource"
	"github.com/seenimoa/fintel/internal/llm"
)

// countryParams is the input of every lookup tool.
type countryParams struct {
	Country string `json:"country" jsonschema:"Country name, e.g. Japan"`
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the lookup tools",
	Long: `Start a Model Context Protocol server on stdio so MCP clients can call
currency_tool, stock_tool and maps_tool (and news_tool when headlines are enabled).

The server will run until the client disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context(), newProviders(cfg, logger))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer registers one MCP tool per lookup tool.
func newMCPServer(providers *datasource.Providers) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "fintel-mcp",
		Version: version,
	}, nil)

	for _, t := range agent.ToolsFor(providers) {
		mcpsdk.AddTool(server, &mcpsdk.Tool{
			Name:        t.Name,
			Description: t.Description,
		}, lookupHandler(t))
	}
	return server
}

// lookupHandler adapts a lookup tool to an MCP tool handler. Lookup misses,
// including a blank country, come back as the tool's in-band answer; handler
// errors are returned in the result so the client model can see them.
func lookupHandler(t llm.Tool) mcpsdk.ToolHandlerFor[countryParams, any] {
	return func(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[countryParams]) (*mcpsdk.CallToolResultFor[any], error) {
		args, _ := json.Marshal(params.Arguments)
		out, err := t.Handler(ctx, args)
		if err != nil {
			return &mcpsdk.CallToolResultFor[any]{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}
		return &mcpsdk.CallToolResultFor[any]{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out}},
		}, nil
	}
}

func runMCPServer(ctx context.Context, providers *datasource.Providers) error {
	// stdout carries JSON-RPC; status output goes to stderr only.
	fmt.Fprintln(os.Stderr, "fintel MCP server starting...")

	if err := newMCPServer(providers).Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
