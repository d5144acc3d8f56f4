package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/internal/cli"
	"github.com/weftworks/skein/pkg/adapters/mcphost"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the deck as an MCP server on stdio",
	Long:  `Exposes the story to MCP clients: story_view, story_begin, story_choose and story_goto tools, plus a transcript resource.`,
	Run: func(cmd *cobra.Command, args []string) {
		deckPath, _ := cmd.Flags().GetString("deck")
		debug, _ := cmd.Flags().GetBool("debug")

		st, err := cli.BuildStory(deckPath, skein.WithLogger(cli.Logger(debug)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading story: %v\n", err)
			os.Exit(1)
		}

		if err := mcphost.NewServer(st).ServeStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
