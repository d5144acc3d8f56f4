package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/internal/cli"
	"github.com/weftworks/skein/pkg/player"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a deck in the terminal",
	Long:  `Loads the deck, begins the story, and runs the interactive choose-your-path loop on the terminal.`,
	Run: func(cmd *cobra.Command, args []string) {
		deckPath, _ := cmd.Flags().GetString("deck")
		debug, _ := cmd.Flags().GetBool("debug")
		markdown, _ := cmd.Flags().GetBool("markdown")
		styleTags, _ := cmd.Flags().GetBool("style-tags")
		start, _ := cmd.Flags().GetString("start")

		logger := cli.Logger(debug)

		storyOpts := []skein.Option{
			skein.WithLogger(logger),
			skein.WithStyleTags(styleTags),
		}
		if start != "" {
			storyOpts = append(storyOpts, skein.WithStart(start))
		}
		st, err := cli.BuildStory(deckPath, storyOpts...)
		if err != nil {
			fmt.Printf("Error loading story: %v\n", err)
			os.Exit(1)
		}

		playerOpts := []player.Option{player.WithLogger(logger)}
		if markdown {
			playerOpts = append(playerOpts, player.WithMarkdown())
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			playerOpts = append(playerOpts, player.WithHeadless(true))
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		if err := player.New(playerOpts...).Run(sc, st); err != nil {
			if errors.Is(err, context.Canceled) {
				if sig := sc.Signal(); sig != nil {
					fmt.Printf("\nInterrupted (%v).\n", sig)
				}
				return
			}
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("markdown", false, "Render text content as terminal markdown")
	runCmd.Flags().Bool("style-tags", false, "Emit style boundary tags into the output buffer")
	runCmd.Flags().String("start", "", "Override the deck's start passage")
}
