package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftworks/skein/internal/cli"
	"github.com/weftworks/skein/pkg/deck"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a deck for consistency",
	Long:  `Loads the deck and reports dangling links, dangling embeds, a missing start passage and passages unreachable from the start.`,
	Run: func(cmd *cobra.Command, args []string) {
		deckPath, _ := cmd.Flags().GetString("deck")
		if len(args) > 0 {
			deckPath = args[0]
		}

		d, err := cli.LoadDeck(deckPath)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}

		var hard int
		for _, p := range deck.Validate(d) {
			if p.Warning {
				fmt.Printf("warning: %s\n", p)
				continue
			}
			fmt.Printf("error: %s\n", p)
			hard++
		}
		if hard > 0 {
			fmt.Printf("Validation failed: %d problem(s)\n", hard)
			os.Exit(1)
		}
		fmt.Println("Deck is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
