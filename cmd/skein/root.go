package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "skein",
	Short: "Skein plays interactive narratives",
	Long:  `Skein steps through decks of passages: read, choose, repeat. Decks are YAML files; see the examples directory for the format.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("deck", "deck.yaml", "Path to the deck file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}
