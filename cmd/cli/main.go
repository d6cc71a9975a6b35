package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/sheerluck-engine/cmd/cli/game"
	"github.com/spf13/cobra"
)

func init() {
	// .env is optional, the environment always wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "log debug output to stderr")
	rootCmd.AddGroup(game.Group)
	rootCmd.AddCommand(game.Scenario)
	rootCmd.AddCommand(game.Play)
}

var rootCmd = &cobra.Command{
	Use:           "sheerluck-cli",
	Short:         "Play and manage Sheerluck murder mysteries from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
