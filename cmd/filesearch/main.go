package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor   bool
	storeFlag string
)

var rootCmd = &cobra.Command{
	Use:   "filesearch",
	Short: "Manage document stores and ask questions about them",
	Long: `filesearch talks to a file search backend: create document stores, upload
files into them, and hold multi-turn conversations answered from their content.

Examples:
  filesearch stores create "Design docs"
  filesearch upload fileSearchStores/abc ./handbook.pdf ./notes.md
  filesearch ask --store fileSearchStores/abc "What changed in v2?"
  filesearch chat`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "store to select (resource name, e.g. fileSearchStores/abc)")

	rootCmd.AddCommand(storesCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(directiveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(devBackendCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		stop()
		os.Exit(1)
	}
}
