package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallware/memspace/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "memspaced",
		Short: "Memspace daemon and CLI",
		Long:  "Memspace daemon for running the memory API server and managing spaces and API keys",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.SpaceCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
