package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gityap/gityap/internal/app/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the comparison and matching HTTP service",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.InheritedFlags().GetString("config")
		if verbose, _ := cmd.InheritedFlags().GetBool("verbose"); verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}

		ctx := context.Background()
		runtime, err := bootstrap.NewRuntime(ctx, configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to bootstrap runtime: %v\n", err)
			os.Exit(1)
		}
		if err := runtime.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
