package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gityap/gityap/internal/app/bootstrap"
	"github.com/gityap/gityap/internal/gateway"
	"github.com/gityap/gityap/internal/storage"
	"github.com/gityap/gityap/internal/usecase"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compares one code handle against one channel handle and outputs JSON",
	Long: `Resolves both profiles, computes scores and the verdict, and prints the
result as JSON. The channel session token comes from the CHANNEL_SESSION
environment variable; the code-platform credential from GITHUB_TOKEN.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.InheritedFlags().GetString("config")
		cfg, err := bootstrap.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		if verbose, _ := cmd.InheritedFlags().GetBool("verbose"); verbose {
			cfg.LogLevel = "debug"
		}
		logger := bootstrap.NewLogger(cfg)

		codeHandle, _ := cmd.Flags().GetString("github")
		channelHandle, _ := cmd.Flags().GetString("telegram")

		code, err := gateway.NewCodeGateway(cfg.GitHubToken, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create code gateway: %v\n", err)
			os.Exit(1)
		}
		channels := gateway.NewChannelBridge(cfg.ChannelBridgeURL)
		recon := usecase.NewReconciler(code, channels, storage.NewMemory(), logger)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.OperationTimeout)
		defer cancel()

		result, err := recon.CompareEntities(ctx, codeHandle, channelHandle, os.Getenv("CHANNEL_SESSION"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Comparison failed: %v\n", err)
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal result to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().String("github", "", "Code-platform handle (required)")
	compareCmd.Flags().String("telegram", "", "Channel handle (required)")
	compareCmd.MarkFlagRequired("github")
	compareCmd.MarkFlagRequired("telegram")
}
