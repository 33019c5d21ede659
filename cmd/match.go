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

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Finds the best cofounder match for a channel handle",
	Long: `Ranks the persisted candidate pool by weighted similarity to the given
channel and prints the best match as JSON. Needs the redis store: the pool
is built from previously recorded comparisons.`,
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

		ctx, cancel := context.WithTimeout(context.Background(), cfg.OperationTimeout)
		defer cancel()

		var store storage.Store = storage.NewMemory()
		if cfg.Store == bootstrap.StoreRedis {
			client, err := storage.Connect(ctx, cfg.RedisURL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to connect to redis: %v\n", err)
				os.Exit(1)
			}
			defer client.Close()
			store = storage.NewRedis(client)
		}

		code, err := gateway.NewCodeGateway(cfg.GitHubToken, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create code gateway: %v\n", err)
			os.Exit(1)
		}
		channels := gateway.NewChannelBridge(cfg.ChannelBridgeURL)
		recon := usecase.NewReconciler(code, channels, store, logger)

		channelHandle, _ := cmd.Flags().GetString("telegram")
		codeHint, _ := cmd.Flags().GetString("github")
		exclude, _ := cmd.Flags().GetString("exclude")

		result, found, err := recon.FindCofounderMatch(ctx, channelHandle, codeHint, exclude)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
			os.Exit(1)
		}
		if !found {
			fmt.Println("null")
			return
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
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().String("telegram", "", "Channel handle to match (required)")
	matchCmd.Flags().String("github", "", "Known code handle for the source channel")
	matchCmd.Flags().String("exclude", "", "Channel handle to exclude from the pool")
	matchCmd.MarkFlagRequired("telegram")
}
