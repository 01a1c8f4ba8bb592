package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dq-tools/aid-atlas/pkg/runtime/terminal/commands"
	"github.com/dq-tools/aid-atlas/pkg/server"
)

var cfgPath string

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Compute corpus statistics and serve them over HTTP",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "atlas.yaml",
		"Path to the engine config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	corpus, cfg, err := commands.Compute(ctx, cfgPath)
	if err != nil {
		return err
	}
	logger.Info().
		Str("publishers", corpus.Stats["publishers"].Number().String()).
		Str("activities", corpus.Stats["activities"].Number().String()).
		Msg("corpus aggregate computed")

	// Environment overrides win; the config file's addr is the fallback.
	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		host := os.Getenv("SERVER_HOST")
		port := os.Getenv("SERVER_PORT")
		if host != "" && port != "" {
			addr = net.JoinHostPort(host, port)
		}
	}
	if addr == "" {
		addr = cfg.Addr
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr:            addr,
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			Corpus: corpus,
		},
	})
	return api.Start()
}
