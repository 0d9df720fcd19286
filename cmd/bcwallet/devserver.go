package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BarakahPay/bcwallet/internal/devserver"
)

func newDevServerCommand(cfg *runtimeConfig) *cobra.Command {
	var listenAddr, origins string
	var seedBalance float64
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the in-memory wallet service for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			server, err := devserver.New(devserver.Config{
				ListenAddr:     listenAddr,
				AllowedOrigins: splitOrigins(origins),
				SeedBalance:    seedBalance,
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listenAddr, flagListenAddr, ":8080", "HTTP listen address")
	cmd.Flags().Float64Var(&seedBalance, flagSeedBalance, 1000, "starting balance for new accounts")
	cmd.Flags().StringVar(&origins, flagOrigins, "", "comma-separated list of allowed CORS origins")
	return cmd
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
