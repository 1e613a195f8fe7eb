package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/afyachain/medledger/internal/gateway/config"
	"github.com/afyachain/medledger/internal/gateway/ledger"
	"github.com/afyachain/medledger/internal/gateway/server"
	"github.com/afyachain/medledger/internal/gateway/vault"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medgate",
		Short: "HTTP gateway for the medledger chaincode",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	chain, err := ledger.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to gateway peer")
	}
	defer chain.Close()
	logger.Info().
		Str("peer", cfg.PeerEndpoint).
		Str("channel", cfg.Channel).
		Str("chaincode", cfg.Chaincode).
		Msg("connected to gateway peer")

	v, err := vault.Open(cfg.VaultPath, cfg.VaultPassphrase)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open vault")
	}
	defer v.Close()

	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET not set; the API is running without authentication")
	}
	srv := server.New(chain, v, []byte(cfg.JWTSecret), logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
