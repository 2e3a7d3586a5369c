package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/questline/partyhub/internal/app"
	"github.com/questline/partyhub/internal/config"
	"github.com/questline/partyhub/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		lobbyURL   string
		logLevel   string
		console    bool
	)

	cmd := &cobra.Command{
		Use:          "partyhubd",
		Short:        "Party membership service",
		Long:         "partyhubd keeps per-user party caches in sync with the lobby service and exposes them over a REST API.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := log.New("info", console)
			cfg, cfgPath, err := config.Load(bootLog, configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("lobby-url") {
				cfg.LobbyURL = lobbyURL
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			logger := log.New(cfg.LogLevel, console)
			logger.Info().Str("config", cfgPath).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Str("lobby_url", cfg.LobbyURL).Msg("starting partyhub server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&lobbyURL, "lobby-url", "", "lobby websocket URL")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().BoolVar(&console, "console", false, "human-readable console logging")

	return cmd
}
