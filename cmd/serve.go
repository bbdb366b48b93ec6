package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxdna/timegate/internal/api"
	"github.com/fluxdna/timegate/internal/audit"
	"github.com/fluxdna/timegate/internal/config"
	"github.com/fluxdna/timegate/internal/core"
	"github.com/fluxdna/timegate/internal/gate"
	"github.com/fluxdna/timegate/internal/policy"
	"github.com/fluxdna/timegate/internal/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Timegate server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr == "" {
			addr = cfg.Server.Addr
		}
		if cfg.Server.SigningKey == "" {
			return fmt.Errorf("no signing key configured (server.signing_key or TIMEGATE_SIGNING_KEY)")
		}

		log.Info().Str("type", cfg.Store.Type).Msg("Initializing counter store...")
		kv, err := store.Build(cfg.Store.Type, cfg.Store.Config)
		if err != nil {
			return fmt.Errorf("building store: %w", err)
		}
		defer func() {
			_ = kv.Close()
		}()

		// fail fast if the store is unreachable at startup; at runtime an
		// outage denies access instead of crashing
		pingCtx, cancelPing := context.WithTimeout(cmd.Context(), 5*time.Second)
		if err := kv.Ping(pingCtx); err != nil {
			cancelPing()
			return fmt.Errorf("counter store unreachable: %w", err)
		}
		cancelPing()

		auditor, err := buildAuditor(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			_ = auditor.Close()
		}()

		policies, err := policy.New(cfg.Policies)
		if err != nil {
			return fmt.Errorf("building policy engine: %w", err)
		}

		svc := gate.NewService(kv, auditor, policies, gate.Config{
			BaseURL:        cfg.Server.BaseURL,
			AuditRetention: cfg.Links.AuditRetention(),
		})

		srv := api.NewServer(svc, auditor, api.Defaults{
			MaxClicks: cfg.Links.DefaultMaxClicks,
			TTL:       cfg.Links.DefaultTTL(),
		})

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes([]byte(cfg.Server.SigningKey)),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func buildAuditor(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "file":
		return audit.NewFileAuditor(cfg.Path)
	case "", "memory":
		return audit.NewInMemoryAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Type)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (overrides config)")
}
