package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mcptransport "github.com/spec-kit/ticket-board/internal/api/mcp"
	"github.com/spec-kit/ticket-board/internal/auth"
	"github.com/spec-kit/ticket-board/internal/config"
	"github.com/spec-kit/ticket-board/internal/observability"
	"github.com/spec-kit/ticket-board/internal/persistence"
	"github.com/spec-kit/ticket-board/internal/repository"
	"github.com/spec-kit/ticket-board/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pool := pg.PoolHandle()
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       repository.NewTicketRepository(pool),
		OrganizationRepo: repository.NewOrganizationRepository(pool),
	})

	deps := mcptransport.Dependencies{
		Service: ticketService,
		Logger:  logger,
	}
	if cfg.MCP.Mode == config.MCPModeAuthenticated {
		// Session JWTs are verified locally against the provider JWKS;
		// no per-call provider round trip.
		verifier, err := auth.NewJWKSVerifier(cfg.Stytch, nil)
		if err != nil {
			logger.Fatal("failed to init jwks verifier", zap.Error(err))
		}
		deps.Verifier = verifier
	}

	mcpServer := mcptransport.NewServer(cfg.App.Name+"-mcp", cfg.App.Version, cfg.MCP.Mode, deps)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpServer.Handler())
	mux.HandleFunc("/.well-known/oauth-protected-resource", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(auth.NewProtectedResourceMetadata(cfg.App.BaseURL, cfg.Stytch.Domain))
	})

	httpServer := &http.Server{
		Addr:              cfg.MCP.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("mcp server listening",
			zap.String("addr", cfg.MCP.Addr()),
			zap.String("mode", string(cfg.MCP.Mode)))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("mcp listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
