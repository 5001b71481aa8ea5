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

	"github.com/frahmantamala/cost-tracker/api"
	"github.com/frahmantamala/cost-tracker/internal/cost"
	"github.com/frahmantamala/cost-tracker/internal/transport"
	"github.com/frahmantamala/cost-tracker/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer(cmd.Context())
	},
}

func startHTTPServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := api.Load(ctx); err != nil {
		return fmt.Errorf("invalid API document: %w", err)
	}

	// A store that fails to open leaves the manager uninitialized. The API serves an
	// empty view and mutations answer 503 until a health check reopens it.
	if err := s.manager.Open(ctx); err != nil {
		s.logger.Error("cost store unavailable, serving without it", "error", err)
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Routes{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		Manager:        s.manager,
		CostHandler:    cost.NewHandler(transport.NewBaseHandler(s.logger), s.manager, s.cfg.Filter),
		Logger:         s.logger,
	})

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.logger.Info("Starting HTTP server", "address", addr, "store", s.cfg.Store.Name, "version", s.cfg.Store.Version)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		s.logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	s.logger.Info("Server stopped")
	return nil
}
