package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/humanitybadge/cli/internal/api"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// ServeInput holds input for the local API server.
type ServeInput struct {
	Addr string
}

// Serve runs the local API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, svc api.Service, in ServeInput) error {
	srv := &http.Server{
		Addr:              in.Addr,
		Handler:           api.NewServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api listening", "addr", in.Addr, "docs", "http://"+in.Addr+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	pterm.Info.Printf("Serving API on http://%s (docs at /docs)\n", in.Addr)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown failed", "error", err)
		return err
	}
	pterm.Info.Println("API server stopped")
	return nil
}

// --- Cobra wiring ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API used by the browser extension",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default BADGE_LISTEN_ADDR or 127.0.0.1:8787)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = getConfig(cmd).ListenAddr
	}
	return Serve(cmd.Context(), getService(cmd), ServeInput{Addr: addr})
}
