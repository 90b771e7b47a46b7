package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/internal/server"
)

const (
	defaultAddr     = "127.0.0.1:8080"
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the history and generation API on a local address",
		Long: `Serve exposes the history over HTTP for a local front end:

  POST   /api/generate              multipart prompt, mode, key, file
  POST   /api/import                exported creation document
  POST   /api/select/{id}
  POST   /api/reset
  GET    /api/creations
  GET    /api/creations/{id}/export
  DELETE /api/creations/{id}
  GET    /api/active                HTML of the active creation`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.close()

			srv := server.New(ws.ctrl,
				server.WithLogger(e.logger),
				server.WithGenerateTimeout(e.settings.Timeout),
			)

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", ln.Addr())
			return serve(cmd.Context(), ln, srv.Handler(), e.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	return cmd
}

// serve runs handler on ln until ctx is cancelled, then shuts down.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *zap.Logger) error {
	hs := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.String("addr", ln.Addr().String()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
