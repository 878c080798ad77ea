package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(configPath *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, logger, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer container.Close()

			if migrate {
				if err := container.Migrate(ctx); err != nil {
					return err
				}
			}

			sc := container.Config().Server
			srv := &http.Server{
				Addr:         sc.Address,
				Handler:      container.Handler(),
				ReadTimeout:  sc.ReadTimeout,
				WriteTimeout: sc.WriteTimeout,
				IdleTimeout:  60 * time.Second,
			}
			return serve(ctx, srv, sc.ShutdownTimeout, logger)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create the store schema before serving")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down within timeout.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
