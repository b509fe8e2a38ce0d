package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/notify-dispatch/internal/handler"
	"github.com/kursadbilgin/notify-dispatch/internal/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the notification HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.bootstrap(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer rt.close() //nolint:errcheck

			if port == 0 {
				port = rt.cfg.APIPort
			}

			app, err := newServer(rt)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := net.JoinHostPort("", strconv.Itoa(port))
			return runServer(ctx, app, addr, rt.logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (defaults to API_PORT)")

	return cmd
}

func newServer(rt *runtime) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               "notify-dispatch",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(rt.logger),
	})

	app.Use(requestid.New())
	app.Use(rt.metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(rt.metrics.Handler()))

	handler.RegisterHealthRoutes(app, rt.email, rt.whatsapp)
	if err := handler.RegisterNotificationRoutes(app, rt.email, rt.whatsapp); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return app, nil
}

// runServer listens on addr until ctx is cancelled, then shuts the app down.
func runServer(ctx context.Context, app *fiber.App, addr string, logger *zap.Logger) error {
	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("notify-dispatch api started", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down http server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
