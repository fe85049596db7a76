package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rairaimanish/kidsGPT/internal/api"
	"github.com/rairaimanish/kidsGPT/internal/auth"
	"github.com/rairaimanish/kidsGPT/internal/tracker"
	"github.com/rairaimanish/kidsGPT/internal/websocket"
)

const eventBufferSize = 256

func newServeCommand(configPath *string) *cobra.Command {
	var (
		addr       string
		printToken bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			server := a.cfg.Server
			if addr != "" {
				server.Addr = addr
			}

			issuer, err := auth.NewIssuer(server.JWTSecret, time.Duration(server.TokenTTLHours)*time.Hour)
			if err != nil {
				return fmt.Errorf("server.jwt_secret: %w", err)
			}
			if printToken {
				token, expiresAt, err := issuer.GenerateToken("local", auth.RoleOperator)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				a.logger.Info("Printed operator token", zap.Time("expiresAt", expiresAt))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			assistant, runTracker, runs, err := a.newAssistant(ctx, io.Discard, tracker.WithEvents(eventBufferSize))
			if err != nil {
				return err
			}

			hub := websocket.NewHub(a.logger)
			go hub.Run(ctx)
			go hub.Forward(ctx, runTracker.EventChannel())

			handler, err := api.NewHandler(assistant, runs, hub, a.metrics, api.Config{
				OutputDir:      server.OutputDir,
				MaxUploadBytes: int64(server.MaxUploadMB) << 20,
			}, a.logger)
			if err != nil {
				return err
			}

			e := echo.New()
			e.HideBanner = true
			e.Use(middleware.Recover())
			e.Use(middleware.CORS())
			e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
				LogURI:     true,
				LogMethod:  true,
				LogStatus:  true,
				LogLatency: true,
				LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
					a.logger.Info("Request",
						zap.String("method", v.Method),
						zap.String("uri", v.URI),
						zap.Int("status", v.Status),
						zap.Duration("latency", v.Latency))
					return nil
				},
			}))
			api.InitRoutes(e, handler, issuer, a.registry)

			errCh := make(chan error, 1)
			go func() {
				if err := e.Start(server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			a.logger.Info("Server started", zap.String("addr", server.Addr))

			select {
			case err := <-errCh:
				a.logger.Error("Server failed", zap.Error(err))
				return err
			case <-ctx.Done():
			}

			a.logger.Info("Server is shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			a.logger.Info("Server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to server.addr")
	cmd.Flags().BoolVar(&printToken, "print-token", false, "print an operator API token before serving")
	return cmd
}
