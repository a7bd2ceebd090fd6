package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/hushenglang/investment-dashboard/internal/api/http"
	"github.com/hushenglang/investment-dashboard/internal/logger"
	"github.com/hushenglang/investment-dashboard/internal/scheduler"
)

const requestIDKey = "requestid"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the periodic fetch scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := buildApplication(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := deps.Close(); err != nil {
				slog.Error("closing resources failed", "error", err)
			}
		}()

		if cfg.Scheduler.Enabled {
			sched := scheduler.New(deps.service, cfg.Scheduler.Interval, cfg.Scheduler.WindowDays)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()
		}

		app := newFiberApp()
		httpapi.RegisterRoutes(app, deps.service)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			slog.Info("http server starting", "port", cfg.Server.Port)
			return app.Listen(":" + cfg.Server.Port)
		})
		g.Go(func() error {
			<-gctx.Done()
			slog.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		slog.Info("server exited")
		return nil
	},
}

func newFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "investment-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.ErrorContext(c.UserContext(), "request failed",
					"method", c.Method(), "path", c.Path(), "status", code, "error", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestIDKey).(string); ok {
			c.SetUserContext(logger.WithTraceID(c.UserContext(), id))
		}
		return c.Next()
	})
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "investment-dashboard",
		})
	})

	return app
}
