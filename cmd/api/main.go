package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffee-bridge/internal"
	"coffee-bridge/pkg/profiling"
	"coffee-bridge/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"resty.dev/v3"
)

func main() {
	slog.SetLogLoggerLevel(logLevel(utils.GetEnvOrSetDefault("LOG_LEVEL", "info")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	// The provider is expected to redeliver dropped notifications, so the
	// client carries the lookup timeout but no retry policy.
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetTransport(tr).
		AddResponseMiddleware(func(c *resty.Client, resp *resty.Response) error {
			slog.Debug("provider request completed",
				"method", resp.Request.Method,
				"url", resp.Request.URL,
				"status", resp.StatusCode(),
			)
			return nil
		}).
		OnError(func(req *resty.Request, err error) {
			slog.Error("provider request failed",
				"method", req.Method,
				"url", req.URL,
				"error", err.Error(),
			)
		})
	defer client.Close()

	accessToken := os.Getenv("MP_ACCESS_TOKEN")
	if accessToken == "" {
		slog.Warn("MP_ACCESS_TOKEN is not set, provider calls will be rejected")
	}
	apiUrl := utils.GetEnvOrSetDefault("MP_API_URL", "https://api.mercadopago.com")
	adapter := internal.NewMercadoPagoAdapter(client, apiUrl, accessToken)

	state := internal.NewDonationState()
	dedup := utils.GetEnvBool("WEBHOOK_DEDUP", false)
	reconciler := internal.NewReconciler(adapter, state, 1024, dedup)

	workers := utils.GetEnvInt("WORKERS", 4)
	reconciler.StartWorkers(ctx, workers)

	app := fiber.New(fiber.Config{
		JSONEncoder: sonicMarshal,
		JSONDecoder: sonicUnmarshal,

		CaseSensitive: true,
		StrictRouting: false,
		ServerHeader:  "Fiber",
		AppName:       "Coffee Bridge",
		ErrorHandler:  errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		AllowHeaders: "Origin, X-Requested-With, Content-Type, Accept",
	}))

	handler := internal.NewCoffeeHandler(state, reconciler, adapter)
	handler.RegisterRoutes(app)

	if utils.GetEnvBool("ENABLE_PROFILING", false) {
		if err := profiling.Enable("prof", 2*time.Minute); err != nil {
			slog.Error("failed to enable profiling", "err", err)
		}
	}

	port := utils.GetEnvOrSetDefault("PORT", "3000")
	if err := app.Listen(":" + port); err != nil {
		panic(fmt.Errorf("failed to listen on port %s: %w", port, err))
	}
}

func sonicMarshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func sonicUnmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// errorHandler is the last boundary: anything unhandled (including panics
// surfaced by the recover middleware) becomes a generic 500 and the process
// keeps running.
func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code != fiber.StatusInternalServerError {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	slog.Error("unhandled error", "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func logLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
