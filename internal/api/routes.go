package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/store"
)

func RegisterRoutes(app *fiber.App, nc *nats.Conn, st store.Store, handler *Handler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if nc == nil || !nc.IsConnected() {
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
			checks["nats"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// API routes
	v1 := app.Group("/api/v1")
	v1.Get("/rates/:token/:amount/:fiat", handler.GetRateHandler)
	v1.Get("/currencies", handler.CurrenciesHandler)
	v1.Get("/institutions/:currency", handler.InstitutionsHandler)
	v1.Post("/orders", handler.CreateOrderHandler)
	v1.Get("/orders/:id", handler.GetOrderHandler)
	v1.Post("/verify-account", handler.VerifyAccountHandler)
	v1.Get("/transactions", handler.ListTransactionsHandler)
}
