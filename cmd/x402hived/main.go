// Command x402hived serves the payment-gated service-deployment API: it
// wires configuration, the facilitator client, the Hive vendor adapter, and
// the payment interceptor middleware, then starts the HTTP server.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/sahara-labs/x402-hive/pkg/apperr"
	"github.com/sahara-labs/x402-hive/pkg/facilitatorclient"
	"github.com/sahara-labs/x402-hive/pkg/price"
	"github.com/sahara-labs/x402-hive/pkg/service"
	"github.com/sahara-labs/x402-hive/pkg/deployvendor/hive"
	"github.com/sahara-labs/x402-hive/pkg/x402config"
	"github.com/sahara-labs/x402-hive/pkg/x402mw"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := x402config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	facilitator := facilitatorclient.New(cfg.FacilitatorBaseURL)
	deployer := hive.New(cfg.HiveBaseURL, cfg.HiveAccount, cfg.HiveTokenHeaderName, cfg.HiveToken, logger)
	svc := service.New(deployer)

	// No price calculators are registered yet; the deploy route is priced
	// statically via X402_PRICE. A calculator-backed route can populate
	// this registry before passing it to x402mw.Payment.
	calculators := price.Registry{}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(apperr.Middleware())

	meta := x402mw.RouteMetadata{
		Price:       getEnvOrDefault("X402_PRICE", "0.01"),
		Description: "Deploy a service to Hive",
	}

	router.POST("/apis/x402/v1/services",
		x402mw.Payment(cfg, meta, facilitator, calculators, logger),
		createServiceHandler(svc))
	router.GET("/apis/x402/v1/services/:id", statusHandler(svc))

	addr := cfg.Host + ":" + cfg.Port
	logger.Info("starting x402hived", "addr", addr, "x402_enabled", cfg.Enabled)

	if err := router.Run(addr); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func createServiceHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd service.ServiceCreationCmd
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.Error(&apperr.ValidationError{Message: "request body is not valid JSON: " + err.Error()})
			c.Abort()
			return
		}

		result, err := svc.Create(cmd)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		if payload, ok := x402mw.PayerFromContext(c); ok {
			slog.Default().Info("service created", "service_id", result.ID, "network", payload.Network)
		}

		c.JSON(http.StatusCreated, gin.H{"id": result.ID, "name": result.Name})
	}
}

func statusHandler(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			c.Error(&apperr.ValidationError{Field: "id", Message: "must not be blank"})
			c.Abort()
			return
		}

		status, err := svc.Status(id)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":      status.ID,
			"name":    status.Name,
			"url":     status.URL,
			"ready":   status.Ready,
			"message": status.Message,
			"extra":   status.Extra,
		})
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
