// Package health expõe o /health usado pelo balanceador e pelo orquestrador.
package health

import (
	"context"
	"time"

	"central-chamadas-backend/internal/database"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const checkTimeout = 2 * time.Second

// Pinger dependência opcional (cache Redis do CNES).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler 200 com o banco acessível; cache fora do ar só marca "degraded".
func Handler(db *gorm.DB, cache Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), checkTimeout)
		defer cancel()

		body := fiber.Map{"status": "healthy", "database": "ok", "cache": "disabled"}
		if err := database.Ping(ctx, db); err != nil {
			zap.L().Error("health: banco indisponível", zap.Error(err))
			body["status"] = "unhealthy"
			body["database"] = "error"
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}

		if cache != nil {
			body["cache"] = "ok"
			if err := cache.Ping(ctx); err != nil {
				zap.L().Warn("health: cache indisponível", zap.Error(err))
				body["status"] = "degraded"
				body["cache"] = "error"
			}
		}
		return c.JSON(body)
	}
}
