package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	rabbit      *persistence.RabbitMQ
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. Disabled dependencies are
// reported but do not fail readiness. rabbit may be nil.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, rabbit *persistence.RabbitMQ, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis, rabbit: rabbit, metrics: metrics}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	switch {
	case !h.postgres.Enabled():
		depStatus["store"] = "memory"
	case h.postgres.Ping(ctx) != nil:
		depStatus["store"] = "postgres unreachable"
		ready = false
	default:
		depStatus["store"] = "ok"
	}

	switch {
	case !h.redis.Enabled():
		depStatus["redis"] = "disabled"
	case h.redis.Ping(ctx) != nil:
		depStatus["redis"] = "unreachable"
		ready = false
	default:
		depStatus["redis"] = "ok"
	}

	// a broker outage never fails readiness
	depStatus["notifications"] = h.rabbit.Status()

	if ready {
		return ok(c, fiber.StatusOK, fiber.Map{"status": "ready", "dependencies": depStatus})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(
		dto.Failure("DEPENDENCY_UNAVAILABLE", "one or more dependencies unavailable", depStatus))
}

// Metrics GET /health/metrics.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, h.metrics.Snapshot())
}
