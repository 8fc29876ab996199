package health

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	healthsvc "library-backend/internal/application/health"
	"library-backend/internal/middleware"
	"library-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const serviceName = "library-loans-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	Loans          healthsvc.LoanCounter
	Signals        healthsvc.SignalBacklog
	HealthAdminKey string
}

func (h *Handlers) collect(ctx context.Context) healthsvc.CollectResult {
	return healthsvc.CollectHealth(ctx, healthsvc.Sources{
		Redis:   h.Rdb,
		DB:      h.DB,
		Loans:   h.Loans,
		Signals: h.Signals,
	})
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	if h.Rdb == nil {
		return response.Error(c, "Redis not configured", fiber.StatusServiceUnavailable, nil)
	}
	ctx := context.Background()
	keys := []string{middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime, middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq, middleware.KeyErrorLog}
	if err := h.Rdb.Del(ctx, keys...).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	if err := h.Rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON returns health data as JSON: service, status, runtime, traffic, dependencies, loans.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.collect(c.UserContext())
	out := map[string]interface{}{
		"service":        serviceName,
		"status":         result.Status,
		"runtime":        result.Runtime,
		"traffic":        result.Traffic,
		"dependencies":   result.Dependencies,
		"loans":          result.Loans,
		"pendingSignals": result.PendingSignals,
		"failingSignals": result.FailingSignals,
	}
	return c.JSON(out)
}

// Errors returns the last 50 error log entries from Redis (LRANGE health:global:error_log 0 49).
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if h.Rdb == nil {
		return c.JSON([]interface{}{})
	}
	ctx := context.Background()
	entries, err := h.Rdb.LRange(ctx, middleware.KeyErrorLog, 0, 49).Result()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	errors := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if _ = json.Unmarshal([]byte(s), &m); m != nil {
			errors = append(errors, m)
		}
	}
	return c.JSON(errors)
}

// Dashboard returns the HTML health status page with embedded health data.
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	html := healthsvc.RenderDashboardHTML(h.collect(c.UserContext()))
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(html)
}
