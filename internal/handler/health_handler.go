package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/response"
)

// Pinger is satisfied by database.Stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the backends answer.
type HealthHandler struct {
	stores  Pinger
	timeout time.Duration
}

func NewHealthHandler(stores Pinger) *HealthHandler {
	return &HealthHandler{stores: stores, timeout: 2 * time.Second}
}

// Check godoc
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.stores.Ping(ctx); err != nil {
		response.Logger(c).Warn().Err(err).Msg("Health check failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUnavailable)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}
