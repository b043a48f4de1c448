package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/instalens/instalens/internal/accounts"
	"github.com/instalens/instalens/internal/models"
	"github.com/instalens/instalens/internal/scrape"
	"github.com/instalens/instalens/internal/version"
)

// PoolReader exposes pool counts.
type PoolReader interface {
	Status() accounts.Status
}

// Reactivator re-enables a deactivated account.
type Reactivator interface {
	Reactivate(id string) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	Pool    accounts.Status `json:"pool"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool PoolReader
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool PoolReader) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Handle returns the health status.
func (h *HealthHandler) Handle(ctx context.Context) *HealthResponse {
	return &HealthResponse{
		Status:  "healthy",
		Version: version.Get().Version,
		Pool:    h.pool.Status(),
	}
}

// PoolStatusHandler reports live pool counts to operators.
type PoolStatusHandler struct {
	pool PoolReader
}

// NewPoolStatusHandler creates a new pool status handler.
func NewPoolStatusHandler(pool PoolReader) *PoolStatusHandler {
	return &PoolStatusHandler{pool: pool}
}

// Handle returns the pool counts.
func (h *PoolStatusHandler) Handle(ctx context.Context) *models.PoolStatusResponse {
	s := h.pool.Status()
	return &models.PoolStatusResponse{
		Total:      s.Total,
		Active:     s.Active,
		Available:  s.Available,
		InCooldown: s.InCooldown,
	}
}

// ReactivateHandler re-enables a deactivated account and closes the
// driver-fatal breaker, both operator actions.
type ReactivateHandler struct {
	pool    Reactivator
	breaker *scrape.Breaker
	logger  *slog.Logger
}

// NewReactivateHandler creates a new reactivate handler.
func NewReactivateHandler(pool Reactivator, breaker *scrape.Breaker, logger *slog.Logger) *ReactivateHandler {
	return &ReactivateHandler{pool: pool, breaker: breaker, logger: logger}
}

// Handle reactivates the requested account.
func (h *ReactivateHandler) Handle(ctx context.Context, req *models.ReactivateRequest) (int, *models.ReactivateResponse) {
	if err := h.pool.Reactivate(req.AccountID); err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return http.StatusNotFound, &models.ReactivateResponse{
				Status:  "error",
				Message: "no such account",
			}
		}
		h.logger.Error("reactivation failed", "account_id", req.AccountID, "error", err)
		return http.StatusInternalServerError, &models.ReactivateResponse{
			Status:  "error",
			Message: "reactivation failed",
		}
	}

	// A manual reactivation is the operator saying the environment is fixed.
	h.breaker.Reset()

	h.logger.Info("account reactivated by operator", "account_id", req.AccountID)
	return http.StatusOK, &models.ReactivateResponse{
		Status:  "success",
		Message: "account reactivated",
	}
}
