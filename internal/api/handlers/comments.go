// Package handlers provides HTTP handlers for the instalens API.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/instalens/instalens/internal/models"
	"github.com/instalens/instalens/internal/scrape"
)

// Scraper runs one comment-scraping flow.
type Scraper interface {
	ScrapeComments(ctx context.Context, targetURL, filter string) (*scrape.Result, error)
}

// CommentsHandler handles comment-scraping requests.
type CommentsHandler struct {
	scraper Scraper
	logger  *slog.Logger
}

// NewCommentsHandler creates a new comments handler.
func NewCommentsHandler(scraper Scraper, logger *slog.Logger) *CommentsHandler {
	return &CommentsHandler{scraper: scraper, logger: logger}
}

// Handle runs a scrape and maps the outcome to an HTTP status and body.
func (h *CommentsHandler) Handle(ctx context.Context, req *models.CommentsRequest) (int, *models.CommentsResponse) {
	result, err := h.scraper.ScrapeComments(ctx, req.PostURL, req.Filter)
	if err != nil {
		kind := scrape.KindOf(err)
		h.logger.Warn("scrape failed", "url", req.PostURL, "kind", kind, "error", err)

		message := err.Error()
		var se *scrape.Error
		if errors.As(err, &se) {
			message = se.Message
		}
		return statusForKind(kind), models.NewErrorResponse(string(kind), message, nil)
	}

	message := fmt.Sprintf("Found %d comments", result.Debug.CommentsFound)
	if len(result.Comments) != result.Debug.CommentsFound {
		message = fmt.Sprintf("Found %d comments, %d matched the filter",
			result.Debug.CommentsFound, len(result.Comments))
	}
	return http.StatusOK, models.NewSuccessResponse(result.Comments, message, &result.Debug)
}

// statusForKind maps a scrape failure kind to an HTTP status. Pool
// exhaustion is backpressure, not an upstream fault, hence 503.
func statusForKind(kind scrape.Kind) int {
	switch kind {
	case scrape.KindInput:
		return http.StatusBadRequest
	case scrape.KindPoolExhausted:
		return http.StatusServiceUnavailable
	case scrape.KindAuth, scrape.KindExtraction:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
