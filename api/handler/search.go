package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/placescout/cache"
	"github.com/use-agent/placescout/models"
	"github.com/use-agent/placescout/scraper"
	"github.com/use-agent/placescout/webhook"
)

// Runner executes a search. *scraper.Scraper satisfies it.
type Runner interface {
	Run(ctx context.Context, q models.SearchQuery) ([]models.ResultRecord, error)
	Stats() scraper.Stats
}

// Search returns a handler for POST /api/v1/search.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when max_age is set.
//  3. Runner.Run (serialised: one browser session at a time).
//  4. Cache store, webhook notification, respond.
func Search(runner Runner, cc *cache.Cache, notifier *webhook.Notifier, defaultTerm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults(defaultTerm)

		q, err := models.NewSearchQuery(req.Term, req.Country, req.Limit)
		if err != nil {
			respondError(c, err, q, start)
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		maxAge := time.Duration(req.MaxAge) * time.Millisecond
		key := cache.Key(q)
		if cc != nil && maxAge > 0 {
			if cached, hit := cc.Get(key, maxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Run ──────────────────────────────────────────────────
		records, err := runner.Run(c.Request.Context(), q)
		if err != nil {
			notifier.DeliverAsync(webhook.NewEvent(webhook.EventSearchFailed, models.RunSummary{
				Query:      q,
				DurationMs: time.Since(start).Milliseconds(),
				Error:      toScrapeError(err).ToDetail(),
			}))
			respondError(c, err, q, start)
			return
		}

		resp := models.SearchResponse{
			Success: true,
			Query:   q,
			Count:   len(records),
			Records: records,
			Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		}

		// ── 4. Cache store + notify ─────────────────────────────────
		if cc != nil && maxAge > 0 {
			cc.Set(key, resp)
			resp.CacheStatus = "miss"
		}
		notifier.DeliverAsync(webhook.NewEvent(webhook.EventSearchCompleted, models.RunSummary{
			Query:      q,
			Count:      len(records),
			DurationMs: resp.Timing.TotalMs,
		}))

		c.JSON(http.StatusOK, resp)
	}
}

func toScrapeError(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
}

// respondError maps a ScrapeError to the matching HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error, q models.SearchQuery, start time.Time) {
	se := toScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.SearchResponse{
		Success: false,
		Query:   q,
		Error:   se.ToDetail(),
		Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout, models.ErrCodeExhausted:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeFatalFetch, models.ErrCodeExtraction:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
