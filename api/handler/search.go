package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jobsift/config"
	"github.com/use-agent/jobsift/engine"
	"github.com/use-agent/jobsift/models"
	"github.com/use-agent/jobsift/pipeline"
)

// Search returns a handler for POST /api/v1/search.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Run the scrape pipeline (listing fetch → parse → detail loop → merge).
//  3. Fill Timing, return 200 with jobs + diagnostics.
//
// Only a listing-fetch failure produces an error response; per-item
// failures travel back inside the diagnostics.
func Search(eng engine.Engine, searchCfg config.SearchConfig, engineCfg config.EngineConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

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
		req.Defaults()

		// ── 2. Pick the engine ──────────────────────────────────────
		// A per-request proxy override cannot reuse the shared engine;
		// build a one-off HTTP engine bound to that proxy.
		runEng := eng
		if req.ProxyURL != "" {
			override, err := engine.NewHTTPEngine(req.ProxyURL, engineCfg.HTTPTimeout)
			if err != nil {
				c.JSON(http.StatusBadRequest, models.SearchResponse{
					Success: false,
					Error: &models.ErrorDetail{
						Code:    models.ErrCodeInvalidInput,
						Message: "invalid proxy_url: " + err.Error(),
					},
				})
				return
			}
			runEng = override
		}

		// ── 3. Run the pipeline ─────────────────────────────────────
		p := pipeline.New(runEng, pipeline.Options{
			SearchURL:   req.SearchURL,
			MaxDetails:  *req.MaxDetails,
			ListingOnly: req.ListingOnly,
			DetailRPS:   searchCfg.DetailRPS,
		})
		p.SetOutput(io.Discard)

		result, err := p.Run(c.Request.Context())
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		// ── 4. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, models.SearchResponse{
			Success:     true,
			Jobs:        result.Jobs,
			TotalCount:  result.TotalCount,
			Diagnostics: result.Diagnostics,
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				ListingMs: result.Timing.ListingMs,
				DetailMs:  result.Timing.DetailMs,
			},
		})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.SearchResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeListingFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
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
