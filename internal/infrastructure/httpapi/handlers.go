package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"PriceWatcher/internal/domain"
	"PriceWatcher/internal/ports"
	"PriceWatcher/internal/usecase"
)

const (
	defaultLimit  = 50
	defaultOffset = 0
)

// ErrSiteRequired is reported when a history request has no site parameter.
var ErrSiteRequired = errors.New("Site parameter is required")

type handler struct {
	state   StateReader
	repo    ports.PriceRepository
	scraper Scraper
	limiter *rate.Limiter
	logger  *slog.Logger
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) prices(c *gin.Context) {
	sites := []domain.SiteState{}
	if h.state != nil {
		sites = h.state.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}

func (h *handler) priceHistory(c *gin.Context) {
	site := c.Query("site")
	if site == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrSiteRequired.Error()})
		return
	}
	limit := queryInt(c, "limit", defaultLimit)

	rows, err := h.repo.ListBySite(c.Request.Context(), site, limit)
	if err != nil {
		h.storeFailure(c, "list by site", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": site, "priceHistory": nonNil(rows)})
}

func (h *handler) priceHistoryPaginated(c *gin.Context) {
	site := c.Query("site")
	if site == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrSiteRequired.Error()})
		return
	}
	offset := queryInt(c, "offset", defaultOffset)
	limit := queryInt(c, "limit", defaultLimit)

	page, err := h.repo.ListBySitePaginated(c.Request.Context(), site, offset, limit)
	if err != nil {
		h.storeFailure(c, "list by site paginated", err)
		return
	}
	page.Data = nonNil(page.Data)
	c.JSON(http.StatusOK, page)
}

func (h *handler) priceHistoryRecent(c *gin.Context) {
	limit := queryInt(c, "limit", defaultLimit)

	rows, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.storeFailure(c, "list recent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"priceHistory": nonNil(rows)})
}

func (h *handler) scrape(c *gin.Context) {
	if h.scraper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scraper is not available"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many scrape requests"})
		return
	}

	sites, err := h.scraper.Trigger(c.Request.Context())
	switch {
	case errors.Is(err, usecase.ErrCycleInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Scrape already in progress"})
	case err != nil:
		if h.logger != nil {
			h.logger.Error("on-demand scrape failed", "error", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"sites": sites})
	}
}

func (h *handler) storeFailure(c *gin.Context, op string, err error) {
	if h.logger != nil {
		h.logger.Error("price store query failed", "op", op, "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch price history"})
}

// queryInt reads a non-negative integer parameter, falling back to def
// when it is absent, malformed or negative.
func queryInt(c *gin.Context, key string, def int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func nonNil(rows []domain.PriceRecord) []domain.PriceRecord {
	if rows == nil {
		return []domain.PriceRecord{}
	}
	return rows
}
