package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"predictmax/internal/market"
	"predictmax/internal/search"
	"predictmax/internal/service"
)

// AdvisorHandler exposes discovery, analysis and scans under /api/v1.
type AdvisorHandler struct {
	Advisor *service.Advisor
	Logger  *zap.Logger
}

func (h *AdvisorHandler) Register(r gin.IRouter) {
	group := r.Group("/api/v1")
	group.GET("/markets", h.listMarkets)
	group.GET("/markets/:id", h.getMarket)
	group.GET("/markets/:id/analysis", h.analyzeMarket)
	group.GET("/opportunities/best", h.bestOpportunity)
	group.GET("/recommendations", h.listRecommendations)
	group.POST("/catalog/refresh", h.refreshCatalog)
}

// @Summary Search markets
// @Tags markets
// @Security BearerAuth
// @Param platform query string false "kalshi|polymarket"
// @Param category query string false "category"
// @Param q query string false "free-text query"
// @Param entity query []string false "entity names (repeatable)"
// @Param head_to_head query bool false "require every entity to match"
// @Param min_volume query number false "minimum 24h volume"
// @Param min_liquidity query string false "LOW|MEDIUM|HIGH"
// @Param min_end_date query string false "YYYY-MM-DD"
// @Param max_end_date query string false "YYYY-MM-DD"
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/v1/markets [get]
func (h *AdvisorHandler) listMarkets(c *gin.Context) {
	filters, ok := bindFilters(c)
	if !ok {
		return
	}
	items := h.Advisor.Search(service.SearchRequest{
		Filters:    filters,
		Entities:   c.QueryArray("entity"),
		HeadToHead: boolQueryDefault(c, "head_to_head", false),
	})
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Get market
// @Tags markets
// @Security BearerAuth
// @Param id path string true "market id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/markets/{id} [get]
func (h *AdvisorHandler) getMarket(c *gin.Context) {
	m, err := h.Advisor.Market(c.Param("id"))
	if err != nil {
		Error(c, statusFor(err), err.Error(), nil)
		return
	}
	Ok(c, m, nil)
}

// @Summary Analyze market
// @Description Runs the probability ensemble, risk assessment and recommendation for one market.
// @Tags markets
// @Security BearerAuth
// @Param id path string true "market id"
// @Param bankroll query number false "bankroll in USD"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/markets/{id}/analysis [get]
func (h *AdvisorHandler) analyzeMarket(c *gin.Context) {
	bankroll, ok := bankrollQuery(c)
	if !ok {
		return
	}
	out, err := h.Advisor.Analyze(c.Request.Context(), c.Param("id"), bankroll)
	if err != nil {
		Error(c, statusFor(err), err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}

// @Summary Find the best opportunity
// @Description Screens open catalog markets and returns the best recommendation plus alternatives.
// @Tags opportunities
// @Security BearerAuth
// @Param bankroll query number false "bankroll in USD"
// @Param platform query string false "kalshi|polymarket"
// @Param category query string false "category"
// @Param min_volume query number false "minimum 24h volume"
// @Param min_liquidity query string false "LOW|MEDIUM|HIGH"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/opportunities/best [get]
func (h *AdvisorHandler) bestOpportunity(c *gin.Context) {
	filters, ok := bindFilters(c)
	if !ok {
		return
	}
	bankroll, ok := bankrollQuery(c)
	if !ok {
		return
	}
	report, err := h.Advisor.FindBest(c.Request.Context(), filters, bankroll, "api")
	if err != nil {
		Error(c, statusFor(err), err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}

// @Summary List recommendations
// @Tags opportunities
// @Security BearerAuth
// @Param scan_id query string false "scan id"
// @Param market_id query string false "market id"
// @Param action query string false "BUY|WAIT"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/recommendations [get]
func (h *AdvisorHandler) listRecommendations(c *gin.Context) {
	q := service.RecommendationQuery{
		MarketID: c.Query("market_id"),
		Action:   c.Query("action"),
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("scan_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid scan_id", nil)
			return
		}
		q.ScanID = &id
	}
	items, err := h.Advisor.Recommendations(c.Request.Context(), q)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list recommendations failed", zap.Error(err))
		}
		Error(c, statusFor(err), err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": q.Limit, "offset": q.Offset, "count": len(items)})
}

// @Summary Refresh catalog
// @Description Collects markets from every source, attaches external odds and stores snapshots.
// @Tags catalog
// @Security BearerAuth
// @Success 200 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/v1/catalog/refresh [post]
func (h *AdvisorHandler) refreshCatalog(c *gin.Context) {
	stats, err := h.Advisor.Refresh(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("catalog refresh failed", zap.Error(err))
		}
		Error(c, statusFor(err), err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func bindFilters(c *gin.Context) (search.Filters, bool) {
	var f search.Filters
	if err := c.ShouldBindQuery(&f); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return f, false
	}
	f.MinLiquidity = market.LiquidityTier(strings.ToUpper(strings.TrimSpace(string(f.MinLiquidity))))
	f.Category = market.Category(strings.ToLower(strings.TrimSpace(string(f.Category))))
	return f, true
}

// bankrollQuery returns zero when absent so sizing falls back to the default bankroll.
func bankrollQuery(c *gin.Context) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(c.Query("bankroll"))
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		Error(c, http.StatusBadRequest, "invalid bankroll", nil)
		return decimal.Zero, false
	}
	return d, true
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}
