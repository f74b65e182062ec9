package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"csgo-seller/internal/models"
)

// StatusSource exposes what the seller is doing. *reconciler.Reconciler implements it.
type StatusSource interface {
	Progress() []models.TradeProgress
	LastSellReport() *models.SellReport
}

type APIHandler struct {
	status  StatusSource
	started time.Time
}

// NewRouter builds the status server: health check, metrics and the /api/v1 group.
func NewRouter(status StatusSource) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	SetupRoutes(r.Group("/api/v1"), status)
	return r
}

func SetupRoutes(r *gin.RouterGroup, status StatusSource) *APIHandler {
	handler := &APIHandler{
		status:  status,
		started: time.Now(),
	}

	r.GET("/trades", handler.ListTrades)
	r.GET("/sell", handler.GetSellReport)

	return handler
}

// ListTrades 返回对账器当前记录的交易，可按 state 过滤
func (h *APIHandler) ListTrades(c *gin.Context) {
	trades := h.status.Progress()

	if state := strings.ToUpper(c.Query("state")); state != "" {
		filtered := trades[:0]
		for _, t := range trades {
			if t.State.String() == state {
				filtered = append(filtered, t)
			}
		}
		trades = filtered
	}
	if trades == nil {
		trades = []models.TradeProgress{}
	}

	c.JSON(http.StatusOK, gin.H{
		"trades":         trades,
		"count":          len(trades),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// GetSellReport 返回最近一次出售结果
func (h *APIHandler) GetSellReport(c *gin.Context) {
	report := h.status.LastSellReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sell cycle has finished yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
		"sold":   report.Count(),
		"total":  float64(report.TotalCost) / 100,
	})
}
