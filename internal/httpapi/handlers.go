package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/followthefloww9/gold-digger/internal/supervisor"
)

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "healthy"})
}

type startRequest struct {
	Paper     bool    `json:"paper"`
	RiskPct   float64 `json:"risk_percentage"`
	MaxRisk   float64 `json:"max_risk_amount"`
}

// handleStart starts the daemon, optionally overriding trading mode
// and risk settings from the request body.
func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	_ = c.ShouldBindJSON(&req) // absent body means "use configured defaults"

	result, err := s.supervisor.Start(c.Request.Context(), req.Paper, req.RiskPct, req.MaxRisk)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if result == supervisor.StartAlreadyRunning {
		c.JSON(http.StatusConflict, gin.H{"error": true, "message": "daemon already running"})
		return
	}
	successResponse(c, gin.H{"result": result})
}

func (s *Server) handleStop(c *gin.Context) {
	result, err := s.supervisor.Stop(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"result": result})
}

func (s *Server) handleForceCleanup(c *gin.Context) {
	if err := s.supervisor.ForceCleanup(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"result": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.supervisor.Status(c.Request.Context())
	successResponse(c, gin.H{
		"overall_status":   st.OverallStatus,
		"daemon_running":   st.DaemonRunning,
		"database_running": st.DatabaseRunning,
		"trading_mode":     st.TradingMode,
		"risk_percentage":  st.RiskPercentage,
		"max_risk_amount":  st.MaxRiskAmount,
		"last_heartbeat":   st.LastHeartbeat,
		"uptime_seconds":   st.Uptime.Seconds(),
		"trades_today":     st.TradesToday,
		"open_positions":   st.OpenPositions,
		"session_id":       st.SessionID,
	})
}

func (s *Server) handleGetPositions(c *gin.Context) {
	successResponse(c, s.executor.Positions())
}

func (s *Server) handleClosePosition(c *gin.Context) {
	ticket, err := strconv.ParseUint(c.Param("ticket"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid ticket")
		return
	}
	if err := s.executor.CloseManual(c.Request.Context(), ticket); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"ticket": ticket, "status": "closed"})
}

func (s *Server) handleCloseAll(c *gin.Context) {
	if err := s.executor.LiquidateAll(c.Request.Context()); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"status": "all positions closed"})
}

func (s *Server) handleDailyMetrics(c *gin.Context) {
	dateStr := c.Query("date")
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if dateStr != "" {
		if parsed, err := time.Parse("2006-01-02", dateStr); err == nil {
			date = parsed
		}
	}
	m, err := s.db.DailyMetricsFor(c.Request.Context(), date)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, m)
}

func (s *Server) handleTodayMetrics(c *gin.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	m, err := s.db.DailyMetricsFor(c.Request.Context(), today)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, m)
}
