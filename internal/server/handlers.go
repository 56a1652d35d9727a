package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bonzoholda/shitbot-metrics-tracker/internal/service"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/storage"
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/wallet"
)

type registerRequest struct {
	Endpoint string `json:"endpoint"`
	// Wallet is optional; when absent the endpoint is probed for it.
	Wallet string `json:"wallet"`
}

type seriesPoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

type seriesResponse struct {
	Data     []seriesPoint `json:"data"`
	Baseline float64       `json:"baseline"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	endpoint := strings.TrimRight(strings.TrimSpace(req.Endpoint), "/")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing client URL"})
		return
	}

	rawWallet := req.Wallet
	if rawWallet == "" {
		stats, err := s.stats.FetchStats(c.Request.Context(), endpoint)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Failed to query client: " + err.Error()})
			return
		}
		if stats.Wallet == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Wallet missing from client"})
			return
		}
		rawWallet = stats.Wallet
	}

	normalized, err := wallet.Normalize(rawWallet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid wallet address"})
		return
	}

	if _, err := s.clients.RegisterClient(c.Request.Context(), endpoint, normalized); err != nil {
		if errors.Is(err, storage.ErrAlreadyRegistered) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Client already registered."})
			return
		}
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "storage error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registered successfully", "wallet": normalized})
}

func (s *Server) userSeries(c *gin.Context) {
	normalized, err := wallet.Normalize(c.Param("wallet"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid wallet address"})
		return
	}

	s.respondSeries(c, normalized)
}

func (s *Server) referrerSeries(c *gin.Context) {
	endpoint := strings.TrimRight(strings.TrimSpace(c.Query("client")), "/")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing client URL"})
		return
	}

	rec, err := s.clients.ClientByEndpoint(c.Request.Context(), endpoint)
	if err != nil {
		if errors.Is(err, storage.ErrNotRegistered) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Client not registered"})
			return
		}
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("referrer lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "storage error"})
		return
	}

	s.respondSeries(c, rec.Wallet)
}

func (s *Server) respondSeries(c *gin.Context, walletAddr string) {
	window, err := s.query.GetSeries(c.Request.Context(), walletAddr)
	if err != nil {
		s.logger.Error().Err(err).Str("wallet", walletAddr).Msg("series query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "storage error"})
		return
	}

	c.JSON(http.StatusOK, toSeriesResponse(window))
}

func (s *Server) checkClient(c *gin.Context) {
	normalized, err := wallet.Normalize(c.Query("wallet"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid wallet address"})
		return
	}

	exists, err := s.clients.ExistsByWallet(c.Request.Context(), normalized)
	if err != nil {
		s.logger.Error().Err(err).Str("wallet", normalized).Msg("client check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "storage error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (s *Server) health(c *gin.Context) {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func toSeriesResponse(window service.SeriesWindow) seriesResponse {
	points := make([]seriesPoint, 0, len(window.Points))
	for _, p := range window.Points {
		points = append(points, seriesPoint{
			Timestamp: p.Timestamp.UTC().Format(time.RFC3339),
			Value:     p.Value.InexactFloat64(),
		})
	}
	return seriesResponse{Data: points, Baseline: window.Baseline.InexactFloat64()}
}
