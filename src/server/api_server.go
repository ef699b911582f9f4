package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"usage-watch/src/analysis"
	"usage-watch/src/helpers"
	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// APIServer serves the REST API, the dashboard websocket and /metrics
// -----------------------------------------------------------------------------

type APIServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Controller interfaces.IRunController
	engine     *gin.Engine
	httpServer *http.Server

	// WebSocket clients
	clients     map[*Client]struct{}
	connections atomic.Int64
	broadcast   chan *models.MLatestData // Strongly typed and Buffered Queue
	register    chan *Client
	unregister  chan *Client
	quit        chan struct{}
	stopOnce    sync.Once

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, controller interfaces.IRunController, log *logger.Logger) *APIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:     cfg,
		Logger:     log,
		Controller: controller,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		// Queue size of 256 absorbs bursts of run updates
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		latestState: &models.MLatestData{
			Type:    "INITIAL",
			Records: []models.MAnomalyRecord{},
		},
	}

	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/metrics", s.getMetrics)
	api.GET("/config", s.getConfig)
	api.GET("/anomalies", s.getAnomalies)
	api.GET("/profiles/:customer", s.getProfiles)
	api.GET("/usage/totals", s.getUsageTotals)
	api.POST("/runs", s.postRun)

	// Prometheus scrape endpoint
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connections.Load(),
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getMetrics(c *gin.Context) {
	summary, ok := s.Controller.LastSummary()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"runs": 0})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	opts := analysis.OptionsFromConfig(s.Config.Detection)
	c.JSON(http.StatusOK, gin.H{
		"minimum_history":       opts.MinimumHistory,
		"max_history":           opts.MaxHistory,
		"zscore_threshold":      opts.ZScoreThreshold,
		"pct_threshold":         opts.PctThreshold,
		"min_center_for_zscore": opts.MinCenterForZScore,
		"min_center_by_utility": opts.MinCenterByUtility,
		"cooldown_periods":      opts.CooldownPeriods,
		"mode":                  opts.Mode,
		"utilities":             utilityUnits(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getAnomalies(c *gin.Context) {
	filter, err := helpers.ParseRecordFilter(c.Query("customer"), c.Query("utility"), c.Query("min_severity"), c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := s.Controller.ListAnomalies(c.Request.Context(), filter)
	if err != nil {
		s.Logger.Error("List anomalies failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list anomalies"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getProfiles(c *gin.Context) {
	customer := c.Param("customer")
	profiles := s.Controller.Profiles(customer)
	if len(profiles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no profiles for customer %s", customer)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer_id": customer, "profiles": profiles})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getUsageTotals(c *gin.Context) {
	var utility models.MUtilityType
	if raw := c.Query("utility"); raw != "" {
		u, err := models.ParseUtilityType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		utility = u
	}

	totals, err := s.Controller.UsageTotals(c.Request.Context(), utility)
	if err != nil {
		s.Logger.Error("Usage totals failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute usage totals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totals": totals})
}

// -----------------------------------------------------------------------------

// runRequest is the optional body of POST /api/runs.
type runRequest struct {
	CustomerID  string `json:"customer_id"`
	UtilityType string `json:"utility_type"`
	From        string `json:"from"`
	To          string `json:"to"`
}

func (s *APIServer) postRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	query, err := helpers.ParseReadingQuery(req.CustomerID, req.UtilityType, req.From, req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := s.Controller.TriggerRun(c.Request.Context(), query)
	if err != nil {
		s.Logger.Error("Triggered run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
