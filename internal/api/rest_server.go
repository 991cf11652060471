package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/annel0/wildlands/internal/auth"
	"github.com/annel0/wildlands/internal/engine"
	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// StatsSource источник снимка состояния движка для /health
type StatsSource interface {
	Stats() engine.Stats
}

// RestServer HTTP-поверхность сервера: health, metrics, claim, статика и /ws
type RestServer struct {
	router    *gin.Engine
	server    *http.Server
	claims    *auth.ClaimService
	stats     StatsSource
	metrics   *ServerMetrics
	staticDir string
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port           int
	Claims         *auth.ClaimService
	Stats          StatsSource
	WebSocket      http.Handler // GET /ws, nil: маршрут не регистрируется
	Registerer     prometheus.Registerer
	Gatherers      []prometheus.Gatherer
	StaticDir      string
	AllowedOrigins []string
	ServiceName    string
	// ServeMetrics false когда /metrics отдаётся на отдельном порту
	ServeMetrics bool
}

// NewRestServer создаёт сервер и настраивает маршруты
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == 0 {
		cfg.Port = 8088
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "wildlands"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware("http", cfg.Registerer)
	router.Use(promMw.Handler())
	if cfg.ServeMetrics {
		promMw.RegisterMetricsEndpoint(router, cfg.Gatherers...)
	}

	rs := &RestServer{
		router:    router,
		claims:    cfg.Claims,
		stats:     cfg.Stats,
		metrics:   NewServerMetrics(),
		staticDir: cfg.StaticDir,
	}
	rs.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rs.setupRoutes(cfg)
	return rs
}

func (rs *RestServer) setupRoutes(cfg Config) {
	rs.router.GET("/health", rs.handleHealth)

	session := rs.router.Group("/session")
	session.Use(corsMiddleware(cfg.AllowedOrigins))
	{
		session.POST("/claim", rs.handleClaim)
		session.OPTIONS("/claim", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	if cfg.WebSocket != nil {
		rs.router.GET("/ws", gin.WrapH(cfg.WebSocket))
	}

	if rs.staticDir != "" {
		if _, err := os.Stat(rs.staticDir); err == nil {
			rs.router.Static("/assets", filepath.Join(rs.staticDir, "assets"))
			rs.router.StaticFile("/", filepath.Join(rs.staticDir, "index.html"))
		} else {
			logging.Warn("Каталог статики %s недоступен, / и /assets не обслуживаются: %v", rs.staticDir, err)
		}
	}
}

// Router для тестов и встраивания
func (rs *RestServer) Router() http.Handler { return rs.router }

// GenericResponse ответ с ошибкой
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleClaim выдаёт сессионный токен
func (rs *RestServer) handleClaim(c *gin.Context) {
	var req auth.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
		return
	}

	res, err := rs.claims.Claim(c.Request.Context(), c.ClientIP(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, auth.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, GenericResponse{Message: err.Error()})
	case errors.Is(err, auth.ErrInvalidLogin), errors.Is(err, auth.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, GenericResponse{Message: err.Error()})
	case errors.Is(err, auth.ErrBadCredentials), errors.Is(err, auth.ErrPasswordRequired):
		c.JSON(http.StatusUnauthorized, GenericResponse{Message: err.Error()})
	default:
		logging.Error("claim %q: %v", req.Login, err)
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: "Хранилище недоступно"})
	}
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"uptime": rs.metrics.GetUptime(),
	}
	if rs.stats != nil {
		st := rs.stats.Stats()
		body["tick"] = st.Tick
		body["players"] = st.Players
		body["chunks"] = st.Chunks
		body["sessions"] = st.Sessions
		body["queue"] = st.Queue
	}
	if mem, err := rs.metrics.GetMemoryUsage(); err == nil {
		body["memory_mb"] = mem
	}
	if cpu, err := rs.metrics.GetCPUUsage(); err == nil {
		body["cpu_percent"] = cpu
	}
	body["runtime"] = rs.metrics.GetDetailedMemoryStats()
	c.JSON(http.StatusOK, body)
}

// Start запускает REST сервер; блокирует до Stop
func (rs *RestServer) Start() error {
	logging.Info("HTTP сервер слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop graceful shutdown с дедлайном ctx
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
