package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fairwaylab/swingsense/api/handlers"
	"github.com/fairwaylab/swingsense/config"
	"github.com/fairwaylab/swingsense/detect"
	"github.com/fairwaylab/swingsense/history"
	"github.com/fairwaylab/swingsense/internal/metrics"
	"github.com/fairwaylab/swingsense/internal/server"
	"github.com/fairwaylab/swingsense/internal/telemetry"
	"github.com/fairwaylab/swingsense/protocol"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 swingsense 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler   *handlers.HealthHandler
	sessionsHandler *handlers.SessionsHandler
	detectHandler   *detect.Handler

	// 会话历史存储（可选）
	historyStore *history.Store

	// 指标收集器
	metricsCollector *metrics.Collector

	// 遥测提供者
	otelProviders *telemetry.Providers

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("swingsense", s.logger)

	// 2. 初始化 Handlers
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 3. 启动 HTTP 与 Metrics 服务器
	var g errgroup.Group
	g.Go(s.startHTTPServer)
	g.Go(s.startMetricsServer)
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("history_enabled", s.cfg.History.Enabled),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() error {
	s.healthHandler = handlers.NewHealthHandler(s.logger)

	// 推理后端 + WebSocket 检测 handler
	backend := detect.NewHTTPBackend(detect.HTTPBackendConfig{
		URL:     s.cfg.Detection.InferenceURL,
		Timeout: s.cfg.Detection.InferenceTimeout,
	}, s.logger)
	s.detectHandler = detect.NewHandler(s.cfg.Detection, backend, s.metricsCollector, s.logger)

	// 会话历史存储（启用时）
	if s.cfg.History.Enabled {
		store, err := history.Open(s.cfg.History.Path, s.logger)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		s.historyStore = store
		s.sessionsHandler = handlers.NewSessionsHandler(store, s.logger)
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("history", store.Ping))
		s.logger.Info("Session history enabled", zap.String("path", s.cfg.History.Path))
	}

	s.logger.Info("Handlers initialized")
	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动主 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// WebSocket 检测端点
	mux.HandleFunc(protocol.DetectPath, s.detectHandler.ServeWS)

	// 会话历史 API
	if s.sessionsHandler != nil {
		mux.HandleFunc("GET /api/v1/sessions", s.sessionsHandler.HandleList)
		mux.HandleFunc("GET /api/v1/sessions/{id}", s.sessionsHandler.HandleGet)
		s.logger.Info("Session history API routes registered")
	}

	// 构建中间件链；检测端点是设备直连的长连接，跳过认证
	skipAuthPaths := []string{
		"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics",
		protocol.DetectPath,
	}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		OTelTracing(),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.logger),
	)

	serverConfig := server.Config{
		Addr:        fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// WebSocket 连接在整个录制会话期间保持打开，不能设置写超时
		WriteTimeout:    0,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 关闭历史存储
	if s.historyStore != nil {
		if err := s.historyStore.Close(); err != nil {
			s.logger.Error("History store close error", zap.Error(err))
		}
	}

	// 5. 关闭遥测提供者
	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
