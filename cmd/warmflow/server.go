package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/BaSui01/warmflow/api/handlers"
	"github.com/BaSui01/warmflow/config"
	"github.com/BaSui01/warmflow/internal/metrics"
	"github.com/BaSui01/warmflow/internal/server"
	"github.com/BaSui01/warmflow/internal/telemetry"
	"github.com/BaSui01/warmflow/llm"
	"github.com/BaSui01/warmflow/rooms"
	"github.com/BaSui01/warmflow/summary"
	"github.com/BaSui01/warmflow/token"
	"github.com/BaSui01/warmflow/transfer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 WarmFlow 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 核心组件
	issuer        *token.Issuer
	roomService   rooms.Service
	transferStore *transfer.Store
	machine       *transfer.Machine
	llmClient     *llm.Client
	summaryStore  *summary.Store

	// Handlers
	healthHandler   *handlers.HealthHandler
	tokenHandler    *handlers.TokenHandler
	roomHandler     *handlers.RoomHandler
	transferHandler *handlers.TransferHandler
	summaryHandler  *handlers.SummaryHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// 遥测
	otelProviders *telemetry.Providers

	// 后台任务生命周期管理（回收器、限流器清理）
	backgroundCancel context.CancelFunc

	wg sync.WaitGroup
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
	backgroundCtx, cancel := context.WithCancel(context.Background())
	s.backgroundCancel = cancel

	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("warmflow", s.logger)

	// 2. 初始化核心组件与 Handlers
	if err := s.initComponents(backgroundCtx); err != nil {
		return fmt.Errorf("failed to init components: %w", err)
	}

	// 3. 启动 HTTP 服务器
	if err := s.startHTTPServer(backgroundCtx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 4. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initComponents 初始化核心组件和所有 handlers
func (s *Server) initComponents(ctx context.Context) error {
	// 令牌签发器与 LiveKit 房间服务
	s.issuer = token.NewIssuer(s.cfg.LiveKit.APIKey, s.cfg.LiveKit.APISecret, s.logger)
	s.roomService = rooms.NewLiveKitService(rooms.LiveKitConfig{
		URL:          s.cfg.LiveKit.URL,
		Timeout:      s.cfg.LiveKit.Timeout,
		EmptyTimeout: s.cfg.LiveKit.EmptyTimeout,
	}, s.issuer, s.logger)

	// 转接会话存储与状态机
	s.transferStore = transfer.NewStore(s.logger, s.metricsCollector)
	s.transferStore.StartReaper(ctx, s.cfg.Transfer.ReapInterval, s.cfg.Transfer.SessionTTL)
	s.machine = transfer.NewMachine(transfer.Config{
		TokenTTL:             s.cfg.Transfer.TokenTTL,
		BriefingRoomCapacity: s.cfg.Transfer.BriefingRoomCapacity,
	}, s.transferStore, s.roomService, s.issuer, s.logger, s.metricsCollector)

	// 摘要存储（摘要生成依赖 LLM，存储与回收不依赖）
	s.summaryStore = summary.NewStore(s.logger)
	s.summaryStore.StartReaper(ctx, s.cfg.Transfer.ReapInterval, s.cfg.Transfer.SummaryTTL)

	// Handlers
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.tokenHandler = handlers.NewTokenHandler(s.issuer, s.metricsCollector, s.logger)
	s.roomHandler = handlers.NewRoomHandler(s.roomService, s.metricsCollector, s.logger)
	s.transferHandler = handlers.NewTransferHandler(s.machine, s.roomService, s.summaryStore, s.logger)

	// LiveKit 可达性就绪检查
	s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("livekit", func(ctx context.Context) error {
		_, err := s.roomService.ListRooms(ctx)
		return err
	}))

	// LLM 摘要链路（未配置 API Key 时禁用摘要端点）
	if s.cfg.LLM.APIKey != "" {
		s.llmClient = llm.NewClient(llm.Config{
			Provider:    s.cfg.LLM.Provider,
			APIKey:      s.cfg.LLM.APIKey,
			BaseURL:     s.cfg.LLM.BaseURL,
			Model:       s.cfg.LLM.Model,
			Timeout:     s.cfg.LLM.Timeout,
			MaxTokens:   s.cfg.LLM.MaxTokens,
			Temperature: s.cfg.LLM.Temperature,
		}, s.logger)
		builder := summary.NewBuilder(s.llmClient, s.logger, s.metricsCollector)
		s.summaryHandler = handlers.NewSummaryHandler(builder, s.summaryStore, s.logger)
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("llm", s.llmClient.HealthCheck))
		s.logger.Info("Summary handler initialized",
			zap.String("provider", s.cfg.LLM.Provider))
	} else {
		s.logger.Info("LLM API key not configured, summary endpoints disabled")
	}

	s.logger.Info("Components initialized")
	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer(backgroundCtx context.Context) error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 令牌与房间 API
	// ========================================
	mux.HandleFunc("POST /api/token", s.tokenHandler.HandleCreateToken)
	mux.HandleFunc("POST /api/create-room", s.roomHandler.HandleCreateRoom)
	mux.HandleFunc("GET /api/rooms", s.roomHandler.HandleListRooms)
	mux.HandleFunc("DELETE /api/rooms/{name}", s.roomHandler.HandleDeleteRoom)
	mux.HandleFunc("GET /api/rooms/{name}/participants", s.roomHandler.HandleListParticipants)
	mux.HandleFunc("GET /api/rooms/{name}/stats", s.roomHandler.HandleRoomStats)

	// ========================================
	// 热转接 API
	// ========================================
	mux.HandleFunc("POST /api/initiate-transfer", s.transferHandler.HandleInitiateTransfer)
	mux.HandleFunc("POST /api/complete-transfer", s.transferHandler.HandleCompleteTransfer)
	mux.HandleFunc("POST /api/transfer/{id}/abandon", s.transferHandler.HandleAbandonTransfer)
	mux.HandleFunc("GET /api/transfer/{id}", s.transferHandler.HandleGetTransfer)
	mux.HandleFunc("GET /api/stats", s.transferHandler.HandleStats)

	// ========================================
	// 摘要 API（依赖 LLM 配置）
	// ========================================
	if s.summaryHandler != nil {
		mux.HandleFunc("POST /api/generate-summary", s.summaryHandler.HandleGenerateSummary)
		mux.HandleFunc("GET /api/summaries/{id}", s.summaryHandler.HandleGetSummary)
		mux.HandleFunc("POST /api/suggest-questions", s.summaryHandler.HandleSuggestQuestions)
		mux.HandleFunc("POST /api/analyze-sentiment", s.summaryHandler.HandleAnalyzeSentiment)
		s.logger.Info("Summary API routes registered")
	}

	// ========================================
	// 构建中间件链
	// ========================================
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSOrigins),
		RateLimiter(backgroundCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKey, skipAuthPaths, s.logger),
		MetricsMiddleware(s.metricsCollector),
		OTelTracing(),
	)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
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
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
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
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止后台任务（回收器、限流器清理）
	if s.backgroundCancel != nil {
		s.backgroundCancel()
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

	// 4. 停止遥测，冲刷剩余 span
	if s.otelProviders != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := s.otelProviders.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	// 5. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
