package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"o2d-dashboard/internal/access"
	"o2d-dashboard/internal/config"
	"o2d-dashboard/internal/dashboard"
	httpapi "o2d-dashboard/internal/http"
	"o2d-dashboard/internal/report"
	"o2d-dashboard/internal/repository"
	"o2d-dashboard/internal/router"
	"o2d-dashboard/internal/session"
	"o2d-dashboard/internal/upstream"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DashboardService o2d 看板服务
type DashboardService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB // nil in http source mode
	redisClient *redis.Client
	datasource  *dashboard.DataSource
	httpServer  *http.Server
}

// New 装配服务：Redis 会话存储、快照来源、路由器与 HTTP 端点
func New(cfg *config.Config, logger *zap.Logger) (*DashboardService, error) {
	// 初始化 Redis（会话存储）
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	catalog := access.DefaultCatalog()
	kv := session.NewRedisKVStore(redisClient)
	sessions := session.NewStore(kv, catalog, time.Duration(cfg.Session.TTL)*time.Second, logger)
	viewRouter := router.New(catalog, sessions, router.DefaultViews(), logger)

	upstreamClient := upstream.NewClient(
		cfg.Upstream.APIBaseURL,
		cfg.Upstream.AuthBaseURL,
		time.Duration(cfg.Upstream.Timeout)*time.Second,
		logger,
	)

	// 快照来源：上游 API 或直连数据库
	var db *sql.DB
	var fetcher dashboard.Fetcher
	if cfg.Dashboard.Source == "sql" {
		var err error
		db, err = repository.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		fetcher = repository.NewDispatchRepository(db, logger)
	} else {
		fetcher = upstreamClient
	}

	datasource := dashboard.NewDataSource(
		fetcher,
		time.Duration(cfg.Dashboard.RefreshInterval)*time.Second,
		logger,
	)

	var renderer report.Renderer
	if cfg.Report.RendererURL != "" {
		renderer = report.NewHTTPRenderer(cfg.Report.RendererURL, logger)
	}

	mux := httpapi.NewRouter(logger)
	mux.RegisterAuthRoutes(httpapi.NewAuthHandler(upstreamClient, sessions, catalog, logger))
	mux.RegisterViewRoutes(httpapi.NewViewHandler(viewRouter, sessions, logger))
	mux.RegisterDashboardRoutes(httpapi.NewDashboardHandler(datasource, renderer, logger))
	mux.RegisterOpsRoutes()

	return &DashboardService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		datasource:  datasource,
		httpServer: &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: mux,
		},
	}, nil
}

// Start 启动服务（阻塞直到 ctx 取消或监听出错）
func (s *DashboardService) Start(ctx context.Context) error {
	s.logger.Info("Starting o2d-dashboard service",
		zap.String("addr", s.config.HTTP.Addr),
		zap.String("source", s.config.Dashboard.Source),
		zap.Int("refresh_interval_seconds", s.config.Dashboard.RefreshInterval),
	)

	// 启动快照轮询
	go s.datasource.Run(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return fmt.Errorf("http server error: %w", err)
	}
}

// Stop 停止服务并释放连接
func (s *DashboardService) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error shutting down http server", zap.Error(err))
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Error closing database", zap.Error(err))
		}
	}
	return s.redisClient.Close()
}
