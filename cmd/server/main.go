package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/izzyftw1/rvi-sub013/internal/config"
	"github.com/izzyftw1/rvi-sub013/internal/mes/entity"
	"github.com/izzyftw1/rvi-sub013/internal/mes/handler"
	"github.com/izzyftw1/rvi-sub013/internal/mes/notify"
	"github.com/izzyftw1/rvi-sub013/internal/mes/repository"
	"github.com/izzyftw1/rvi-sub013/internal/mes/service"
	"github.com/izzyftw1/rvi-sub013/internal/middleware"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting mes-dashboard service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 变更通知中心
	hub := notify.NewHub(cfg.Notify.Debounce, zapLogger)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, hub, rdb, zapLogger)
	handlers := handler.NewHandlers(services)
	handlers.SSE = handler.NewSSEHandler(hub)

	// 进度缓存失效订阅
	cacheCtx, cacheCancel := context.WithCancel(context.Background())
	defer cacheCancel()
	services.Progress.Start(cacheCtx)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.WorkOrder{},
		&entity.RouteStep{},
		&entity.ProductionBatch{},
		&entity.ExternalMove{},
		&entity.QCRecord{},
		&entity.StageHistoryEntry{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// SSE 看板刷新流
		authorized.GET("/sse/events", h.SSE.Stream)

		// 工单
		wos := authorized.Group("/work-orders")
		{
			wos.GET("", h.WorkOrder.List)
			wos.POST("", h.WorkOrder.Create)
			wos.GET("/:id", h.WorkOrder.Get)
			wos.PUT("/:id", h.WorkOrder.Update)

			// 工艺路线
			wos.GET("/:id/route", h.Route.List)
			wos.POST("/:id/route", h.Route.Add)
			wos.PUT("/:id/route/:stepId", h.Route.Update)
			wos.DELETE("/:id/route/:stepId", h.Route.Delete)
			wos.POST("/:id/route/:stepId/swap", h.Route.Swap)
			wos.POST("/:id/route/:stepId/execution", h.Production.ReportStepExecution)

			// 车间执行
			wos.GET("/:id/batches", h.Production.ListBatches)
			wos.POST("/:id/batches", h.Production.LogBatch)
			wos.GET("/:id/external-moves", h.Production.ListExternalMoves)
			wos.POST("/:id/external-moves", h.Production.SendExternal)
			wos.GET("/:id/qc-records", h.Production.ListQCRecords)
			wos.POST("/:id/qc-records", h.Production.LogQC)
			wos.GET("/:id/stage-history", h.Production.ListStageHistory)
			wos.POST("/:id/stage", h.Production.ChangeStage)

			// 看板读模型
			wos.GET("/:id/progress", h.Progress.Get)
			wos.GET("/:id/dispatchable", h.Progress.ListDispatchable)
			wos.GET("/:id/can-release", h.Gate.CanRelease)
			wos.GET("/:id/completion-eligibility", h.Gate.CompletionEligibility)

			// 门动作，要求主管角色
			supervisor := wos.Group("")
			supervisor.Use(middleware.RequireRole("mes_supervisor"))
			{
				supervisor.POST("/:id/release", h.Gate.Release)
				supervisor.POST("/:id/release/reopen", h.Gate.ReopenRelease)
				supervisor.POST("/:id/complete", h.Gate.Complete)
				supervisor.POST("/:id/complete/reopen", h.Gate.ReopenCompletion)
			}
		}

		// 批次级操作
		batches := authorized.Group("/batches")
		{
			batches.POST("/:batchId/move", h.Production.MoveBatch)
			batches.POST("/:batchId/dispatch", h.Production.DispatchBatch)
		}

		// 外协单回厂
		authorized.POST("/external-moves/:moveId/return", h.Production.ReturnExternal)
	}
}
