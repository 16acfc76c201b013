package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitfantasy/nimo-mfg/internal/config"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/entity"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/handler"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/repository"
	"github.com/bitfantasy/nimo-mfg/internal/mfg/service"
	"github.com/bitfantasy/nimo-mfg/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	root := &cobra.Command{
		Use:           "nimo-mfg",
		Short:         "Manufacturing core: BOMs, workstations, work orders and job cards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API server",
			RunE:  func(cmd *cobra.Command, _ []string) error { return runServe() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the manufacturing tables",
			RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate() },
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "nimo-mfg %s (%s)\n", Version, BuildTime)
			},
		},
	)
	// 无子命令时默认启动服务
	root.RunE = func(cmd *cobra.Command, _ []string) error { return runServe() }

	if err := root.Execute(); err != nil {
		log.Fatalf("nimo-mfg: %v", err)
	}
}

// bootstrap 加载配置、日志与数据库
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := initDatabase(cfg.Database, cfg.Log.Level == "debug")
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, zapLogger, db, nil
}

func runMigrate() error {
	_, zapLogger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	if err := entity.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	zapLogger.Info("Manufacturing tables migrated")
	return nil
}

func runServe() error {
	cfg, zapLogger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-mfg service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("db_driver", cfg.Database.Driver),
	)

	if err := entity.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb := initRedis(cfg.Redis, zapLogger)
	if rdb != nil {
		defer rdb.Close()
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, service.SettingsFromConfig(cfg.Manufacturing), zapLogger)
	handlers := handler.NewHandlers(services, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, db, rdb, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	return nil
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

func initDatabase(cfg config.DatabaseConfig, verbose bool) (*gorm.DB, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path + "?_foreign_keys=on&_busy_timeout=5000")
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite单写者
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// initRedis 未配置host时返回nil，统计不走缓存
func initRedis(cfg config.RedisConfig, zapLogger *zap.Logger) *redis.Client {
	addr := cfg.Addr()
	if addr == "" {
		zapLogger.Info("Redis not configured, stats cache disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zapLogger.Warn("Redis ping failed, stats will be computed on demand", zap.String("addr", addr), zap.Error(err))
	}
	return rdb
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		checks := gin.H{"database": "ok"}
		status := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				checks["redis"] = "unavailable"
			}
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer))
	handler.RegisterRoutes(v1, h)
}
