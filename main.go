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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/swaggo/swag" // 导入 swag

	"interest_cluster/config"
	"interest_cluster/db"
	_ "interest_cluster/docs" // 导入 swagger 文档
	"interest_cluster/handlers"
	"interest_cluster/logger"
	"interest_cluster/repository"
	"interest_cluster/scheduler"
	"interest_cluster/services"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	logger.Info("日志系统初始化成功", "level", cfg.Log.Level, "format", cfg.Log.Format, "output", cfg.Log.Output)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("初始化数据库失败", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	llm, err := services.NewLLMClient(ctx, cfg)
	if err != nil {
		logger.Error("初始化模型客户端失败", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}

	clusterSvc := services.NewClusterService(store, llm, services.ClusterOptionsFromConfig(cfg))
	searchSvc := services.NewSearchService(store, nil, services.SearchOptionsFromConfig(cfg))

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestID)
	r.Use(handlers.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(handlers.CORS(cfg.Server.AllowedOrigins))

	handlers.RegisterRoutes(r, &handlers.Deps{
		Clusters: clusterSvc,
		Search:   searchSvc,
		LLMState: llm.State,
	})

	// start cron
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(cfg, clusterSvc)
		if err := sched.Start(ctx); err != nil {
			logger.Error("启动调度器失败", "error", err)
			os.Exit(1)
		}
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("服务器启动", "address", serverAddr)
		logger.Info("Swagger文档可访问", "url", fmt.Sprintf("http://%s/swagger/index.html", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP服务异常退出", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("收到退出信号，开始关闭服务")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭HTTP服务失败", "error", err)
	}
}

// openStore 按 database.driver 选择存储实现
func openStore(ctx context.Context, cfg *config.Config) (services.Store, error) {
	switch cfg.DB.Driver {
	case "postgres":
		if err := db.InitPostgresWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		logger.Info("PostgreSQL连接成功", "max_conns", cfg.DB.MaxOpenConns)
		return repository.NewPostgresStore(db.PG), nil
	default:
		if err := db.InitMySQLWithConfig(cfg); err != nil {
			return nil, err
		}
		logger.Info("MySQL连接成功",
			"max_open_conns", cfg.DB.MaxOpenConns,
			"max_idle_conns", cfg.DB.MaxIdleConns,
			"conn_max_lifetime", cfg.DB.ConnMaxLifetime)
		return repository.NewMySQLStore(db.DB), nil
	}
}
