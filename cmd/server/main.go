// Package main 书籍生成服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookforge/internal/application/export"
	"bookforge/internal/application/generation"
	"bookforge/internal/config"
	"bookforge/internal/domain/repository"
	"bookforge/internal/infrastructure/llm"
	"bookforge/internal/infrastructure/messaging"
	"bookforge/internal/infrastructure/persistence/postgres"
	"bookforge/internal/infrastructure/persistence/redis"
	"bookforge/internal/interfaces/http/handler"
	"bookforge/internal/interfaces/http/router"
	obseino "bookforge/internal/observability/eino"
	"bookforge/pkg/logger"
	"bookforge/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting bookforge",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Redis 快照存储（必需）
	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", err)
	}
	defer redisClient.Close()
	snapshots := redis.NewSnapshotStore(redisClient, cfg.Cache.Redis.SnapshotTTL)

	// Postgres 镜像（可选，尽力而为）
	var pgClient *postgres.Client
	var mirror repository.RunMirror
	if cfg.Database.Postgres.Enabled {
		pgClient, err = postgres.NewClient(&cfg.Database.Postgres)
		if err != nil {
			logger.Fatal(ctx, "failed to connect postgres", err)
		}
		defer pgClient.Close()

		runRepo, err := postgres.NewRunRepo(pgClient)
		if err != nil {
			logger.Fatal(ctx, "failed to init run mirror", err)
		}
		mirror = runRepo
	}

	// Eino 模型调用观测回调
	obseino.Init()

	// LLM 后端与回退链
	registry, err := llm.NewRegistry(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to build llm registry", err)
	}
	textChain, err := registry.Chain(cfg.LLM.FallbackChain)
	if err != nil {
		logger.Fatal(ctx, "invalid llm fallback chain", err)
	}
	imageChain, err := registry.Chain(cfg.LLM.ImageChain)
	if err != nil {
		logger.Fatal(ctx, "invalid llm image chain", err)
	}

	// 运行事件流
	events := messaging.NewPublisher(redisClient.Redis(), messaging.DefaultStream, 0)

	// 生成与导出服务
	sequencer := generation.NewSequencer(textChain, snapshots, mirror, events, cfg.Generation.ChapterPacing)
	runs := generation.NewRunService(sequencer, snapshots, mirror)
	if err := runs.Restore(ctx); err != nil {
		log.Warn("failed to restore runs from snapshot store", "error", err)
	}
	defer runs.Shutdown()

	exports := export.NewService(cfg.Export.Publisher, cfg.Export.Language)

	// 路由
	r := router.New(cfg, router.Handlers{
		Book:   handler.NewBookHandler(runs),
		Cover:  handler.NewCoverHandler(imageChain),
		Export: handler.NewExportHandler(runs, exports),
		Health: handler.NewHealthHandler(pgClient, redisClient),
	})

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
