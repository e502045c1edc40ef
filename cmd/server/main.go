package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/handler"
	"ffarena/internal/infrastructure/cache"
	"ffarena/internal/infrastructure/database"
	"ffarena/internal/infrastructure/mq"
	"ffarena/internal/job"
	"ffarena/pkg/idgen"
)

func main() {
	defaultPath := "config/config.yaml"
	if p := os.Getenv("FFARENA_CONFIG"); p != "" {
		defaultPath = p
	}
	configPath := flag.String("config", defaultPath, "配置文件路径")
	workerID := flag.Int64("worker-id", 1, "雪花ID机器号")
	flag.Parse()

	// 加载配置
	cfg := config.LoadConfig(*configPath)

	// 初始化 ID 生成器
	idgen.Init(*workerID)

	db := database.InitDB(&cfg.Database)
	redisClient := cache.InitRedis(&cfg.Redis)

	bus := event.NewBus()
	bus.SubscribeAll(func(e event.Event) {
		log.Printf("[Event] kind=%s, action=%s, ids=%v", e.Kind, e.Action, e.IDs)
	})

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka 关闭时变更只走进程内事件总线，发件箱不落库
	if cfg.Kafka.Enabled {
		publisher := mq.InitKafka(&cfg.Kafka)
		defer publisher.Close()

		outboxSender := job.NewOutboxSender(db, publisher, cfg)
		go outboxSender.Start(ctx)
	}

	auditJob := job.NewLedgerAuditJob(db, cfg)
	go auditJob.Start(ctx)

	router := handler.SetupRouter(db, redisClient, cfg, bus)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	redisClient.Close()

	log.Println("服务已关闭")
}
