package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LENAX/dependent-engine/internal/app"
	"github.com/LENAX/dependent-engine/pkg/config"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "./configs/engine.yaml", "服务配置文件路径")
	flag.Parse()

	log.Printf("Dependent Engine Server v%s (commit %s, built %s)", Version, GitCommit, BuildTime)
	log.Printf("配置文件: %s", *configPath)

	// 1. 加载配置
	cfg, err := config.LoadEngineConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 创建服务并注册依赖声明
	a, err := app.New(cfg, Version)
	if err != nil {
		log.Fatalf("创建服务失败: %v", err)
	}

	// 3. 启动
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		log.Fatalf("启动服务失败: %v", err)
	}
	if cfg.IsAPIEnabled() {
		log.Printf("✅ Dependent Engine Server started on %s", cfg.GetAPIAddress())
	}

	// 4. 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 5. 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Stop(shutdownCtx); err != nil {
		log.Printf("关闭服务失败: %v", err)
	}
}
