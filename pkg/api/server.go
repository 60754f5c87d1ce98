package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/LENAX/dependent-engine/pkg/api/handler"
)

// ServerConfig API服务器配置
type ServerConfig struct {
	Host         string        // 监听地址
	Port         int           // 监听端口
	ReadTimeout  time.Duration // 读取超时
	WriteTimeout time.Duration // 写入超时
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// APIServer 依赖诊断HTTP API服务器
type APIServer struct {
	httpServer *http.Server
	config     ServerConfig
}

// NewAPIServer 创建API服务器，ready可为空
func NewAPIServer(registry handler.WatchRegistry, config ServerConfig, version string, ready handler.ReadinessCheck) *APIServer {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	return &APIServer{
		config: config,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      SetupRouter(registry, version, ready),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
	}
}

// Handler 获取HTTP处理器
func (s *APIServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *APIServer) Start() error {
	log.Printf("🚀 [API] 依赖诊断服务启动: %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen failed: %w", err)
	}

	return nil
}

// Shutdown 优雅关闭服务器
func (s *APIServer) Shutdown(ctx context.Context) error {
	log.Println("🛑 [API] 正在关闭依赖诊断服务...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("✅ [API] 依赖诊断服务已停止")
	return nil
}

// Addr 获取服务器地址
func (s *APIServer) Addr() string {
	return s.httpServer.Addr
}
