// Package server 通过 HTTP 暴露过滤器，供管道宿主调用
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weibaohui/fcpipe/config"
	"github.com/weibaohui/fcpipe/filter"
	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

// Server 过滤器 HTTP 服务
type Server struct {
	cfg    config.ServerConfig
	chain  *filter.Chain
	logger *zap.Logger
	engine *gin.Engine
	http   *http.Server
}

// New 创建服务
func New(cfg config.ServerConfig, chain *filter.Chain, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chain == nil {
		chain = filter.NewChain(logger)
	}
	s := &Server{
		cfg:    cfg,
		chain:  chain,
		logger: logger,
	}
	s.engine = s.router()
	s.http = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 返回监听地址
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(RequestLogger(s.logger))
	g.Use(BearerAuth(s.cfg.APIKey))

	h := &handler{chain: s.chain, logger: s.logger}
	g.GET("/healthz", h.healthz)

	apiV1 := g.Group("/v1")
	{
		apiV1.GET("/filters", h.listFilters)
		apiV1.GET("/filters/:id/valves", h.valves)
		apiV1.POST("/filters/:id/inlet", h.filterInlet)
		apiV1.POST("/filters/:id/outlet", h.filterOutlet)

		apiV1.POST("/inlet", h.chainInlet)
		apiV1.POST("/outlet", h.chainOutlet)
	}
	return g
}

// Start 启动过滤器并开始监听，阻塞直到服务停止
func (s *Server) Start(ctx context.Context) error {
	s.chain.OnStartup(ctx)

	s.logger.Info("HTTP 服务启动", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅停止服务并停止过滤器
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.chain.OnShutdown(ctx)
	s.logger.Info("HTTP 服务已停止")
	return err
}
