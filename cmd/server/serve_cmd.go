package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boxatlas/backend/internal/api/handler"
	"boxatlas/backend/internal/api/router"
	"boxatlas/backend/pkg/jwt"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "执行迁移并启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	a, err := bootstrap(configPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	logger := a.logger
	logger.Info("应用启动中...",
		zap.Int("port", a.cfg.Server.Port),
		zap.String("log_level", a.cfg.Log.Level),
	)

	// 执行数据库迁移
	if err := a.migrate(); err != nil {
		logger.Error("数据库迁移失败", zap.Error(err))
		return err
	}

	// 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&a.cfg.Auth)
	_, svc := a.services()
	h := handler.NewHandler(svc)

	// 初始化路由
	engine := router.Setup(a.cfg, h, jwtMgr, a.rdb, logger)

	// 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// 监听系统信号，优雅关闭
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		logger.Error("HTTP 服务器异常", zap.Error(err))
		return err
	case <-sigCtx.Done():
		logger.Info("收到关闭信号，开始优雅关闭...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务器已关闭")
	return nil
}
