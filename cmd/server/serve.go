package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nicoleon0812/calendario-carrera/internal/api/handler"
	"github.com/Nicoleon0812/calendario-carrera/internal/api/middleware"
	"github.com/Nicoleon0812/calendario-carrera/internal/api/router"
	"github.com/Nicoleon0812/calendario-carrera/pkg/ratelimit"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Arranca el servidor HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *rootOptions) error {
	a, err := bootstrap(opts, true)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("access_mode", cfg.Access.Mode),
	)

	// 1. 数据库迁移
	if err := a.migrate(); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 2. 加载课程目录，失败则不对外提供服务
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Planner.RemoteTimeout)
	err = a.svc.Catalog.Load(loadCtx)
	cancelLoad()
	if err != nil {
		return fmt.Errorf("加载课程目录失败: %w", err)
	}

	// 3. 请求校验器
	if err := middleware.RegisterValidators(); err != nil {
		return fmt.Errorf("注册校验器失败: %w", err)
	}

	// 4. 初始化路由
	loginLimiter := ratelimit.New(cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
	engine := router.Setup(cfg, handler.NewHandler(a.svc), a.jwtMgr, a.rdb, loginLimiter, logger)

	// 5. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepEvery(ctx, cfg.RateLimit.LoginWindow, loginLimiter.Sweep)
	go sweepEvery(ctx, time.Minute, a.svc.Planner.Sweep)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 6. 监听系统信号，优雅关闭
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP 服务器异常: %w", err)
	case <-ctx.Done():
	}
	logger.Info("收到关闭信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务器已关闭")
	return nil
}

// sweepEvery 定期执行清理（限流 key、闲置会话），直到 ctx 结束
func sweepEvery(ctx context.Context, every time.Duration, sweep func() int) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
