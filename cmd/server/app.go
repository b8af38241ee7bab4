package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Nicoleon0812/calendario-carrera/config"
	"github.com/Nicoleon0812/calendario-carrera/internal/repository"
	"github.com/Nicoleon0812/calendario-carrera/internal/service"
	"github.com/Nicoleon0812/calendario-carrera/pkg/database"
	"github.com/Nicoleon0812/calendario-carrera/pkg/jwt"
	applogger "github.com/Nicoleon0812/calendario-carrera/pkg/logger"
	"github.com/Nicoleon0812/calendario-carrera/pkg/redis"
)

// app 各子命令共用的基础设施
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	jwtMgr *jwt.Manager
	svc    *service.Service
}

// bootstrap 加载配置、日志并连接数据库。withRedis 为 false 时跳过 Redis
func bootstrap(opts *rootOptions, withRedis bool) (*app, error) {
	// 1. 加载配置
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info("数据库连接成功")

	a := &app{cfg: cfg, logger: logger, db: db}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	if withRedis {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单不可用，登录限流降级为进程内", zap.Error(err))
		} else {
			a.rdb = rdb
		}
	}

	// 5. 依赖注入: Repository → Service
	a.jwtMgr = jwt.NewManager(&cfg.Auth)
	// rdb 为 nil 时不能直接赋给接口，否则接口非 nil
	var blacklist service.TokenBlacklist
	if a.rdb != nil {
		blacklist = a.rdb
	}
	a.svc, err = service.NewService(cfg, repository.NewRepository(db), a.jwtMgr, blacklist, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// migrate 执行全部未应用的迁移
func (a *app) migrate() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return database.RunMigrations(sqlDB, a.logger)
}

// Close 释放连接
func (a *app) Close() {
	if sqlDB, _ := a.db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.logger.Sync()
}
