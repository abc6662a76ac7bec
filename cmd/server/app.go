package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"boxatlas/backend/config"
	"boxatlas/backend/internal/repository"
	"boxatlas/backend/internal/service"
	"boxatlas/backend/pkg/database"
	applogger "boxatlas/backend/pkg/logger"
	"boxatlas/backend/pkg/redis"
)

// app 各子命令共享的运行时依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
}

// bootstrap 加载配置、初始化日志并连接数据库；withRedis 为 true 时尝试连接 Redis
func bootstrap(configPath string, withRedis bool) (*app, error) {
	// 1. 加载配置
	cfg, err := config.Load(configPath)
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
		logger.Error("数据库连接失败", zap.Error(err))
		return nil, err
	}
	logger.Info("数据库连接成功")

	a := &app{cfg: cfg, logger: logger, db: db}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	if withRedis {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，成员缓存与限流将不可用", zap.Error(err))
		} else {
			a.rdb = rdb
		}
	}
	return a, nil
}

// migrate 执行数据库迁移
func (a *app) migrate() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return database.RunMigrations(sqlDB, a.logger)
}

// services 依赖注入: Repository → Service
func (a *app) services() (*repository.Repository, *service.Service) {
	repo := repository.NewRepository(a.db)
	// Redis 不可用时必须传入无类型 nil，否则接口判空失效
	var cache service.MembershipCache
	if a.rdb != nil {
		cache = a.rdb
	}
	return repo, service.NewService(a.cfg, repo, cache, a.logger)
}

func (a *app) close() {
	if sqlDB, _ := a.db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	_ = a.logger.Sync()
}
