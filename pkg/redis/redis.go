package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"boxatlas/backend/config"
)

// Client Redis 客户端封装
// 用于工作区成员关系缓存与接口限流；连接失败时调用方降级运行
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromClient 包装已有的 go-redis 客户端
func NewFromClient(rdb *goredis.Client, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── 工作区成员关系缓存 ──

const membershipPrefix = "membership:"

func membershipKey(workspaceID, userID string) string {
	return membershipPrefix + workspaceID + ":" + userID
}

// GetMembership 读取缓存的成员关系；found=false 表示未命中
func (c *Client) GetMembership(ctx context.Context, workspaceID, userID string) (isMember bool, found bool, err error) {
	v, err := c.rdb.Get(ctx, membershipKey(workspaceID, userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return v == "1", true, nil
}

// SetMembership 写入成员关系缓存（正负结果均缓存）
func (c *Client) SetMembership(ctx context.Context, workspaceID, userID string, isMember bool, ttl time.Duration) error {
	v := "0"
	if isMember {
		v = "1"
	}
	return c.rdb.Set(ctx, membershipKey(workspaceID, userID), v, ttl).Err()
}

// InvalidateMembership 删除成员关系缓存（成员变更后调用）
func (c *Client) InvalidateMembership(ctx context.Context, workspaceID, userID string) error {
	return c.rdb.Del(ctx, membershipKey(workspaceID, userID)).Err()
}

// ── 限流 ──

// CheckRateLimit 固定窗口计数限流，返回本次请求是否放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
