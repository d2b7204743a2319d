package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spellgate/common/config"
	"spellgate/common/log"
)

const rateLimitPrefix = "spellgate:ratelimit:"

type RedisManager struct {
	Cli *redis.Client
	// Limit 每个窗口允许的次数，Window 窗口长度
	Limit  int64
	Window time.Duration
}

func NewRedis(ctx context.Context, redisConf config.RedisConf, limit config.RateLimitConf) (*RedisManager, error) {
	if redisConf.Addr == "" {
		return nil, errors.New("redis 配置出错, addr 为空")
	}
	cli := redis.NewClient(&redis.Options{
		Addr:         redisConf.Addr,
		Password:     redisConf.Password, // 如果没有密码，这个字段为空字符串，Redis会忽略
		PoolSize:     redisConf.PoolSize,
		MinIdleConns: redisConf.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis 连接错误: %w", err)
	}
	return newRedisManager(cli, limit), nil
}

func newRedisManager(cli *redis.Client, limit config.RateLimitConf) *RedisManager {
	window := limit.Window
	if window <= 0 {
		window = time.Second
	}
	// 固定窗口内允许 rate*窗口秒数 次，至少 burst 次
	allowed := int64(float64(limit.Rate) * window.Seconds())
	if allowed < int64(limit.Burst) {
		allowed = int64(limit.Burst)
	}
	if allowed < 1 {
		allowed = 1
	}
	return &RedisManager{Cli: cli, Limit: allowed, Window: window}
}

// Allow 固定窗口计数限流，多个网关实例共享同一份计数。
// redis 出错时放行，限流不能影响玩家正常操作
func (r *RedisManager) Allow(ctx context.Context, key string) bool {
	count, err := r.hit(ctx, rateLimitKey(key, r.Window, time.Now()))
	if err != nil {
		log.Warn("redis 限流计数失败，放行, key=%s, err:%v", key, err)
		return true
	}
	return count <= r.Limit
}

func (r *RedisManager) hit(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.Cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.Window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func rateLimitKey(key string, window time.Duration, now time.Time) string {
	return fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, now.UnixNano()/int64(window))
}

func (r *RedisManager) Close() error {
	if r.Cli == nil {
		return nil
	}
	if err := r.Cli.Close(); err != nil {
		log.Error("redis 关闭出错: %v", err)
		return err
	}
	return nil
}
