// Package redis 提供 Redis 连接初始化
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chat_gateway/internal/config"

	"github.com/redis/go-redis/v9"
)

// Init 按配置创建 Redis 客户端并探活，返回带 Worker Pool 的缓存服务
func Init(conf *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Host + ":" + strconv.Itoa(conf.Port),
		Password:     conf.Password,
		DB:           conf.Db,
		PoolSize:     50,
		MinIdleConns: conf.CacheWorkers, // 与 Worker 数量匹配
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	workers := conf.CacheWorkers
	if workers <= 0 {
		workers = 15
	}
	buffer := conf.CacheBuffer
	if buffer <= 0 {
		buffer = 3000
	}
	return NewRedisCache(client, workers, buffer), nil
}
