package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"ffarena/internal/config"

	"github.com/go-redis/redis/v8"
)

// Connect 建立连接并探活
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}

// InitRedis 启动时调用，连不上直接退出
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}
	log.Println("Redis 连接成功")
	return client
}

// GetJSON 读取 JSON 缓存。未命中返回 false；缓存内容损坏按未命中处理
func GetJSON(ctx context.Context, rdb *redis.Client, key string, out interface{}) (bool, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("[Cache] 丢弃损坏的缓存 key=%s: %v", key, err)
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, rdb *redis.Client, key string, v interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, payload, ttl).Err()
}

// ============================================================
// Key 约定：业务前缀 + 冒号分隔
// ============================================================

func LeaderboardKey() string {
	return "ffarena:leaderboard"
}

func NotificationSeenKey(userID string) string {
	return "ffarena:notif:seen:" + userID
}

func RevokedSessionKey(tokenID string) string {
	return "ffarena:session:revoked:" + tokenID
}
