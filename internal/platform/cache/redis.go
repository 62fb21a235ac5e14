package cache

import (
	"context"
	"fmt"

	"github.com/ogurasousui/company-registry/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// NewClient は cache 設定から Redis クライアントを生成し疎通確認を行います。
// キャッシュが無効な場合は nil を返します。
func NewClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}
