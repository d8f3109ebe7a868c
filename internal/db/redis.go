package db

import (
	"log"
	"strings"

	"backend-bikerental/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis accepts either host:port or a redis:// URL. It returns nil
// when no address is configured.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	if strings.HasPrefix(cfg.RedisAddr, "redis://") || strings.HasPrefix(cfg.RedisAddr, "rediss://") {
		opts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			log.Printf("redis: bad url: %v", err)
			return nil
		}
		if cfg.RedisPassword != "" {
			opts.Password = cfg.RedisPassword
		}
		return redis.NewClient(opts)
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
