package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// RedisConfigured reports whether REDIS_ADDRESS is set. Redis is optional for the loader;
// without it the tick run lock is disabled.
func RedisConfigured() bool {
	return strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != ""
}

// ConnectRedis connects with bounded retries (REDIS_CONNECT_ATTEMPTS, default 3)
// and sets the global Redis client + lock client.
func ConnectRedis(ctx context.Context) error {
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if redisAddr == "" {
		return fmt.Errorf("REDIS_ADDRESS not set")
	}

	maxAttempts := intFromEnv("REDIS_CONNECT_ATTEMPTS", 3)
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0, // use default DB
			PoolSize: 4,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(rdb)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return nil
		}
		_ = client.Close()
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		time.Sleep(sleep)
	}
	return fmt.Errorf("connect redis %s after %d attempts: %w", redisAddr, maxAttempts, lastErr)
}

func CloseRedis() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	locker = nil
	return err
}
