package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IRedis stores the short per-user conversation transcript that is handed
// to the classifier as context. Entries expire with the session window.
type IRedis interface {
	PushHistory(ctx context.Context, phoneNumber, role, text string) error
	GetHistory(ctx context.Context, phoneNumber string, limit int) ([]string, error)
	ClearHistory(ctx context.Context, phoneNumber string) error
}

const (
	historyKeyPrefix = "qahwa:history:"
	historyMaxLen    = 20
	historyTTL       = 30 * time.Minute
)

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func (r *redisClient) PushHistory(ctx context.Context, phoneNumber, role, text string) error {
	key := historyKeyPrefix + phoneNumber
	entry := fmt.Sprintf("%s: %s", role, text)

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, entry)
	pipe.LTrim(ctx, key, -historyMaxLen, -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.Error(fmt.Sprintf("Error pushing history for %s: %v", phoneNumber, err))
		return err
	}
	return nil
}

func (r *redisClient) GetHistory(ctx context.Context, phoneNumber string, limit int) ([]string, error) {
	if limit <= 0 || limit > historyMaxLen {
		limit = historyMaxLen
	}

	key := historyKeyPrefix + phoneNumber
	entries, err := r.client.LRange(ctx, key, int64(-limit), -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting history for %s: %v", phoneNumber, err))
		return nil, err
	}
	return entries, nil
}

func (r *redisClient) ClearHistory(ctx context.Context, phoneNumber string) error {
	if _, err := r.client.Del(ctx, historyKeyPrefix+phoneNumber).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Error clearing history for %s: %v", phoneNumber, err))
		return err
	}
	return nil
}
