package usage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phambaophuc/vision-gateway/internal/config"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "vision_usage:"

	fieldRequests     = "requests"
	fieldInputTokens  = "input_tokens"
	fieldOutputTokens = "output_tokens"

	scanBatchSize = 100
)

// RedisLedger keeps cumulative per-model token counters in Redis hashes.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(cfg config.RedisConfig) *RedisLedger {
	return &RedisLedger{
		client: redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: 5 * time.Second,
		}),
	}
}

func usageKey(model string) string {
	return keyPrefix + model
}

// Record adds one successful request and its token counts to the model's totals.
func (l *RedisLedger) Record(ctx context.Context, model string, inputTokens, outputTokens int) error {
	key := usageKey(model)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldRequests, 1)
		pipe.HIncrBy(ctx, key, fieldInputTokens, int64(inputTokens))
		pipe.HIncrBy(ctx, key, fieldOutputTokens, int64(outputTokens))
		return nil
	})
	if err != nil {
		return fmt.Errorf("usage record error: %w", err)
	}
	return nil
}

// Totals returns the counters for every model seen so far, sorted by model.
func (l *RedisLedger) Totals(ctx context.Context) ([]models.ModelUsage, error) {
	var keys []string
	iter := l.client.Scan(ctx, 0, keyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("usage scan error: %w", err)
	}

	totals := make([]models.ModelUsage, 0, len(keys))
	for _, key := range keys {
		fields, err := l.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("usage read error for %s: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		totals = append(totals, parseUsage(strings.TrimPrefix(key, keyPrefix), fields))
	}

	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Model < totals[j].Model
	})
	return totals, nil
}

func (l *RedisLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func parseUsage(model string, fields map[string]string) models.ModelUsage {
	return models.ModelUsage{
		Model:        model,
		Requests:     parseCounter(fields[fieldRequests]),
		InputTokens:  parseCounter(fields[fieldInputTokens]),
		OutputTokens: parseCounter(fields[fieldOutputTokens]),
	}
}

func parseCounter(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
