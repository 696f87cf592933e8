package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultBackoffFactor  = 2.0
	defaultMinJitter      = 100 * time.Millisecond
	defaultMaxJitter      = 1 * time.Second
	defaultConnectRetries = 5
)

// NewRedisClient dials the conversation cache and verifies it with a ping,
// retrying with exponential backoff plus jitter.
func NewRedisClient(ctx context.Context, dsn string) (*redis.Client, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("redis dsn is required")
	}

	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis dsn: %w", err)
	}

	client := redis.NewClient(opts)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error

	for attempt := 0; attempt <= defaultConnectRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			_ = client.Close()
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logrus.WithField("redis_addr", opts.Addr).Info("redis connection established")
			return client, nil
		}

		lastErr = err
		if attempt == defaultConnectRetries {
			break
		}

		waitDuration := backoffWithJitter(attempt, defaultBackoffFactor, defaultMinJitter, defaultMaxJitter, rng)
		logrus.WithFields(logrus.Fields{
			"attempt":   attempt + 1,
			"max_retry": defaultConnectRetries,
			"retry_in":  waitDuration.String(),
			"redis_dsn": maskDSN(dsn),
		}).Warnf("redis connection failed: %v", err)

		select {
		case <-time.After(waitDuration):
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("connect redis after %d attempts: %w", defaultConnectRetries+1, lastErr)
}

func backoffWithJitter(attempt int, factor float64, min, max time.Duration, rng *rand.Rand) time.Duration {
	backoff := float64(min) * math.Pow(factor, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}

	base := time.Duration(backoff)
	if max <= min {
		return base
	}

	jitterWindow := max - min
	jitter := time.Duration(rng.Int63n(int64(jitterWindow) + 1))
	result := base + jitter
	if result > max {
		return max
	}

	return result
}

func maskDSN(dsn string) string {
	idx := strings.Index(dsn, "@")
	if idx == -1 {
		return dsn
	}

	prefix := dsn[:idx]
	credsIdx := strings.LastIndex(prefix, "://")
	if credsIdx == -1 {
		return "***" + dsn[idx:]
	}

	return prefix[:credsIdx+3] + "***" + dsn[idx:]
}
