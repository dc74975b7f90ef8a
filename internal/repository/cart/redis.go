package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"tanglewood-gallery/internal/cartstore"
)

const keyPrefix = "cart:"

type redisRepo struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewRedis stores cart records under cart:<session>. Every read or write
// pushes the expiry ttl into the future; a zero ttl keeps records forever.
func NewRedis(client *redis.Client, ttl time.Duration, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &redisRepo{client: client, ttl: ttl, logger: logger}
}

func redisKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *redisRepo) For(sessionID string) cartstore.Storage {
	return sessionStorage{sessionID: sessionID, load: r.load, save: r.save}
}

func (r *redisRepo) load(ctx context.Context, sessionID string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if r.ttl > 0 {
		data, err = r.client.GetEx(ctx, redisKey(sessionID), r.ttl).Bytes()
	} else {
		data, err = r.client.Get(ctx, redisKey(sessionID)).Bytes()
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		r.logger.Printf("cart redis: load session=%s error=%v", sessionID, err)
		return nil, err
	}
	return data, nil
}

func (r *redisRepo) save(ctx context.Context, sessionID string, data []byte) error {
	if err := r.client.Set(ctx, redisKey(sessionID), data, r.ttl).Err(); err != nil {
		r.logger.Printf("cart redis: save session=%s error=%v", sessionID, err)
		return err
	}
	return nil
}

func (r *redisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		r.logger.Printf("cart redis: delete session=%s error=%v", sessionID, err)
		return err
	}
	return nil
}
