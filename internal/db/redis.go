package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(redisURL string) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("[Redis] connected")
	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() {
	if r.Client != nil {
		r.Client.Close()
		log.Println("[Redis] connection closed")
	}
}

// Membership cache. The permission guard sits on every request, so resolved
// (role, status) pairs are cached briefly and invalidated on any membership
// mutation.

func membershipKey(orgID, userID string) string {
	return "membership:" + orgID + ":" + userID
}

func (r *RedisDB) SetMembership(ctx context.Context, orgID, userID string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, membershipKey(orgID, userID), data, expiration).Err()
}

func (r *RedisDB) GetMembership(ctx context.Context, orgID, userID string, dest interface{}) (bool, error) {
	data, err := r.Client.Get(ctx, membershipKey(orgID, userID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisDB) DeleteMembership(ctx context.Context, orgID, userID string) error {
	return r.Client.Del(ctx, membershipKey(orgID, userID)).Err()
}

// Session cache for refresh-token metadata.

func (r *RedisDB) SetSession(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, "session:"+key, data, expiration).Err()
}

func (r *RedisDB) DeleteSession(ctx context.Context, key string) error {
	return r.Client.Del(ctx, "session:"+key).Err()
}
