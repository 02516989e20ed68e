package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parlor/backend/internal/models"
)

// EventsChannel carries realtime envelopes between server processes.
const EventsChannel = "events"

const (
	onlineTTL  = 5 * time.Minute
	offlineTTL = 24 * time.Hour
)

type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Presence Management

func presenceKey(username string) string {
	return "presence:user:" + username
}

func (r *RedisClient) setPresence(ctx context.Context, username, status string, ttl time.Duration) error {
	data, err := json.Marshal(models.UserPresence{
		Username: username,
		Status:   status,
		LastSeen: time.Now(),
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, presenceKey(username), data, ttl).Err()
}

func (r *RedisClient) SetUserOnline(ctx context.Context, username string) error {
	return r.setPresence(ctx, username, "online", onlineTTL)
}

func (r *RedisClient) SetUserOffline(ctx context.Context, username string) error {
	return r.setPresence(ctx, username, "offline", offlineTTL)
}

// GetUserPresence reports offline for users with no presence record.
func (r *RedisClient) GetUserPresence(ctx context.Context, username string) (*models.UserPresence, error) {
	data, err := r.client.Get(ctx, presenceKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return &models.UserPresence{Username: username, Status: "offline"}, nil
	}
	if err != nil {
		return nil, err
	}

	var presence models.UserPresence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, err
	}
	return &presence, nil
}

// Pub/Sub

// PublishEvent publishes env on the events channel.
func (r *RedisClient) PublishEvent(ctx context.Context, env models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, EventsChannel, data).Err()
}

// SubscribeToEvents subscribes to the events channel. The caller closes the
// returned PubSub.
func (r *RedisClient) SubscribeToEvents(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, EventsChannel)
}

// DecodeEvent parses a payload received on the events channel.
func DecodeEvent(payload string) (models.Envelope, error) {
	var env models.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return models.Envelope{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return env, nil
}

// GetClient returns the underlying Redis client
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local vals = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(vals[1])
local last = tonumber(vals[2])
if tokens == nil then tokens = burst end
if last == nil then last = now end
local delta = math.max(0, now - last)
local new_tokens = math.min(burst, tokens + (delta * rate / 1000))
local allowed = 0
if new_tokens >= 1 then
	new_tokens = new_tokens - 1
	allowed = 1
end
redis.call('HSET', key, 'tokens', new_tokens, 'last', now)
redis.call('PEXPIRE', key, 60000)
return allowed
`)

// AllowAction implements a Redis-backed token-bucket limiter per user and
// action. It returns true if the action is allowed.
func (r *RedisClient) AllowAction(ctx context.Context, username, action string, rate, burst int) (bool, error) {
	key := fmt.Sprintf("rl:%s:%s", action, username)
	now := time.Now().UnixMilli()

	allowed, err := tokenBucket.Run(ctx, r.client, []string{key}, rate, burst, now).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}
	return allowed == 1, nil
}
