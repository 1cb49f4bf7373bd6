package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKeyPrefix = "smartinbox:conversation:"
	defaultRedisTTL       = 24 * time.Hour
)

// RedisConfig configures the Redis snapshot store.
type RedisConfig struct {
	URL          string        `envconfig:"URL" split_words:"true" required:"true"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"3s"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	TTL          time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// RedisStore persists conversation snapshots in Redis.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	opts.DialTimeout = cfg.DialTimeout

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}

	return &RedisStore{
		client:    redis.NewClient(opts),
		keyPrefix: defaultRedisKeyPrefix,
		ttl:       ttl,
	}, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Conversation, error) {
	key, err := s.key(id)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation snapshot: %w", err)
	}

	var st Conversation
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal conversation snapshot: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot loaded from store: %w", err)
	}
	return &st, nil
}

func (s *RedisStore) Save(ctx context.Context, st *Conversation) error {
	if st == nil {
		return ErrNilConversation
	}
	if err := st.Validate(); err != nil {
		return err
	}

	key, err := s.key(st.ID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal conversation snapshot: %w", err)
	}

	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key, err := s.key(id)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete conversation snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return s.keyPrefix + id, nil
}
