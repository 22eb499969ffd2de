package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists ledgers per browser session.
type Store interface {
	Load(ctx context.Context, session string) (*Ledger, error)
	Save(ctx context.Context, session string, l *Ledger) error
}

type MemoryStore struct {
	mu      sync.RWMutex
	ledgers map[string]Ledger
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ledgers: make(map[string]Ledger)}
}

// Load returns an empty ledger for unknown sessions.
func (s *MemoryStore) Load(_ context.Context, session string) (*Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[session]
	if !ok {
		return &Ledger{}, nil
	}
	l.Items = l.Snapshot()
	return &l, nil
}

func (s *MemoryStore) Save(_ context.Context, session string, l *Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledgers[session] = Ledger{Table: l.Table, Items: l.Snapshot()}
	return nil
}

// RedisStore keeps ledgers as JSON under cart:<session> with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, session string) (*Ledger, error) {
	data, err := s.client.Get(ctx, key(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &l, nil
}

func (s *RedisStore) Save(ctx context.Context, session string, l *Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, key(session), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set cart: %w", err)
	}
	return nil
}

func key(session string) string {
	return "cart:" + session
}
