package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wikigen/wikigen/internal/config"
)

// Task states as reported by the status endpoint.
const (
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskError      = "error"
)

// TaskRecord is one background generation task.
type TaskRecord struct {
	ID             string                 `json:"id"`
	Topic          string                 `json:"topic"`
	Status         string                 `json:"status"`
	Article        map[string]interface{} `json:"article,omitempty"`
	Validated      bool                   `json:"validated"`
	Error          string                 `json:"error,omitempty"`
	ProcessingTime float64                `json:"processing_time"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// TaskStore persists task records across the submit/poll gap.
type TaskStore interface {
	Put(ctx context.Context, rec TaskRecord) error
	Get(ctx context.Context, id string) (TaskRecord, bool, error)
}

// NewTaskStore builds the configured store implementation.
func NewTaskStore(ctx context.Context, cfg config.StorageConfig) (TaskStore, error) {
	switch cfg.TaskStore {
	case "", "memory":
		return NewMemoryTaskStore(), nil
	case "redis":
		return NewRedisTaskStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported task store: %s", cfg.TaskStore)
	}
}

// MemoryTaskStore keeps records in-process. It is the default and loses
// tasks on restart.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]TaskRecord
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]TaskRecord)}
}

func (s *MemoryTaskStore) Put(ctx context.Context, rec TaskRecord) error {
	s.mu.Lock()
	s.tasks[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryTaskStore) Get(ctx context.Context, id string) (TaskRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tasks[id]
	return rec, ok, nil
}

// RedisTaskStore keeps records in redis so several instances can share
// them. Records expire after TTL.
type RedisTaskStore struct {
	client *redis.Client
	ttl    time.Duration
}

const taskKeyPrefix = "task:"

func NewRedisTaskStore(ctx context.Context, cfg config.RedisConfig) (*RedisTaskStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTaskStore{client: client, ttl: ttl}, nil
}

func (s *RedisTaskStore) Put(ctx context.Context, rec TaskRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if err := s.client.Set(ctx, taskKeyPrefix+rec.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store task: %w", err)
	}
	return nil
}

func (s *RedisTaskStore) Get(ctx context.Context, id string) (TaskRecord, bool, error) {
	data, err := s.client.Get(ctx, taskKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return TaskRecord{}, false, nil
	}
	if err != nil {
		return TaskRecord{}, false, fmt.Errorf("load task: %w", err)
	}
	var rec TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return TaskRecord{}, false, fmt.Errorf("decode task: %w", err)
	}
	return rec, true, nil
}

// Close releases the redis connection.
func (s *RedisTaskStore) Close() error {
	return s.client.Close()
}
