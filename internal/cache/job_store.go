package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stockpilot/backend-go/internal/config"
	"github.com/stockpilot/backend-go/internal/domain"
)

const jobKeyPrefix = "reorder:job"

// JobStore persists analysis jobs with a bounded TTL. Each job record is
// written only by its own run.
type JobStore interface {
	SaveJob(ctx context.Context, job *domain.AnalysisJob) error
	GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error)
}

type redisJobStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJobStore returns a redis-backed job store, or an in-memory store when
// caching is disabled (single-process deployments and tests).
func NewJobStore(cfg config.CacheConfig) (JobStore, error) {
	if !cfg.Enabled {
		return NewMemoryJobStore(jobTTL(cfg)), nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisJobStore{client: client, ttl: jobTTL(cfg)}, nil
}

func (s *redisJobStore) SaveJob(ctx context.Context, job *domain.AnalysisJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode analysis job: %w", err)
	}

	key := fmt.Sprintf("%s:%s", jobKeyPrefix, job.ID)
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisJobStore) GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	key := fmt.Sprintf("%s:%s", jobKeyPrefix, id)
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, domain.NotFoundErrorf("analysis job %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var job domain.AnalysisJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("decode analysis job: %w", err)
	}

	return &job, nil
}

type memoryJobEntry struct {
	job       domain.AnalysisJob
	expiresAt time.Time
}

// MemoryJobStore is the in-process fallback job store.
type MemoryJobStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	jobs map[string]memoryJobEntry
	now  func() time.Time
}

// NewMemoryJobStore creates an in-memory job store with the given TTL.
func NewMemoryJobStore(ttl time.Duration) *MemoryJobStore {
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	return &MemoryJobStore{
		ttl:  ttl,
		jobs: make(map[string]memoryJobEntry),
		now:  time.Now,
	}
}

// WithClock overrides the store's clock.
func (s *MemoryJobStore) WithClock(now func() time.Time) *MemoryJobStore {
	s.now = now
	return s
}

func (s *MemoryJobStore) SaveJob(ctx context.Context, job *domain.AnalysisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = memoryJobEntry{
		job:       *job,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryJobStore) GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		return nil, domain.NotFoundErrorf("analysis job %s", id)
	}

	job := entry.job
	return &job, nil
}
