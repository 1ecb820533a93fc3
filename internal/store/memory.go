package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/customsubash/image-labelling-pipeline/pkg/models"
	"github.com/google/uuid"
)

// MemoryStore implements Store with a map guarded by a single RWMutex.
// State lives for the lifetime of the process only.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.Job
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[uuid.UUID]*models.Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds; there is no backing service.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) CreateJob(_ context.Context, input, output string) (*models.Job, error) {
	job := models.NewJob(input, output, s.now())

	snapshot := job.Clone()

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return snapshot, nil
}

func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) ListJobs(_ context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].SubmittedAt.Equal(jobs[j].SubmittedAt) {
			return jobs[i].ID.String() < jobs[j].ID.String()
		}
		return jobs[i].SubmittedAt.Before(jobs[j].SubmittedAt)
	})
	return jobs, nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, id uuid.UUID, fn JobMutation) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	working := job.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.jobs[id] = working
	return working.Clone(), nil
}

var _ Store = (*MemoryStore)(nil)
