package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"todo-list/backend/internal/cache"
	"todo-list/backend/internal/models"

	"github.com/gofrs/uuid"
)

const DefaultTaskCacheTTL = 5 * time.Minute

// CachedTaskService caches the read queries of a TaskService per user.
// Any write for a user drops every cached query for that user. Cache
// failures are logged and fall through to the wrapped service.
type CachedTaskService struct {
	taskService TaskService
	cache       cache.Cache
	ttl         time.Duration

	mu    sync.Mutex
	users map[uuid.UUID]*userCacheState
}

// userCacheState versions one user's cached queries. gen is part of every
// key and moves on each write, so entries written before that write are
// never read again here even when deleting them failed. pending marks such
// a failed delete; it is retried on the user's next read.
type userCacheState struct {
	gen     uint64
	pending bool
}

func NewCachedTaskService(taskService TaskService, cacheInstance cache.Cache, ttl time.Duration) *CachedTaskService {
	if ttl <= 0 {
		ttl = DefaultTaskCacheTTL
	}
	return &CachedTaskService{
		taskService: taskService,
		cache:       cacheInstance,
		ttl:         ttl,
		users:       make(map[uuid.UUID]*userCacheState),
	}
}

func (s *CachedTaskService) Create(ctx context.Context, userID uuid.UUID, task models.Task) (*models.Task, error) {
	created, err := s.taskService.Create(ctx, userID, task)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return created, nil
}

func (s *CachedTaskService) List(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.cached(ctx, userID, "list", func() ([]models.Task, error) {
		return s.taskService.List(ctx, userID)
	})
}

func (s *CachedTaskService) Update(ctx context.Context, userID, id uuid.UUID, task models.Task) (*models.Task, error) {
	updated, err := s.taskService.Update(ctx, userID, id, task)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return updated, nil
}

func (s *CachedTaskService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.taskService.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *CachedTaskService) Filter(ctx context.Context, userID uuid.UUID, isCompleted *bool) ([]models.Task, error) {
	variant := "filter:all"
	if isCompleted != nil {
		variant = "filter:" + strconv.FormatBool(*isCompleted)
	}
	return s.cached(ctx, userID, variant, func() ([]models.Task, error) {
		return s.taskService.Filter(ctx, userID, isCompleted)
	})
}

func (s *CachedTaskService) Sort(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.cached(ctx, userID, "sort", func() ([]models.Task, error) {
		return s.taskService.Sort(ctx, userID)
	})
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

// cached serves variant from the cache or loads and stores it. A result
// loaded while a write for the same user completed is returned but not
// stored.
func (s *CachedTaskService) cached(ctx context.Context, userID uuid.UUID, variant string, load func() ([]models.Task, error)) ([]models.Task, error) {
	gen, pending := s.generation(userID)
	if pending {
		s.dropEntries(ctx, userID, gen)
	}
	key := userTasksKey(userID, gen, variant)

	var tasks []models.Task
	err := s.cache.Get(ctx, key, &tasks)
	if err == nil && tasks != nil {
		return tasks, nil
	}
	if err != nil && err != cache.ErrCacheMiss {
		log.Printf("task cache get %s: %v", key, err)
	}

	tasks, err = load()
	if err != nil {
		return nil, err
	}

	if current, _ := s.generation(userID); current != gen {
		return tasks, nil
	}
	if err := s.cache.Set(ctx, key, tasks, s.ttl); err != nil {
		log.Printf("task cache set %s: %v", key, err)
	}
	return tasks, nil
}

func (s *CachedTaskService) generation(userID uuid.UUID) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)
	return st.gen, st.pending
}

// state must be called with mu held.
func (s *CachedTaskService) state(userID uuid.UUID) *userCacheState {
	st, ok := s.users[userID]
	if !ok {
		st = &userCacheState{}
		s.users[userID] = st
	}
	return st
}

func (s *CachedTaskService) invalidate(ctx context.Context, userID uuid.UUID) {
	s.mu.Lock()
	st := s.state(userID)
	st.gen++
	gen := st.gen
	s.mu.Unlock()

	s.dropEntries(ctx, userID, gen)
}

// dropEntries deletes every cached query of the user, whatever its
// generation. The outcome is recorded only if no later write has bumped
// the generation past gen.
func (s *CachedTaskService) dropEntries(ctx context.Context, userID uuid.UUID, gen uint64) {
	pattern := fmt.Sprintf("user_tasks:%s:*", userID.String())
	err := s.cache.DeletePattern(ctx, pattern)
	if err != nil {
		log.Printf("task cache invalidate %s: %v", pattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.state(userID); st.gen == gen {
		st.pending = err != nil
	}
}

func userTasksKey(userID uuid.UUID, gen uint64, variant string) string {
	return fmt.Sprintf("user_tasks:%s:%d:%s", userID.String(), gen, variant)
}
