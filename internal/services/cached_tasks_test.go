package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"todo-list/backend/internal/cache"
	"todo-list/backend/internal/models"
	"todo-list/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTaskService records how often each read reaches storage.
type countingTaskService struct {
	tasks map[uuid.UUID][]models.Task
	reads int
	fail  error
}

func newCountingTaskService() *countingTaskService {
	return &countingTaskService{tasks: map[uuid.UUID][]models.Task{}}
}

func (s *countingTaskService) Create(_ context.Context, userID uuid.UUID, task models.Task) (*models.Task, error) {
	task.ID = uuid.Must(uuid.NewV4())
	task.UserID = userID
	s.tasks[userID] = append(s.tasks[userID], task)
	return &task, nil
}

func (s *countingTaskService) List(_ context.Context, userID uuid.UUID) ([]models.Task, error) {
	s.reads++
	if s.fail != nil {
		return nil, s.fail
	}
	return append([]models.Task{}, s.tasks[userID]...), nil
}

func (s *countingTaskService) Update(_ context.Context, userID, id uuid.UUID, task models.Task) (*models.Task, error) {
	for i := range s.tasks[userID] {
		if s.tasks[userID][i].ID == id {
			s.tasks[userID][i].ApplyUpdate(task)
			updated := s.tasks[userID][i]
			return &updated, nil
		}
	}
	return nil, services.ErrTaskNotFound
}

func (s *countingTaskService) Delete(_ context.Context, userID, id uuid.UUID) error {
	for i, task := range s.tasks[userID] {
		if task.ID == id {
			s.tasks[userID] = append(s.tasks[userID][:i], s.tasks[userID][i+1:]...)
			return nil
		}
	}
	return services.ErrTaskNotFound
}

func (s *countingTaskService) Filter(ctx context.Context, userID uuid.UUID, isCompleted *bool) ([]models.Task, error) {
	all, err := s.List(ctx, userID)
	if err != nil || isCompleted == nil {
		return all, err
	}
	filtered := []models.Task{}
	for _, task := range all {
		if task.IsCompleted == *isCompleted {
			filtered = append(filtered, task)
		}
	}
	return filtered, nil
}

func (s *countingTaskService) Sort(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.List(ctx, userID)
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error { return cache.ErrCacheDown }
func (brokenCache) Get(context.Context, string, interface{}) error                { return cache.ErrCacheDown }
func (brokenCache) Delete(context.Context, string) error                          { return cache.ErrCacheDown }
func (brokenCache) DeletePattern(context.Context, string) error                   { return cache.ErrCacheDown }
func (brokenCache) Stats() map[string]interface{}                                 { return nil }
func (brokenCache) Health(context.Context) error                                  { return cache.ErrCacheDown }
func (brokenCache) Close() error                                                  { return nil }

func TestCachedTaskService_ServesRepeatedReadsFromCache(t *testing.T) {
	inner := newCountingTaskService()
	svc := services.NewCachedTaskService(inner, cache.NewMultiLevelCache(nil), time.Minute)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	_, err := svc.Create(ctx, userID, models.Task{Title: "one"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		tasks, err := svc.List(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	}
	assert.Equal(t, 1, inner.reads)
}

func TestCachedTaskService_EmptyListIsNotNil(t *testing.T) {
	svc := services.NewCachedTaskService(newCountingTaskService(), cache.NewMultiLevelCache(nil), time.Minute)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	for i := 0; i < 2; i++ {
		tasks, err := svc.List(ctx, userID)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	}
}

func TestCachedTaskService_WritesInvalidateUserQueries(t *testing.T) {
	inner := newCountingTaskService()
	svc := services.NewCachedTaskService(inner, cache.NewMultiLevelCache(nil), time.Minute)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	created, err := svc.Create(ctx, userID, models.Task{Title: "one"})
	require.NoError(t, err)

	tasks, err := svc.Filter(ctx, userID, boolPtr(true))
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = svc.Update(ctx, userID, created.ID, models.Task{Title: "one", IsCompleted: true})
	require.NoError(t, err)

	tasks, err = svc.Filter(ctx, userID, boolPtr(true))
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	sorted, err := svc.Sort(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, sorted, 1)

	require.NoError(t, svc.Delete(ctx, userID, created.ID))

	sorted, err = svc.Sort(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, sorted)
}

func TestCachedTaskService_UsersDoNotShareEntries(t *testing.T) {
	svc := services.NewCachedTaskService(newCountingTaskService(), cache.NewMultiLevelCache(nil), time.Minute)
	ctx := context.Background()
	alice := uuid.Must(uuid.NewV4())
	bob := uuid.Must(uuid.NewV4())

	_, err := svc.Create(ctx, alice, models.Task{Title: "alice's"})
	require.NoError(t, err)

	aliceTasks, err := svc.List(ctx, alice)
	require.NoError(t, err)
	bobTasks, err := svc.List(ctx, bob)
	require.NoError(t, err)

	assert.Len(t, aliceTasks, 1)
	assert.Empty(t, bobTasks)
}

func TestCachedTaskService_CacheFailuresFallThrough(t *testing.T) {
	inner := newCountingTaskService()
	svc := services.NewCachedTaskService(inner, brokenCache{}, time.Minute)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	created, err := svc.Create(ctx, userID, models.Task{Title: "one"})
	require.NoError(t, err)

	tasks, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	require.NoError(t, svc.Delete(ctx, userID, created.ID))
}

func TestCachedTaskService_PropagatesErrors(t *testing.T) {
	inner := newCountingTaskService()
	inner.fail = errors.New("storage down")
	svc := services.NewCachedTaskService(inner, cache.NewMultiLevelCache(nil), time.Minute)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	_, err := svc.List(ctx, userID)
	assert.EqualError(t, err, "storage down")

	err = svc.Delete(ctx, userID, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, services.ErrTaskNotFound)
}

// gatedTaskService holds the first List after it has read storage until
// release is closed.
type gatedTaskService struct {
	*countingTaskService
	loaded  chan struct{}
	release chan struct{}
}

func (s *gatedTaskService) List(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	tasks, err := s.countingTaskService.List(ctx, userID)
	if s.loaded != nil {
		loaded := s.loaded
		s.loaded = nil
		close(loaded)
		<-s.release
	}
	return tasks, err
}

func TestCachedTaskService_ReadOverlappingWriteIsNotKept(t *testing.T) {
	inner := &gatedTaskService{
		countingTaskService: newCountingTaskService(),
		loaded:              make(chan struct{}),
		release:             make(chan struct{}),
	}
	svc := services.NewCachedTaskService(inner, cache.NewMultiLevelCache(nil), time.Minute)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	before := make(chan []models.Task)
	go func() {
		tasks, _ := svc.List(ctx, userID)
		before <- tasks
	}()

	<-inner.loaded
	_, err := svc.Create(ctx, userID, models.Task{Title: "one"})
	require.NoError(t, err)
	close(inner.release)
	assert.Empty(t, <-before)

	tasks, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	sorted, err := svc.Sort(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, sorted, 1)
}

// flakyCache is a MemoryCache whose pattern deletes can be made to fail.
type flakyCache struct {
	*cache.MemoryCache
	failDeletes bool
}

func (c *flakyCache) DeletePattern(ctx context.Context, pattern string) error {
	if c.failDeletes {
		return cache.ErrCacheDown
	}
	return c.MemoryCache.DeletePattern(ctx, pattern)
}

func TestCachedTaskService_FailedInvalidationDoesNotServeStaleList(t *testing.T) {
	inner := newCountingTaskService()
	shared := &flakyCache{MemoryCache: cache.NewMemoryCache()}
	svc := services.NewCachedTaskService(inner, cache.NewMultiLevelCache(shared), time.Minute)
	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	tasks, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	shared.failDeletes = true
	_, err = svc.Create(ctx, userID, models.Task{Title: "one"})
	require.NoError(t, err)

	tasks, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 2, shared.Len(), "pre-write entry survives next to the new one")

	shared.failDeletes = false
	tasks, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, shared.Len(), "retried delete removes the pre-write entry")
}
