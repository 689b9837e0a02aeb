package services

import (
	"context"
	"errors"

	"todo-list/backend/internal/models"
	"todo-list/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	Filter(ctx context.Context, userID uuid.UUID, isCompleted *bool) ([]models.Task, error)
	ListByUserOrderedByDueDate(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error)
	UpdateForUser(ctx context.Context, task *models.Task) error
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) error
}

// TaskService operates only on tasks owned by the given user.
type TaskService interface {
	Create(ctx context.Context, userID uuid.UUID, task models.Task) (*models.Task, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	Update(ctx context.Context, userID, id uuid.UUID, task models.Task) (*models.Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Filter(ctx context.Context, userID uuid.UUID, isCompleted *bool) ([]models.Task, error)
	Sort(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
}

type TaskServiceImpl struct {
	tasks TaskStore
}

func NewTaskService(tasks TaskStore) *TaskServiceImpl {
	return &TaskServiceImpl{tasks: tasks}
}

// Create ignores any id, owner or timestamps supplied by the client.
func (s *TaskServiceImpl) Create(ctx context.Context, userID uuid.UUID, task models.Task) (*models.Task, error) {
	created := &models.Task{UserID: userID}
	created.ApplyUpdate(task)

	if err := s.tasks.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *TaskServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.tasks.ListByUser(ctx, userID)
}

func (s *TaskServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, task models.Task) (*models.Task, error) {
	existing, err := s.tasks.FindForUser(ctx, id, userID)
	if err != nil {
		return nil, notFound(err)
	}

	existing.ApplyUpdate(task)
	if err := s.tasks.UpdateForUser(ctx, existing); err != nil {
		return nil, notFound(err)
	}
	return existing, nil
}

func (s *TaskServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return notFound(s.tasks.DeleteForUser(ctx, id, userID))
}

func (s *TaskServiceImpl) Filter(ctx context.Context, userID uuid.UUID, isCompleted *bool) ([]models.Task, error) {
	return s.tasks.Filter(ctx, userID, isCompleted)
}

func (s *TaskServiceImpl) Sort(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.tasks.ListByUserOrderedByDueDate(ctx, userID)
}

func notFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
