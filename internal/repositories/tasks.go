package repositories

import (
	"context"
	"errors"
	"fmt"

	"todo-list/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// mutableTaskColumns are the only columns an update may write; owner and id
// are never among them.
var mutableTaskColumns = []string{"title", "description", "due_date", "is_completed", "updated_at"}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// Filter lists the user's tasks, restricted to the given completion state
// when isCompleted is non-nil.
func (r *TaskRepository) Filter(ctx context.Context, userID uuid.UUID, isCompleted *bool) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if isCompleted != nil {
		query = query.Where("is_completed = ?", *isCompleted)
	}
	return r.find(query)
}

// ListByUserOrderedByDueDate leaves the position of NULL due dates to the
// storage engine.
func (r *TaskRepository) ListByUserOrderedByDueDate(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID).Order("due_date ASC"))
}

func (r *TaskRepository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return &task, nil
}

// UpdateForUser writes the mutable columns of task, matching on both its
// id and owner.
func (r *TaskRepository) UpdateForUser(ctx context.Context, task *models.Task) error {
	result := r.db.WithContext(ctx).
		Model(task).
		Where("user_id = ?", task.UserID).
		Select(mutableTaskColumns).
		Updates(task)
	if result.Error != nil {
		return fmt.Errorf("update task %s: %w", task.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Task{})
	if result.Error != nil {
		return fmt.Errorf("delete task %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) find(query *gorm.DB) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
