package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// ApplyUpdate overwrites the client-mutable fields with those of src.
// Identity and ownership are never touched.
func (t *Task) ApplyUpdate(src Task) {
	t.Title = src.Title
	t.Description = src.Description
	t.DueDate = src.DueDate
	t.IsCompleted = src.IsCompleted
}
