package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"todo-list/backend/internal/models"

	"github.com/gofrs/uuid"
)

func TestTask_BeforeCreateAssignsID(t *testing.T) {
	task := models.Task{Title: "Test Task"}

	if err := task.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate returned error: %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected ID to be assigned")
	}
}

func TestTask_BeforeCreateKeepsExistingID(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	task := models.Task{ID: id}

	if err := task.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate returned error: %v", err)
	}

	if task.ID != id {
		t.Errorf("Expected ID %s to be kept, got %s", id, task.ID)
	}
}

func TestUser_BeforeCreateAssignsID(t *testing.T) {
	user := models.User{Username: "testuser", Password: "hashedpassword"}

	if err := user.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate returned error: %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected ID to be assigned")
	}
}

func TestUser_PasswordNotSerialized(t *testing.T) {
	user := models.User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: "testuser",
		Password: "hashedpassword",
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if _, ok := fields["password"]; ok {
		t.Error("Expected password hash to be omitted from JSON")
	}
}

func TestTask_ApplyUpdateOverwritesMutableFields(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	owner := uuid.Must(uuid.NewV4())
	due := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	task := models.Task{
		ID:          id,
		UserID:      owner,
		Title:       "old",
		Description: "old description",
		DueDate:     &due,
		IsCompleted: false,
	}

	task.ApplyUpdate(models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      uuid.Must(uuid.NewV4()),
		Title:       "new",
		IsCompleted: true,
	})

	if task.ID != id || task.UserID != owner {
		t.Error("Expected ID and UserID to be unchanged")
	}
	if task.Title != "new" || !task.IsCompleted {
		t.Errorf("Expected title and completion to be overwritten, got %q %v", task.Title, task.IsCompleted)
	}
	if task.Description != "" || task.DueDate != nil {
		t.Error("Expected omitted fields to be cleared by the full overwrite")
	}
}

func TestTask_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(models.Task{Title: "x"})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	for _, name := range []string{"id", "userId", "title", "description", "dueDate", "isCompleted"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("Expected JSON field %q", name)
		}
	}
}
