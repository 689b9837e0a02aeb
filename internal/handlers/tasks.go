package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"todo-list/backend/internal/middleware"
	"todo-list/backend/internal/models"
	"todo-list/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// TaskHandler serves the task routes. Every route expects RequireUser to
// have stored the caller.
type TaskHandler struct {
	taskService services.TaskService
}

// TaskRequest is the client-writable part of a task. Identity, owner and
// timestamps are assigned by the server, so any such fields in a payload are
// dropped without being decoded.
type TaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted"`
}

func (r TaskRequest) toTask() models.Task {
	return models.Task{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		IsCompleted: r.IsCompleted,
	}
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	user := callerOrAbort(c)
	if user == nil {
		return
	}

	var input TaskRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task payload"})
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), user.ID, input.toTask())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	user := callerOrAbort(c)
	if user == nil {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), user.ID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user := callerOrAbort(c)
	if user == nil {
		return
	}

	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		handleTaskError(c, services.ErrTaskNotFound)
		return
	}

	var input TaskRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task payload"})
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), user.ID, id, input.toTask())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user := callerOrAbort(c)
	if user == nil {
		return
	}

	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		handleTaskError(c, services.ErrTaskNotFound)
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), user.ID, id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// FilterTasks narrows by completion state only when isCompleted is present.
func (h *TaskHandler) FilterTasks(c *gin.Context) {
	user := callerOrAbort(c)
	if user == nil {
		return
	}

	var isCompleted *bool
	if raw, ok := c.GetQuery("isCompleted"); ok && raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "isCompleted must be true or false"})
			return
		}
		isCompleted = &v
	}

	tasks, err := h.taskService.Filter(c.Request.Context(), user.ID, isCompleted)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) SortTasks(c *gin.Context) {
	user := callerOrAbort(c)
	if user == nil {
		return
	}

	tasks, err := h.taskService.Sort(c.Request.Context(), user.ID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func callerOrAbort(c *gin.Context) *models.User {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return user
}

func handleTaskError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "task not found",
		})
		return
	}
	log.Printf("task request %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "failed to process task request",
	})
}
