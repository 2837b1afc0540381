package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shuweic/mp3/internal/dto"
	"github.com/shuweic/mp3/internal/query"
	"github.com/shuweic/mp3/internal/services"
	"github.com/shuweic/mp3/internal/store"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListTasks handles GET /api/tasks. Without a limit at most
// query.DefaultTaskLimit tasks are returned.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	q, err := query.Parse(c.Request.URL.Query(), store.CollectionTasks)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := requestContext(c)
	if q.CountOnly {
		n, err := h.tasks.Count(ctx, q.Filter)
		if err != nil {
			_ = c.Error(err)
			return
		}
		respond(c, http.StatusOK, n)
		return
	}

	docs, err := h.tasks.List(ctx, q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, docs)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	p, err := h.payload(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	task, err := h.tasks.CreateTask(requestContext(c), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	projection, err := query.ParseProjection(c.Request.URL.Query())
	if err != nil {
		_ = c.Error(err)
		return
	}

	doc, err := h.tasks.Get(requestContext(c), c.Param("id"), projection)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, doc)
}

func (h *TaskHandler) ReplaceTask(c *gin.Context) {
	p, err := h.payload(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	task, err := h.tasks.ReplaceTask(requestContext(c), c.Param("id"), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.tasks.DeleteTask(requestContext(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}

func (h *TaskHandler) payload(c *gin.Context) (*dto.TaskPayload, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}
	return dto.NewTaskPayload(body)
}
