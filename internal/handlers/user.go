package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shuweic/mp3/internal/dto"
	"github.com/shuweic/mp3/internal/query"
	"github.com/shuweic/mp3/internal/services"
	"github.com/shuweic/mp3/internal/store"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers handles GET /api/users with where, sort, select, skip, limit and count.
func (h *UserHandler) ListUsers(c *gin.Context) {
	q, err := query.Parse(c.Request.URL.Query(), store.CollectionUsers)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := requestContext(c)
	if q.CountOnly {
		n, err := h.users.Count(ctx, q.Filter)
		if err != nil {
			_ = c.Error(err)
			return
		}
		respond(c, http.StatusOK, n)
		return
	}

	docs, err := h.users.List(ctx, q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, docs)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	p, err := dto.NewUserPayload(body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.users.CreateUser(requestContext(c), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// GetUser handles GET /api/users/:id. select narrows the returned fields.
func (h *UserHandler) GetUser(c *gin.Context) {
	projection, err := query.ParseProjection(c.Request.URL.Query())
	if err != nil {
		_ = c.Error(err)
		return
	}

	doc, err := h.users.Get(requestContext(c), c.Param("id"), projection)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, doc)
}

func (h *UserHandler) ReplaceUser(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	p, err := dto.NewUserPayload(body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.users.ReplaceUser(requestContext(c), c.Param("id"), p)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(requestContext(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusNoContent, nil)
}
