package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/shuweic/mp3/internal/errors"
	"github.com/shuweic/mp3/internal/store"
)

type HealthHandler struct {
	db store.Store
}

func NewHealthHandler(db store.Store) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check reports 503 when the store does not answer a ping.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		_ = c.Error(apierrors.ErrUnavailable)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}
