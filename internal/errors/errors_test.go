package errors

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/shuweic/mp3/internal/dto"
	"github.com/shuweic/mp3/internal/query"
	"github.com/shuweic/mp3/internal/services"
	"github.com/shuweic/mp3/internal/store"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", &dto.ValidationError{Field: "name", Message: "name is required"}, http.StatusBadRequest, "name is required"},
		{"query", &query.Error{Param: "where", Message: "Invalid JSON in 'where' parameter"}, http.StatusBadRequest, "Invalid JSON in 'where' parameter"},
		{"user not found", services.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"task not found wrapped", fmt.Errorf("failed to update task: %w", services.ErrTaskNotFound), http.StatusNotFound, "Task not found"},
		{"bad reference", services.ErrAssignedUserNotFound, http.StatusBadRequest, "assignedUser not found"},
		{"email exists", services.ErrEmailExists, http.StatusConflict, "Email already exists"},
		{"duplicate key", fmt.Errorf("insert: %w", store.ErrDuplicateKey), http.StatusConflict, "Email already exists"},
		{"invalid id", fmt.Errorf("load: %w", store.ErrInvalidID), http.StatusBadRequest, "Invalid ID format"},
		{"unsupported query", fmt.Errorf("%w: unknown operator $regex", store.ErrUnsupportedQuery), http.StatusBadRequest, "Invalid query parameter"},
		{"api error", Conflict("taken"), http.StatusConflict, "taken"},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithError(c, NotFound("User not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"User not found","data":null}`, w.Body.String())
	assert.False(t, NotFound("x").Internal())
	assert.True(t, ErrInternalError.Internal())
}
