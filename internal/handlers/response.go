package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/shuweic/mp3/internal/dto"
	apierrors "github.com/shuweic/mp3/internal/errors"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, dto.Response{Message: http.StatusText(status), Data: data})
}

// requestContext detaches store calls from client disconnects so a started
// mutation always runs to completion.
func requestContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// readBody decodes a JSON or form encoded body into a field map. An empty
// body is an empty map.
func readBody(c *gin.Context) (map[string]any, error) {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		return readForm(c)
	}

	body := map[string]any{}
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, apierrors.ErrInvalidBody
	}
	return body, nil
}

func readForm(c *gin.Context) (map[string]any, error) {
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		if _, err := c.MultipartForm(); err != nil {
			return nil, apierrors.ErrInvalidBody
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return nil, apierrors.ErrInvalidBody
	}

	body := make(map[string]any, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		list := strings.HasSuffix(key, "[]")
		key = strings.TrimSuffix(key, "[]")
		if len(values) == 1 && !list {
			body[key] = values[0]
			continue
		}
		items := make([]any, len(values))
		for i, v := range values {
			items[i] = v
		}
		body[key] = items
	}
	return body, nil
}
