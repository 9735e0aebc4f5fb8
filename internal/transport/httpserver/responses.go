package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/log"
)

const internalErrorMessage = "internal server error"

// Envelope wraps every response body.
type Envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// fail maps err onto a status code. Internal details never leave the server.
func fail(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, internalErrorMessage
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrSnapshot):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	default:
		log.FromCtx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Envelope{
		Success:   false,
		Error:     message,
		RequestID: requestIDFrom(c),
		Timestamp: time.Now().UTC(),
	})
}
