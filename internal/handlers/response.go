package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondEngineError maps engine error codes onto HTTP statuses. Transition
// and completion-gate rejections are conflicts over current state, not bad
// input, and get 409.
func RespondEngineError(c *gin.Context, err error) {
	code := domeng.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case domeng.CodeValidation, domeng.CodeInvalidStatus,
		domeng.CodeDateRangeViolation, domeng.CodeSprintMilestoneMismatch:
		status = http.StatusUnprocessableEntity
	case domeng.CodeIllegalTransition, domeng.CodeIncompleteTasks, domeng.CodeConflict:
		status = http.StatusConflict
	case domeng.CodeNotFound:
		status = http.StatusNotFound
	case domeng.CodeRetryable:
		status = http.StatusServiceUnavailable
	}
	RespondError(c, status, string(code), err)
}
