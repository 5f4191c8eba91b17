package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// Toast kinds understood by the front-end showToast listener.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// SetToast sets the HX-Trigger response header with a showToast event.
func SetToast(c *gin.Context, message, kind string) {
	trigger, _ := json.Marshal(map[string]any{
		"showToast": map[string]string{
			"message": message,
			"type":    kind,
		},
	})
	c.Header("HX-Trigger", string(trigger))
}

// FailToast shows an error toast and tells htmx to keep the current DOM.
func FailToast(c *gin.Context, message string) {
	c.Header("HX-Reswap", "none")
	SetToast(c, message, ToastError)
	c.Status(http.StatusOK)
}

// Redirect navigates the browser to location: through HX-Redirect for htmx
// requests, or a 303 See Other for plain form posts.
func Redirect(c *gin.Context, location string) {
	if IsHTMX(c) {
		c.Header("HX-Redirect", location)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

// ParseID extracts and validates a positive numeric URL parameter.
func ParseID(c *gin.Context, param string) (uint, error) {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		return 0, fmt.Errorf("invalid id: %s", raw)
	}
	return uint(id), nil
}

// SafeMessage extracts a user-safe error message from an AppError.
// Only messages from user-facing error codes (NotFound, AlreadyExists,
// Validation, Unauthorized) are returned; anything else yields fallback.
func SafeMessage(err error, fallback string) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		switch appErr.Code {
		case domain.CodeNotFound, domain.CodeAlreadyExists, domain.CodeValidation, domain.CodeUnauthorized:
			return appErr.Message
		}
	}
	return fallback
}
