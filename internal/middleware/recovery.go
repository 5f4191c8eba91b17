package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/pkg"
)

const recoveredMessage = "Something went wrong. Please try again."

// Recovery recovers from panics, logs the value with its stack and answers
// in the form the caller expects: an error toast for htmx requests, the
// errors/500.html page for browsers and a JSON envelope otherwise.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			logger.ErrorContext(c.Request.Context(), "panic recovered",
				slog.Any("panic", err),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)

			c.Abort()
			switch {
			case pkg.IsHTMX(c):
				c.Header("HX-Reswap", "none")
				pkg.SetToast(c, recoveredMessage, pkg.ToastError)
				c.Status(http.StatusInternalServerError)
			case acceptsHTML(c):
				renderHTMLError(c)
			default:
				c.JSON(http.StatusInternalServerError, pkg.Response{
					Code:    http.StatusInternalServerError,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// renderHTMLError renders errors/500.html, falling back to plain text when no
// renderer is configured.
func renderHTMLError(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
		}
	}()
	c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}
