package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/pkg"
)

// errorPages maps status codes to the blocking error page shown in the
// console. Codes without an entry use the 500 page.
var errorPages = map[int]errorPage{
	http.StatusBadRequest:          {"errors/400.html", "Bad request"},
	http.StatusNotFound:            {"errors/404.html", "Not found"},
	http.StatusInternalServerError: {"errors/500.html", "Something went wrong"},
}

type errorPage struct {
	template string
	title    string
}

// renderError answers a failed request in the form the caller can use:
// a JSON envelope for the API and JSON clients, an error toast for htmx
// requests (the current page stays as it is), and an error page otherwise.
func renderError(c *gin.Context, code int, message string) {
	switch {
	case wantsJSON(c):
		c.JSON(code, pkg.Response{Code: code, Message: message})
	case pkg.IsHTMX(c):
		pkg.FailToast(c, message)
	default:
		renderErrorPage(c, code, message)
	}
}

// wantsJSON reports whether the error must be a JSON envelope. API paths
// always are; elsewhere an explicit JSON Accept header without text/html
// wins over */*.
func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	accept := strings.ToLower(c.GetHeader("Accept"))
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return true
	}
	return !acceptsHTML(c)
}

// renderErrorPage renders the error page for code. If the renderer panics
// (no templates loaded) a plain text body is written instead.
func renderErrorPage(c *gin.Context, code int, message string) {
	page, ok := errorPages[code]
	if !ok {
		page = errorPages[http.StatusInternalServerError]
	}
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8",
				[]byte(fmt.Sprintf("%d %s", code, statusText(code))))
		}
	}()
	data := gin.H{"Code": code, "Title": page.title}
	// A bare status phrase adds nothing to the page's own text.
	if !strings.EqualFold(message, statusText(code)) {
		data["Message"] = message
	}
	c.HTML(code, page.template, data)
}

// acceptsHTML matches text/html, */* and an empty Accept header.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "text/html") ||
		strings.Contains(accept, "*/*") ||
		strings.TrimSpace(accept) == ""
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Error"
}
