package app

import "github.com/gin-gonic/gin"

// Module is one area of the console (clients, accounts, auth, ...). It
// mounts its JSON endpoints on api (/api/v1) and its htmx pages on pages.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}
