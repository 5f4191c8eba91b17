package client

import "github.com/gin-gonic/gin"

// ClientModule implements the app.Module interface for the client domain.
type ClientModule struct {
	handler     *ClientHandler
	pageHandler *ClientPageHandler
}

// NewModule creates a new ClientModule with the given handlers.
// Panics if h or ph is nil.
func NewModule(h *ClientHandler, ph *ClientPageHandler) *ClientModule {
	if h == nil {
		panic("client.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("client.NewModule: pageHandler must not be nil")
	}
	return &ClientModule{handler: h, pageHandler: ph}
}

// RegisterRoutes registers client API and page routes.
func (m *ClientModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	// API routes
	api.GET("/clients", m.handler.List)
	api.POST("/clients", m.handler.Create)
	api.GET("/clients/export", m.handler.Export)
	api.GET("/clients/:id", m.handler.Get)
	api.PUT("/clients/:id", m.handler.Replace)
	api.PATCH("/clients/:id", m.handler.Patch)
	api.PATCH("/clients/:id/profile-picture", m.handler.ProfilePicture)
	api.DELETE("/clients/:id", m.handler.Delete)

	// Page routes
	pages.GET("/clients", m.pageHandler.ListPage)
	pages.GET("/clients/rows", m.pageHandler.Rows)
	pages.GET("/clients/export.xlsx", m.pageHandler.Export)
	pages.GET("/clients/new", m.pageHandler.NewPage)
	pages.POST("/clients", m.pageHandler.Create)
	pages.GET("/clients/preview-update", m.pageHandler.PreviewPage)
	pages.POST("/clients/preview-update", m.pageHandler.ConfirmUpdate)
	pages.POST("/clients/preview-update/back", m.pageHandler.BackToEdit)
	pages.GET("/clients/:id", m.pageHandler.DetailPage)
	pages.GET("/clients/:id/edit", m.pageHandler.EditPage)
	pages.POST("/clients/:id/edit", m.pageHandler.Edit)
	pages.GET("/clients/:id/delete", m.pageHandler.DeleteDialog)
	pages.POST("/clients/:id/delete", m.pageHandler.Delete)
	pages.DELETE("/clients/:id", m.pageHandler.Delete)
}
