package account

import "github.com/gin-gonic/gin"

// AccountModule implements the app.Module interface for the account domain.
type AccountModule struct {
	handler     *AccountHandler
	pageHandler *AccountPageHandler
}

// NewModule creates a new AccountModule with the given handlers.
// Panics if h or ph is nil.
func NewModule(h *AccountHandler, ph *AccountPageHandler) *AccountModule {
	if h == nil {
		panic("account.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("account.NewModule: pageHandler must not be nil")
	}
	return &AccountModule{handler: h, pageHandler: ph}
}

// RegisterRoutes registers account API and page routes.
func (m *AccountModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	// API routes
	api.GET("/accounts", m.handler.List)
	api.POST("/accounts", m.handler.Create)
	api.GET("/accounts/:rib", m.handler.Get)
	api.PUT("/accounts/:rib", m.handler.Update)
	api.DELETE("/accounts/:rib", m.handler.Delete)

	// Page routes
	pages.GET("/accounts", m.pageHandler.ListPage)
	pages.DELETE("/accounts/:rib", m.pageHandler.DeleteHTMX)
}
