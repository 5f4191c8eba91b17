package dashboard

import "github.com/gin-gonic/gin"

// DashboardModule implements the app.Module interface for the dashboard.
type DashboardModule struct {
	handler *DashboardHandler
}

// NewModule creates a new DashboardModule. Panics if h is nil.
func NewModule(h *DashboardHandler) *DashboardModule {
	if h == nil {
		panic("dashboard.NewModule: handler must not be nil")
	}
	return &DashboardModule{handler: h}
}

// RegisterRoutes registers the dashboard API and page routes.
func (m *DashboardModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.GET("/dashboard", m.handler.Stats)
	pages.GET("/", m.handler.Page)
}
