package upload

import "github.com/gin-gonic/gin"

// UploadModule implements the app.Module interface for picture uploads.
type UploadModule struct {
	handler *UploadHandler
}

// NewModule creates a new UploadModule.
// Panics if h is nil.
func NewModule(h *UploadHandler) *UploadModule {
	if h == nil {
		panic("upload.NewModule: handler must not be nil")
	}
	return &UploadModule{handler: h}
}

// RegisterRoutes registers the upload API and serves stored files.
func (m *UploadModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.POST("/upload/profile-picture", m.handler.ProfilePicture)
	pages.Static(m.handler.store.URLPrefix(), m.handler.store.Dir())
}
