package upload

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/pkg"
)

// PictureField is the multipart field carrying a profile picture.
const PictureField = "profilePicture"

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadHandler serves the upload API.
type UploadHandler struct {
	store *Store
}

// NewHandler creates an UploadHandler writing to store.
func NewHandler(store *Store) *UploadHandler {
	return &UploadHandler{store: store}
}

// ProfilePicture handles POST /api/v1/upload/profile-picture. The file is
// read from the "profilePicture" field, or "file" for older clients.
func (h *UploadHandler) ProfilePicture(c *gin.Context) {
	fh, err := c.FormFile(PictureField)
	if err != nil {
		fh, err = c.FormFile("file")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, pkg.ValidationErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "validation error",
			Errors:  map[string]string{PictureField: "No file selected"},
		})
		return
	}

	a := FromFileHeader(fh)
	url, err := h.store.Save(c.Request.Context(), &a)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, UploadResponse{URL: url})
}
