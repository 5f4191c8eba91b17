package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/module/upload"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// PictureStore stores uploaded profile pictures.
type PictureStore interface {
	Save(ctx context.Context, a *console.Attachment) (string, error)
	Remove(url string) error
}

// ClientHandler handles REST API requests for clients.
type ClientHandler struct {
	svc      domain.ClientService
	pictures PictureStore
	now      func() time.Time
}

// NewHandler creates a new ClientHandler.
func NewHandler(svc domain.ClientService, pictures PictureStore) *ClientHandler {
	return &ClientHandler{svc: svc, pictures: pictures, now: time.Now}
}

// List handles GET /api/v1/clients.
func (h *ClientHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	result, err := h.svc.ListClients(c.Request.Context(), filter)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Get handles GET /api/v1/clients/:id.
func (h *ClientHandler) Get(c *gin.Context) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid id", err))
		return
	}

	client, err := h.svc.GetClient(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, client)
}

// Create handles POST /api/v1/clients. The body is either JSON, or
// multipart with the client as JSON in the "data" part and an optional
// "profilePicture" file.
func (h *ClientHandler) Create(c *gin.Context) {
	var req ClientRequest
	multipartBody := strings.HasPrefix(c.ContentType(), "multipart/")
	if multipartBody {
		if err := json.Unmarshal([]byte(c.PostForm("data")), &req); err != nil {
			pkg.Error(c, domain.NewAppError(domain.CodeValidation, "data must be a JSON client", err))
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid request body", err))
		return
	}
	client := req.ToClient()

	var pictureURL string
	if multipartBody {
		if fh, err := c.FormFile(upload.PictureField); err == nil {
			a := upload.FromFileHeader(fh)
			pictureURL, err = h.pictures.Save(c.Request.Context(), &a)
			if err != nil {
				pkg.Error(c, err)
				return
			}
			client.ProfilePictureURL = pictureURL
		}
	}

	created, err := h.svc.CreateClient(c.Request.Context(), client)
	if err != nil {
		h.discardPicture(c.Request.Context(), pictureURL)
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, created)
}

// Replace handles PUT /api/v1/clients/:id.
func (h *ClientHandler) Replace(c *gin.Context) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid id", err))
		return
	}

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid request body", err))
		return
	}

	updated, err := h.svc.ReplaceClient(c.Request.Context(), id, req.ToClient())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, updated)
}

// Patch handles PATCH /api/v1/clients/:id. Only the fields present in the
// body change; null clears a field.
func (h *ClientHandler) Patch(c *gin.Context) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid id", err))
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid request body", err))
		return
	}
	if raw, ok := fields["id"]; ok && fmt.Sprint(raw) != fmt.Sprint(id) {
		pkg.Error(c, domain.NewFieldError(map[string]string{"id": "id does not match the URL"}))
		return
	}

	updated, err := h.svc.PatchClient(c.Request.Context(), id, fields)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, updated)
}

// ProfilePicture handles PATCH /api/v1/clients/:id/profile-picture. It takes
// either a profilePictureUrl (query, form or JSON) or a multipart file.
func (h *ClientHandler) ProfilePicture(c *gin.Context) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid id", err))
		return
	}

	url := c.Query("profilePictureUrl")
	var stored string
	if url == "" {
		if fh, ferr := c.FormFile(upload.PictureField); ferr == nil {
			a := upload.FromFileHeader(fh)
			stored, err = h.pictures.Save(c.Request.Context(), &a)
			if err != nil {
				pkg.Error(c, err)
				return
			}
			url = stored
		} else {
			var req ProfilePictureRequest
			_ = c.ShouldBind(&req)
			url = req.ProfilePictureURL
		}
	}

	updated, err := h.svc.SetProfilePicture(c.Request.Context(), id, url)
	if err != nil {
		h.discardPicture(c.Request.Context(), stored)
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, updated)
}

// Delete handles DELETE /api/v1/clients/:id.
func (h *ClientHandler) Delete(c *gin.Context) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid id", err))
		return
	}

	if err := h.svc.DeleteClient(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Export handles GET /api/v1/clients/export: every client matching the
// filter as an xlsx workbook.
func (h *ClientHandler) Export(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	writeExport(c, h.svc, filter, h.now())
}

func (h *ClientHandler) discardPicture(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := h.pictures.Remove(url); err != nil {
		slog.WarnContext(ctx, "failed to remove orphaned picture", "url", url, "error", err)
	}
}

// parseFilter reads a client filter from the query string. Paging values
// are parsed strictly so that bad input is reported rather than defaulted.
func parseFilter(c *gin.Context) (domain.ClientFilter, error) {
	filter, err := console.ParseClientQuery(c.Request.URL.Query()).Filter()
	var appErr *domain.AppError
	if err != nil && (!errors.As(err, &appErr) || appErr.Code != domain.CodeValidation) {
		return filter, err
	}
	predicateErrs := domain.FieldErrors(err)

	filter.PageRequest = pkg.ParsePageRequest(c)
	verr := filter.Validate()
	if len(predicateErrs) == 0 {
		return filter, verr
	}
	merged := map[string]string{}
	for k, v := range domain.FieldErrors(verr) {
		merged[k] = v
	}
	for k, v := range predicateErrs {
		merged[k] = v
	}
	return filter, domain.NewFieldError(merged)
}
