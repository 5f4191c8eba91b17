package client

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
	"github.com/simp-lee/bankoffice/internal/module/upload"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// Page messages.
const (
	CreatedMessage     = "Client created successfully"
	DeletedMessage     = "Client deleted"
	EditExpiredMessage = "This edit session expired. The form now shows the latest saved values; review your changes and submit again."
)

const listPath = "/clients"

// snapshotField is the hidden edit form input carrying the token of the
// client as the form first showed it.
const (
	snapshotField = "snapshot"
	snapshotKey   = "client.editSnapshot"
)

// ClientPageHandler handles page rendering and htmx endpoints for clients.
type ClientPageHandler struct {
	svc      domain.ClientService
	pictures PictureStore
	handoffs *console.HandoffStore
	now      func() time.Time
}

// NewClientPageHandler creates a new ClientPageHandler.
func NewClientPageHandler(svc domain.ClientService, pictures PictureStore, handoffs *console.HandoffStore) *ClientPageHandler {
	return &ClientPageHandler{svc: svc, pictures: pictures, handoffs: handoffs, now: time.Now}
}

func (h *ClientPageHandler) view(c *gin.Context, data gin.H) gin.H {
	data["CSRFToken"] = middleware.GetCSRFToken(c)
	data["User"] = middleware.GetPrincipal(c)
	data["Now"] = h.now()
	return data
}

// ListPage renders the filterable client list.
// GET /clients
func (h *ClientPageHandler) ListPage(c *gin.Context) {
	h.renderList(c, "client/list.html")
}

// Rows renders only the table body and pager, for htmx swaps. The browser
// URL follows the query so reloads and shared links keep the filters.
// GET /clients/rows
func (h *ClientPageHandler) Rows(c *gin.Context) {
	q := console.ParseClientQuery(c.Request.URL.Query())
	c.Header("HX-Push-Url", listURL(q))
	h.renderList(c, "client/rows.html")
}

func (h *ClientPageHandler) renderList(c *gin.Context, tmpl string) {
	q := console.ParseClientQuery(c.Request.URL.Query())
	data := gin.H{
		"Query":         q,
		"ActiveFilters": activeFilterViews(q),
		"SortLinks":     sortLinks(q),
	}

	filter, err := q.Filter()
	if err != nil {
		data["FilterErrors"] = domain.FieldErrors(err)
		data["Result"] = domain.NewPageResult[domain.Client](nil, 0, filter.PageRequest)
		c.HTML(http.StatusOK, tmpl, h.view(c, data))
		return
	}

	result, err := h.svc.ListClients(c.Request.Context(), filter)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "list clients failed", "error", err)
		if pkg.IsHTMX(c) {
			pkg.FailToast(c, "Could not load clients. Please try again.")
			return
		}
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}

	data["Result"] = result
	data["Pages"] = pageLinks(c.Request.Context(), q, result)
	c.HTML(http.StatusOK, tmpl, h.view(c, data))
}

// DetailPage renders a read-only client summary with its map pin and accounts.
// GET /clients/:id
func (h *ClientPageHandler) DetailPage(c *gin.Context) {
	client, ok := h.loadClient(c)
	if !ok {
		return
	}
	age, hasAge := console.Age(client.DateOfBirth, h.now())
	c.HTML(http.StatusOK, "client/detail.html", h.view(c, gin.H{
		"Client": client,
		"Age":    age,
		"HasAge": hasAge,
	}))
}

// NewPage renders the create form.
// GET /clients/new
func (h *ClientPageHandler) NewPage(c *gin.Context) {
	h.renderForm(c, console.NewCreateForm(), nil, "")
}

// EditPage renders the edit form seeded from the stored client. The client
// as shown is kept so the submit is compared against it.
// GET /clients/:id/edit
func (h *ClientPageHandler) EditPage(c *gin.Context) {
	client, ok := h.loadClient(c)
	if !ok {
		return
	}
	c.Set(snapshotKey, h.handoffs.BeginEdit(client))
	h.renderForm(c, console.NewEditForm(client), nil, "")
}

// Create validates and stores a new client.
// POST /clients
func (h *ClientPageHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	f := console.NewCreateForm()
	if errs := h.validateForm(c, f); len(errs) > 0 {
		h.renderForm(c, f, errs, "")
		return
	}

	pictureURL, ok := h.storePicture(c, f)
	if !ok {
		return
	}
	sub, err := f.Submit(ctx, h.now())
	if err != nil {
		h.discardPicture(c, pictureURL)
		h.renderForm(c, f, domain.FieldErrors(err), pkg.SafeMessage(err, "Please check the highlighted fields"))
		return
	}

	if _, err := h.svc.CreateClient(ctx, &sub.Client); err != nil {
		h.discardPicture(c, pictureURL)
		h.renderForm(c, f, domain.FieldErrors(err), pkg.SafeMessage(err, "Failed to create client. Please try again."))
		return
	}

	pkg.SetToast(c, CreatedMessage, pkg.ToastSuccess)
	pkg.Redirect(c, listPath)
}

// Edit validates the edit form and hands the changes to the preview step.
// Changes are tracked against the client as the form was opened, so fields
// the operator left alone are never sent even if they changed meanwhile.
// Nothing is written until the preview is confirmed.
// POST /clients/:id/edit
func (h *ClientPageHandler) Edit(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{})
		return
	}
	token := c.PostForm(snapshotField)
	client, ok := h.handoffs.EditSnapshot(token, id)
	if !ok {
		h.restartEdit(c)
		return
	}
	c.Set(snapshotKey, token)

	f := console.NewEditForm(client)
	if errs := h.validateForm(c, f); len(errs) > 0 {
		h.renderForm(c, f, errs, "")
		return
	}
	pictureURL, ok := h.storePicture(c, f)
	if !ok {
		return
	}

	sub, err := f.Submit(ctx, h.now())
	if err != nil {
		h.discardPicture(c, pictureURL)
		if errors.Is(err, console.ErrNoChanges) {
			h.renderForm(c, f, nil, console.NoChangesMessage)
			return
		}
		h.renderForm(c, f, domain.FieldErrors(err), pkg.SafeMessage(err, "Please check the highlighted fields"))
		return
	}

	handoff, err := console.NewHandoff(client, sub)
	if err != nil {
		h.discardPicture(c, pictureURL)
		h.renderForm(c, f, nil, console.NoChangesMessage)
		return
	}
	handoffToken, err := h.handoffs.Put(handoff)
	if err != nil {
		h.discardPicture(c, pictureURL)
		slog.ErrorContext(ctx, "store preview handoff failed", "error", err)
		h.renderForm(c, f, nil, "Could not prepare the preview. Please try again.")
		return
	}

	pkg.Redirect(c, "/clients/preview-update?handoff="+url.QueryEscape(handoffToken))
}

// restartEdit answers an edit post whose snapshot is gone: the form is
// opened again on the stored client with the posted values on top, so the
// operator sees every difference before submitting again.
func (h *ClientPageHandler) restartEdit(c *gin.Context) {
	client, ok := h.loadClient(c)
	if !ok {
		return
	}
	slog.InfoContext(c.Request.Context(), "client edit snapshot missing, reopening form", "client_id", client.ID)
	c.Set(snapshotKey, h.handoffs.BeginEdit(client))
	f := console.NewEditForm(client)
	bindForm(c, f)
	h.renderForm(c, f, nil, EditExpiredMessage)
}

// PreviewPage shows the before/after of a pending update. Without a valid
// handoff it explains that there is nothing to preview and makes no
// further calls.
// GET /clients/preview-update
func (h *ClientPageHandler) PreviewPage(c *gin.Context) {
	p, err := console.OpenPreview(h.handoffs, c.Query("handoff"))
	if err != nil {
		h.renderNothingToPreview(c)
		return
	}
	h.renderPreview(c, p, "")
}

func (h *ClientPageHandler) renderPreview(c *gin.Context, p *console.Preview, msg string) {
	original := p.Original()
	c.HTML(http.StatusOK, "client/preview.html", h.view(c, gin.H{
		"Token":    p.Token(),
		"Original": &original,
		"Rows":     p.Rows(),
		"Error":    msg,
	}))
}

func (h *ClientPageHandler) renderNothingToPreview(c *gin.Context) {
	c.HTML(http.StatusOK, "client/preview.html", h.view(c, gin.H{
		"Empty":     true,
		"Message":   console.NothingToPreviewMessage,
		"BackLabel": console.GoBackLabel,
		"BackURL":   listPath,
	}))
}

// ConfirmUpdate sends the previewed partial update. A failed update keeps
// the preview so the operator can retry or go back.
// POST /clients/preview-update
func (h *ClientPageHandler) ConfirmUpdate(c *gin.Context) {
	p, err := console.OpenPreview(h.handoffs, c.PostForm("handoff"))
	if err != nil {
		h.renderNothingToPreview(c)
		return
	}

	_, msg, err := p.Confirm(c.Request.Context(), h.svc)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "confirm client update failed", "client_id", p.Original().ID, "error", err)
		text := pkg.SafeMessage(err, "Update failed. Please try again.")
		if pkg.IsHTMX(c) {
			pkg.FailToast(c, text)
			return
		}
		h.renderPreview(c, p, text)
		return
	}

	pkg.SetToast(c, msg, pkg.ToastSuccess)
	pkg.Redirect(c, listPath)
}

// BackToEdit abandons the preview and returns to the edit form.
// POST /clients/preview-update/back
func (h *ClientPageHandler) BackToEdit(c *gin.Context) {
	p, err := console.OpenPreview(h.handoffs, c.PostForm("handoff"))
	if err != nil {
		pkg.Redirect(c, listPath)
		return
	}
	pkg.Redirect(c, "/clients/"+strconv.FormatUint(uint64(p.Back()), 10)+"/edit")
}

// DeleteDialog renders the delete confirmation for one client.
// GET /clients/:id/delete
func (h *ClientPageHandler) DeleteDialog(c *gin.Context) {
	client, ok := h.loadClient(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "client/delete.html", h.view(c, gin.H{
		"Client": client,
		"Prompt": console.DeletePromptText(client),
	}))
}

// Delete removes a client. htmx callers get a toast and an empty body that
// replaces the row; form posts are redirected to the list.
// DELETE /clients/:id, POST /clients/:id/delete
func (h *ClientPageHandler) Delete(c *gin.Context) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		pkg.FailToast(c, "Invalid client id")
		return
	}

	if err := h.svc.DeleteClient(c.Request.Context(), id); err != nil {
		if domain.IsNotFound(err) {
			pkg.FailToast(c, "Client not found or already deleted")
			return
		}
		pkg.FailToast(c, "Delete failed. Please try again.")
		return
	}

	pkg.SetToast(c, DeletedMessage, pkg.ToastSuccess)
	if pkg.IsHTMX(c) {
		c.Header("HX-Trigger-After-Swap", "clientsChanged")
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, listPath)
}

// Export downloads the filtered list as xlsx.
// GET /clients/export.xlsx
func (h *ClientPageHandler) Export(c *gin.Context) {
	filter, err := console.ParseClientQuery(c.Request.URL.Query()).Filter()
	if err != nil {
		c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{})
		return
	}
	writeExport(c, h.svc, filter, h.now())
}

// loadClient resolves :id, rendering the error page itself on failure.
func (h *ClientPageHandler) loadClient(c *gin.Context) (*domain.Client, bool) {
	id, err := pkg.ParseID(c, "id")
	if err != nil {
		c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{})
		return nil, false
	}
	client, err := h.svc.GetClient(c.Request.Context(), id)
	if err != nil {
		if domain.IsNotFound(err) {
			c.HTML(http.StatusNotFound, "errors/404.html", gin.H{})
			return nil, false
		}
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return nil, false
	}
	return client, true
}

// validateForm copies the posted fields into f and validates it.
func (h *ClientPageHandler) validateForm(c *gin.Context, f *console.Form) map[string]string {
	extra := bindForm(c, f)
	errs := f.Validate(c.Request.Context(), h.now())
	for k, v := range extra {
		errs[k] = v
	}
	return errs
}

// bindForm copies posted values into f. Problems the form cannot record
// itself are returned.
func bindForm(c *gin.Context, f *console.Form) map[string]string {
	extra := map[string]string{}
	for _, name := range console.EditableFields {
		switch name {
		case "latitude", "longitude", "profilePictureUrl":
			continue
		}
		if v, ok := c.GetPostForm(name); ok {
			_ = f.Set(name, v)
		}
	}

	lat, latOK := c.GetPostForm("latitude")
	lng, lngOK := c.GetPostForm("longitude")
	lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
	switch {
	case !latOK && !lngOK:
	case lat == "" && lng == "":
		f.ClearLocation()
	case lat == "" || lng == "":
		extra["latitude"] = "latitude and longitude must be set together"
	default:
		latF, errLat := strconv.ParseFloat(lat, 64)
		lngF, errLng := strconv.ParseFloat(lng, 64)
		if errLat != nil || errLng != nil {
			extra["latitude"] = "Pick the location on the map"
		} else if err := f.SetLocation(latF, lngF); err != nil {
			extra["latitude"] = err.Error()
		}
	}

	if fh, err := c.FormFile(upload.PictureField); err == nil && fh.Size > 0 {
		_ = f.AttachPicture(upload.FromFileHeader(fh))
	}
	return extra
}

// storePicture uploads the form's picture, if any, and records its URL on
// the form. On failure the form has been re-rendered.
func (h *ClientPageHandler) storePicture(c *gin.Context, f *console.Form) (string, bool) {
	pic := f.Picture()
	if pic == nil {
		return "", true
	}
	url, err := h.pictures.Save(c.Request.Context(), pic)
	if err != nil {
		h.renderForm(c, f, domain.FieldErrors(err), pkg.SafeMessage(err, "Could not store the picture. Please try again."))
		return "", false
	}
	if err := f.Set("profilePictureUrl", url); err != nil {
		h.discardPicture(c, url)
		h.renderForm(c, f, nil, "Could not store the picture. Please try again.")
		return "", false
	}
	return url, true
}

func (h *ClientPageHandler) discardPicture(c *gin.Context, url string) {
	if url == "" {
		return
	}
	if err := h.pictures.Remove(url); err != nil {
		slog.WarnContext(c.Request.Context(), "failed to remove orphaned picture", "url", url, "error", err)
	}
}

func (h *ClientPageHandler) renderForm(c *gin.Context, f *console.Form, errs map[string]string, msg string) {
	c.HTML(http.StatusOK, "client/form.html", h.view(c, gin.H{
		"Form":     newFormView(f, errs),
		"Error":    msg,
		"IsEdit":   f.Mode() == console.ModeEdit,
		"Snapshot": c.GetString(snapshotKey),
	}))
}
