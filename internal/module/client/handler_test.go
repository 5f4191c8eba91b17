package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// mockClientService implements domain.ClientService for handler testing.
type mockClientService struct {
	clients    map[uint]*domain.Client
	listFilter *domain.ClientFilter
	listResult *domain.PageResult[domain.Client]
	created    *domain.Client
	patched    map[string]any
	replaced   *domain.Client
	pictureURL string
	deleted    []uint
	err        error
}

func newMockClientService(clients ...*domain.Client) *mockClientService {
	m := &mockClientService{clients: map[uint]*domain.Client{}}
	for _, c := range clients {
		m.clients[c.ID] = c
	}
	return m
}

func (m *mockClientService) CreateClient(_ context.Context, c *domain.Client) (*domain.Client, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := *c
	out.ID = 100
	m.created = &out
	return &out, nil
}

func (m *mockClientService) GetClient(_ context.Context, id uint) (*domain.Client, error) {
	if c, ok := m.clients[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockClientService) ListClients(_ context.Context, f domain.ClientFilter) (*domain.PageResult[domain.Client], error) {
	m.listFilter = &f
	if m.err != nil {
		return nil, m.err
	}
	if m.listResult != nil {
		return m.listResult, nil
	}
	var content []domain.Client
	for _, c := range m.clients {
		content = append(content, *c)
	}
	return domain.NewPageResult(content, int64(len(content)), f.PageRequest), nil
}

func (m *mockClientService) ReplaceClient(_ context.Context, id uint, c *domain.Client) (*domain.Client, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := *c
	out.ID = id
	m.replaced = &out
	return &out, nil
}

func (m *mockClientService) PatchClient(_ context.Context, id uint, fields map[string]any) (*domain.Client, error) {
	m.patched = fields
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *c
	if errs := console.ApplyFields(&out, fields); errs != nil {
		return nil, domain.NewFieldError(errs)
	}
	return &out, nil
}

func (m *mockClientService) SetProfilePicture(_ context.Context, id uint, url string) (*domain.Client, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	m.pictureURL = url
	out := *c
	out.ProfilePictureURL = url
	return &out, nil
}

func (m *mockClientService) DeleteClient(_ context.Context, id uint) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.clients[id]; !ok {
		return domain.ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	delete(m.clients, id)
	return nil
}

// mockPictureStore records saved and removed pictures.
type mockPictureStore struct {
	saved   []string
	removed []string
	err     error
}

func (s *mockPictureStore) Save(_ context.Context, a *console.Attachment) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	url := "/uploads/profile-test" + a.Ext()
	s.saved = append(s.saved, url)
	return url, nil
}

func (s *mockPictureStore) Remove(url string) error {
	s.removed = append(s.removed, url)
	return nil
}

func init() { gin.SetMode(gin.TestMode) }

func storedClient(t *testing.T) *domain.Client {
	c := validClient(t)
	c.ID = 1
	return c
}

func setupClientRouter(t *testing.T, svc domain.ClientService, pics PictureStore) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.SetHTMLTemplate(stubTemplates())
	handoffs := console.NewHandoffStore(0, 0)
	NewModule(NewHandler(svc, pics), NewClientPageHandler(svc, pics, handoffs)).
		RegisterRoutes(r.Group("/api/v1"), r.Group("/"))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErrors(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp pkg.ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v (body %s)", err, w.Body.String())
	}
	return resp.Errors
}

func TestClientHandler_List(t *testing.T) {
	svc := newMockClientService(storedClient(t))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodGet, "/api/v1/clients?city=Casablanca&ageMin=18&hasAccounts=true&page=0&size=5&sortDirection=DESC", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	f := svc.listFilter
	if f.City != "Casablanca" || f.AgeMin == nil || *f.AgeMin != 18 || f.HasAccounts == nil || !*f.HasAccounts {
		t.Errorf("filter = %+v", f)
	}
	if f.Size != 5 || f.SortDirection != domain.SortDesc {
		t.Errorf("paging = %+v", f.PageRequest)
	}

	var resp struct {
		Data domain.PageResult[domain.Client] `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.TotalElements != 1 || len(resp.Data.Content) != 1 {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestClientHandler_ListBadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"malformed page", "page=abc", "page"},
		{"size too large", "size=500", "size"},
		{"unknown sort", "sortBy=password", "sortBy"},
		{"non-numeric age", "ageMin=old", "ageMin"},
		{"inverted ages", "ageMin=40&ageMax=20", "ageMax"},
		{"bad boolean", "hasAccounts=maybe", "hasAccounts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockClientService()
			r := setupClientRouter(t, svc, &mockPictureStore{})
			w := doJSON(r, http.MethodGet, "/api/v1/clients?"+tt.query, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			if errs := decodeErrors(t, w); errs[tt.field] == "" {
				t.Errorf("errors = %v, want %s", errs, tt.field)
			}
			if svc.listFilter != nil {
				t.Error("service called with an invalid filter")
			}
		})
	}
}

func TestClientHandler_Get(t *testing.T) {
	r := setupClientRouter(t, newMockClientService(storedClient(t)), &mockPictureStore{})

	if w := doJSON(r, http.MethodGet, "/api/v1/clients/1", nil); w.Code != http.StatusOK {
		t.Errorf("existing: status = %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/api/v1/clients/9", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/api/v1/clients/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", w.Code)
	}
}

func TestClientHandler_CreateJSON(t *testing.T) {
	svc := newMockClientService()
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodPost, "/api/v1/clients", map[string]any{
		"name": "Amal", "surname": "Bennani", "email": "amal@example.ma", "dateOfBirth": "1990-01-15",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.created == nil || svc.created.DateOfBirth.String() != "1990-01-15" {
		t.Errorf("created = %+v", svc.created)
	}
}

func TestClientHandler_CreateConflict(t *testing.T) {
	svc := newMockClientService()
	svc.err = duplicateError("email", DuplicateEmailMessage)
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodPost, "/api/v1/clients", map[string]any{"name": "Amal", "email": "amal@example.ma"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if errs := decodeErrors(t, w); errs["email"] != DuplicateEmailMessage {
		t.Errorf("errors = %v", errs)
	}
}

func multipartClient(t *testing.T, data string, picture []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("data", data); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	if picture != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="profilePicture"; filename="me.png"`)
		h.Set("Content-Type", "image/png")
		part, _ := w.CreatePart(h)
		part.Write(picture)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestClientHandler_CreateMultipart(t *testing.T) {
	svc := newMockClientService()
	pics := &mockPictureStore{}
	r := setupClientRouter(t, svc, pics)

	body, ct := multipartClient(t, `{"name":"Amal","surname":"B","email":"amal@example.ma"}`, []byte("\x89PNG\r\n\x1a\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.created.ProfilePictureURL != "/uploads/profile-test.png" {
		t.Errorf("ProfilePictureURL = %q", svc.created.ProfilePictureURL)
	}
}

func TestClientHandler_CreateMultipartFailureDiscardsPicture(t *testing.T) {
	svc := newMockClientService()
	svc.err = domain.NewFieldError(map[string]string{"email": "Invalid email format"})
	pics := &mockPictureStore{}
	r := setupClientRouter(t, svc, pics)

	body, ct := multipartClient(t, `{"name":"Amal","email":"bad"}`, []byte("\x89PNG\r\n\x1a\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if len(pics.removed) != 1 || pics.removed[0] != pics.saved[0] {
		t.Errorf("saved = %v, removed = %v", pics.saved, pics.removed)
	}
}

func TestClientHandler_Patch(t *testing.T) {
	svc := newMockClientService(storedClient(t))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodPatch, "/api/v1/clients/1", map[string]any{"id": 1, "city": "Rabat"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(svc.patched) != 2 || svc.patched["city"] != "Rabat" {
		t.Errorf("patched = %v", svc.patched)
	}
}

func TestClientHandler_PatchIDMismatch(t *testing.T) {
	svc := newMockClientService(storedClient(t))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodPatch, "/api/v1/clients/1", map[string]any{"id": 2, "city": "Rabat"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.patched != nil {
		t.Error("service called despite id mismatch")
	}
}

func TestClientHandler_Replace(t *testing.T) {
	svc := newMockClientService(storedClient(t))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodPut, "/api/v1/clients/1", map[string]any{"name": "Amal", "email": "a@b.co"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.replaced == nil || svc.replaced.ID != 1 || svc.replaced.Email != "a@b.co" {
		t.Errorf("replaced = %+v", svc.replaced)
	}
}

func TestClientHandler_ProfilePictureByURL(t *testing.T) {
	svc := newMockClientService(storedClient(t))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodPatch, "/api/v1/clients/1/profile-picture?profilePictureUrl=/uploads/a.png", nil)
	if w.Code != http.StatusOK || svc.pictureURL != "/uploads/a.png" {
		t.Errorf("query: status = %d, url = %q", w.Code, svc.pictureURL)
	}

	w = doJSON(r, http.MethodPatch, "/api/v1/clients/1/profile-picture", map[string]string{"profilePictureUrl": "/uploads/b.png"})
	if w.Code != http.StatusOK || svc.pictureURL != "/uploads/b.png" {
		t.Errorf("json: status = %d, url = %q", w.Code, svc.pictureURL)
	}
}

func TestClientHandler_ProfilePictureMissingClientDiscardsUpload(t *testing.T) {
	svc := newMockClientService()
	pics := &mockPictureStore{}
	r := setupClientRouter(t, svc, pics)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="profilePicture"; filename="me.gif"`)
	h.Set("Content-Type", "image/gif")
	part, _ := mw.CreatePart(h)
	part.Write([]byte("GIF89a"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/clients/7/profile-picture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if len(pics.removed) != 1 {
		t.Errorf("removed = %v", pics.removed)
	}
}

func TestClientHandler_Delete(t *testing.T) {
	svc := newMockClientService(storedClient(t))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	if w := doJSON(r, http.MethodDelete, "/api/v1/clients/1", nil); w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}
	if w := doJSON(r, http.MethodDelete, "/api/v1/clients/1", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d", w.Code)
	}
}

func TestClientHandler_ServiceFailureIs500(t *testing.T) {
	svc := newMockClientService()
	svc.err = domain.NewAppError(domain.CodeInternal, "database error", errors.New("disk full"))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodGet, "/api/v1/clients", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "disk full") {
		t.Error("internal cause leaked into the response")
	}
}

func TestClientHandler_Export(t *testing.T) {
	svc := newMockClientService(storedClient(t))
	r := setupClientRouter(t, svc, &mockPictureStore{})

	w := doJSON(r, http.MethodGet, "/api/v1/clients/export?city=Casablanca", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if svc.listFilter.City != "Casablanca" || svc.listFilter.Size != domain.MaxPageSize {
		t.Errorf("export filter = %+v", svc.listFilter)
	}
	// xlsx is a zip container
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("body is not an xlsx workbook")
	}
}
