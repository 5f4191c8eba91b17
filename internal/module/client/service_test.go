package client

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/bankoffice/internal/domain"
)

func newTestService(t *testing.T) (*clientService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewService(db).(*clientService)
	svc.now = func() time.Time { return testNow }
	return svc, db
}

func validClient(t *testing.T) *domain.Client {
	t.Helper()
	return &domain.Client{
		Name:        "Amal",
		Surname:     "Bennani",
		Email:       "amal.bennani@example.ma",
		Phone:       "20123456",
		City:        "Casablanca",
		DateOfBirth: date(t, "1990-01-15"),
	}
}

func TestClientService_Create(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateClient(context.Background(), validClient(t))
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Errorf("created = %+v", created)
	}
}

func TestClientService_CreateIgnoresCallerID(t *testing.T) {
	svc, _ := newTestService(t)

	c := validClient(t)
	c.ID = 42
	created, err := svc.CreateClient(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if created.ID == 42 {
		t.Error("caller-supplied id was used")
	}
}

func TestClientService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	c := validClient(t)
	c.Email = "not-an-email"
	c.DateOfBirth = date(t, "2010-01-01")
	_, err := svc.CreateClient(context.Background(), c)
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := domain.FieldErrors(err)
	if fields["email"] == "" || fields["dateOfBirth"] == "" {
		t.Errorf("fields = %v", fields)
	}
}

func TestClientService_CreateDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateClient(ctx, validClient(t)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *domain.Client)
		field  string
		msg    string
	}{
		{"email differing only in case", func(c *domain.Client) { c.Phone = "50999999"; c.Email = "AMAL.Bennani@example.ma" }, "email", DuplicateEmailMessage},
		{"phone", func(c *domain.Client) { c.Email = "other@example.ma" }, "phone", DuplicatePhoneMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClient(t)
			tt.mutate(c)
			_, err := svc.CreateClient(ctx, c)
			if !domain.IsAlreadyExists(err) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}
			if got := domain.FieldErrors(err)[tt.field]; got != tt.msg {
				t.Errorf("%s message = %q, want %q", tt.field, got, tt.msg)
			}
			if domain.HTTPStatusCode(err) != 409 {
				t.Errorf("status = %d, want 409", domain.HTTPStatusCode(err))
			}
		})
	}
}

func TestClientService_ListClients(t *testing.T) {
	svc, db := newTestService(t)
	seedClients(t, NewClientRepository(db), db)

	f := domain.DefaultClientFilter()
	f.Size = 2
	f.SortDirection = "DESC"
	result, err := svc.ListClients(context.Background(), f)
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if result.TotalElements != 4 || result.TotalPages != 2 {
		t.Errorf("totals = %d/%d", result.TotalElements, result.TotalPages)
	}
	if g := names(result.Content); !equalStrings(g, []string{"Youssef", "Sara"}) {
		t.Errorf("names = %v", g)
	}
	if !result.First() || result.Last() {
		t.Errorf("First/Last = %v/%v", result.First(), result.Last())
	}
}

func TestClientService_ListClientsRejectsBadFilter(t *testing.T) {
	svc, _ := newTestService(t)

	lo, hi := 40, 20
	f := domain.DefaultClientFilter()
	f.SortBy = "password"
	f.AgeMin, f.AgeMax = &lo, &hi
	_, err := svc.ListClients(context.Background(), f)
	fields := domain.FieldErrors(err)
	if fields["sortBy"] == "" || fields["ageMax"] == "" {
		t.Errorf("fields = %v", fields)
	}
}

func TestClientService_PatchOnlyNamedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.CreateClient(ctx, validClient(t))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	updated, err := svc.PatchClient(ctx, created.ID, map[string]any{
		"id":       float64(created.ID),
		"city":     "Rabat",
		"phone":    nil,
		"latitude": 33.97,
	})
	if err != nil {
		t.Fatalf("PatchClient: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("ID = %d, want %d", updated.ID, created.ID)
	}
	if updated.City != "Rabat" || updated.Phone != "" {
		t.Errorf("city/phone = %q/%q", updated.City, updated.Phone)
	}
	if updated.Latitude == nil || *updated.Latitude != 33.97 {
		t.Errorf("Latitude = %v", updated.Latitude)
	}
	if updated.Name != "Amal" || updated.Email != created.Email || updated.DateOfBirth.String() != "1990-01-15" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", updated.CreatedAt, created.CreatedAt)
	}

	n, _ := NewClientRepository(svc.db).Count(ctx)
	if n != 1 {
		t.Errorf("Count = %d, patch must not insert", n)
	}
}

func TestClientService_PatchErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, _ := svc.CreateClient(ctx, validClient(t))
	other := validClient(t)
	other.Email = "second@example.ma"
	other.Phone = "50111111"
	if _, err := svc.CreateClient(ctx, other); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name   string
		id     uint
		fields map[string]any
		check  func(error) bool
		field  string
	}{
		{"missing client", 999, map[string]any{"city": "x"}, domain.IsNotFound, ""},
		{"unknown field", created.ID, map[string]any{"balance": 10}, domain.IsValidation, "balance"},
		{"bad date", created.ID, map[string]any{"dateOfBirth": "15/01/1990"}, domain.IsValidation, "dateOfBirth"},
		{"rule violation", created.ID, map[string]any{"name": ""}, domain.IsValidation, "name"},
		{"number for a text field", created.ID, map[string]any{"postalCode": float64(10000000)}, domain.IsValidation, "postalCode"},
		{"taken email", created.ID, map[string]any{"email": "Second@example.ma"}, domain.IsAlreadyExists, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PatchClient(ctx, tt.id, tt.fields)
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			if tt.field != "" && domain.FieldErrors(err)[tt.field] == "" {
				t.Errorf("fields = %v, want %s", domain.FieldErrors(err), tt.field)
			}
		})
	}

	// nothing was written by the failed patches
	got, _ := svc.GetClient(ctx, created.ID)
	if got.Name != "Amal" || got.Email != created.Email || got.PostalCode != created.PostalCode {
		t.Errorf("client changed: %+v", got)
	}
}

func TestClientService_PatchOwnEmailCaseChange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, _ := svc.CreateClient(ctx, validClient(t))

	if _, err := svc.PatchClient(ctx, created.ID, map[string]any{"email": "Amal.Bennani@example.ma"}); err != nil {
		t.Errorf("PatchClient: %v", err)
	}
}

func TestClientService_Replace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, _ := svc.CreateClient(ctx, validClient(t))

	replacement := &domain.Client{Name: "Amal", Surname: "Alaoui", Email: "amal.alaoui@example.ma"}
	got, err := svc.ReplaceClient(ctx, created.ID, replacement)
	if err != nil {
		t.Fatalf("ReplaceClient: %v", err)
	}
	if got.Surname != "Alaoui" || got.Phone != "" || got.City != "" || got.DateOfBirth != nil {
		t.Errorf("replaced = %+v", got)
	}
}

func TestClientService_SetProfilePicture(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, _ := svc.CreateClient(ctx, validClient(t))

	got, err := svc.SetProfilePicture(ctx, created.ID, " /uploads/profile-x.png ")
	if err != nil {
		t.Fatalf("SetProfilePicture: %v", err)
	}
	if got.ProfilePictureURL != "/uploads/profile-x.png" {
		t.Errorf("ProfilePictureURL = %q", got.ProfilePictureURL)
	}

	if _, err := svc.SetProfilePicture(ctx, created.ID, ""); !domain.IsValidation(err) {
		t.Errorf("empty url: %v", err)
	}
	if _, err := svc.SetProfilePicture(ctx, 999, "/x.png"); !domain.IsNotFound(err) {
		t.Errorf("missing client: %v", err)
	}
}

func TestClientService_Delete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, _ := svc.CreateClient(ctx, validClient(t))

	if err := svc.DeleteClient(ctx, created.ID); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if err := svc.DeleteClient(ctx, created.ID); !domain.IsNotFound(err) {
		t.Errorf("second delete: %v", err)
	}
}
