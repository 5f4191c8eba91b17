package client

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/pkg"
	"github.com/simp-lee/bankoffice/internal/validation"
)

// Duplicate messages shown next to the offending field.
const (
	DuplicateEmailMessage = "This email address is already registered"
	DuplicatePhoneMessage = "This phone number is already registered"
)

// clientService implements domain.ClientService.
type clientService struct {
	db   *gorm.DB
	repo domain.ClientRepository
	now  func() time.Time
}

// NewService creates a new ClientService. Writes that check uniqueness run
// in a transaction on db.
func NewService(db *gorm.DB) domain.ClientService {
	return &clientService{db: db, repo: NewClientRepository(db), now: time.Now}
}

func (s *clientService) inTx(ctx context.Context, fn func(repo domain.ClientRepository) error) error {
	return pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		return fn(NewClientRepository(tx))
	})
}

// CreateClient validates and stores a new client.
func (s *clientService) CreateClient(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	c := editable(client)
	if errs := validation.Client(ctx, s.now(), &c); len(errs) > 0 {
		return nil, domain.NewFieldError(errs)
	}

	err := s.inTx(ctx, func(repo domain.ClientRepository) error {
		if err := checkUnique(ctx, repo, &c, 0); err != nil {
			return err
		}
		return duplicateFromDB(repo.Create(ctx, &c))
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "client created", "client_id", c.ID)
	return s.repo.GetByID(ctx, c.ID)
}

// GetClient returns a client with its accounts.
func (s *clientService) GetClient(ctx context.Context, id uint) (*domain.Client, error) {
	return s.repo.GetByID(ctx, id)
}

// ListClients returns one page of clients matching filter.
func (s *clientService) ListClients(ctx context.Context, filter domain.ClientFilter) (*domain.PageResult[domain.Client], error) {
	filter.SortDirection = strings.ToLower(filter.SortDirection)
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	clients, total, err := s.repo.List(ctx, filter, s.now())
	if err != nil {
		return nil, err
	}
	return domain.NewPageResult(clients, total, filter.PageRequest), nil
}

// ReplaceClient overwrites every editable field of the client with id.
func (s *clientService) ReplaceClient(ctx context.Context, id uint, client *domain.Client) (*domain.Client, error) {
	err := s.inTx(ctx, func(repo domain.ClientRepository) error {
		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated := editable(client)
		return s.save(ctx, repo, existing, &updated)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "client replaced", "client_id", id)
	return s.repo.GetByID(ctx, id)
}

// PatchClient applies a partial update: only the named fields change and a
// nil value clears a field. There is no version check; the last write wins.
func (s *clientService) PatchClient(ctx context.Context, id uint, fields map[string]any) (*domain.Client, error) {
	err := s.inTx(ctx, func(repo domain.ClientRepository) error {
		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated := editable(existing)
		if errs := console.ApplyFields(&updated, fields); len(errs) > 0 {
			return domain.NewFieldError(errs)
		}
		return s.save(ctx, repo, existing, &updated)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "client patched", "client_id", id, "fields", len(fields))
	return s.repo.GetByID(ctx, id)
}

// save validates updated and writes it over existing.
func (s *clientService) save(ctx context.Context, repo domain.ClientRepository, existing, updated *domain.Client) error {
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if errs := validation.Client(ctx, s.now(), updated); len(errs) > 0 {
		return domain.NewFieldError(errs)
	}
	if !strings.EqualFold(existing.Email, updated.Email) || existing.Phone != updated.Phone {
		if err := checkUnique(ctx, repo, updated, existing.ID); err != nil {
			return err
		}
	}
	return duplicateFromDB(repo.Update(ctx, updated))
}

// SetProfilePicture points the client's picture at url.
func (s *clientService) SetProfilePicture(ctx context.Context, id uint, url string) (*domain.Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, domain.NewFieldError(map[string]string{"profilePictureUrl": "profilePictureUrl is required"})
	}
	if err := s.repo.UpdateColumns(ctx, id, map[string]any{"profile_picture_url": url}); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// DeleteClient removes a client.
func (s *clientService) DeleteClient(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "client deleted", "client_id", id)
	return nil
}

// editable copies the fields a caller may set, dropping id, timestamps and
// accounts.
func editable(c *domain.Client) domain.Client {
	out := *c
	out.BaseModel = domain.BaseModel{}
	out.Accounts = nil
	return out
}

// checkUnique rejects an email or phone already used by another client.
func checkUnique(ctx context.Context, repo domain.ClientRepository, c *domain.Client, selfID uint) error {
	if other, err := repo.FindByEmail(ctx, c.Email); err == nil && other.ID != selfID {
		return duplicateError("email", DuplicateEmailMessage)
	} else if err != nil && !domain.IsNotFound(err) {
		return err
	}
	if c.Phone == "" {
		return nil
	}
	if other, err := repo.FindByPhone(ctx, c.Phone); err == nil && other.ID != selfID {
		return duplicateError("phone", DuplicatePhoneMessage)
	} else if err != nil && !domain.IsNotFound(err) {
		return err
	}
	return nil
}

// duplicateFromDB turns a unique index violation that slipped past
// checkUnique into the field-specific conflict.
func duplicateFromDB(err error) error {
	if err == nil || !domain.IsAlreadyExists(err) {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "phone") {
		return duplicateError("phone", DuplicatePhoneMessage)
	}
	return duplicateError("email", DuplicateEmailMessage)
}

func duplicateError(field, msg string) error {
	return &domain.AppError{
		Code:    domain.CodeAlreadyExists,
		Message: msg,
		Fields:  map[string]string{field: msg},
	}
}
