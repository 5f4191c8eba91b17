package client

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// clientRepository implements domain.ClientRepository using GORM.
type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository backed by the given GORM database.
func NewClientRepository(db *gorm.DB) domain.ClientRepository {
	return &clientRepository{db: db}
}

// Create inserts a new client. Accounts are never written through a client.
func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(client).Error; err != nil {
		return pkg.MapDBError(err)
	}
	return nil
}

// GetByID retrieves a client and its accounts.
func (r *clientRepository) GetByID(ctx context.Context, id uint) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).
		Preload("Accounts", func(db *gorm.DB) *gorm.DB { return db.Order("rib") }).
		First(&client, id).Error
	if err != nil {
		return nil, pkg.MapDBError(err)
	}
	return &client, nil
}

// FindByEmail returns the client registered with email, compared case-insensitively.
func (r *clientRepository) FindByEmail(ctx context.Context, email string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&client).Error
	if err != nil {
		return nil, pkg.MapDBError(err)
	}
	return &client, nil
}

// FindByPhone returns the client registered with phone.
func (r *clientRepository) FindByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	var client domain.Client
	if err := r.db.WithContext(ctx).Where("phone = ?", strings.TrimSpace(phone)).First(&client).Error; err != nil {
		return nil, pkg.MapDBError(err)
	}
	return &client, nil
}

// List returns one page of clients matching filter and the total match count.
// Ages are computed as of now.
func (r *clientRepository) List(ctx context.Context, filter domain.ClientFilter, now time.Time) ([]domain.Client, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.Client{}).Scopes(filterScope(filter, now))

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, pkg.MapDBError(err)
	}

	var clients []domain.Client
	if err := base.Scopes(
		pkg.Sort(filter.PageRequest, domain.ClientSortColumns),
		pkg.Paginate(filter.PageRequest),
	).Preload("Accounts").Find(&clients).Error; err != nil {
		return nil, 0, pkg.MapDBError(err)
	}

	return clients, total, nil
}

// Update saves every column of an existing client.
func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	result := r.db.WithContext(ctx).Omit(clause.Associations, "created_at").Save(client)
	if result.Error != nil {
		return pkg.MapDBError(result.Error)
	}
	return nil
}

// UpdateColumns sets the given columns on the client with id.
func (r *clientRepository) UpdateColumns(ctx context.Context, id uint, columns map[string]any) error {
	result := r.db.WithContext(ctx).Model(&domain.Client{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return pkg.MapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a client. Its accounts are kept and become unowned.
func (r *clientRepository) Delete(ctx context.Context, id uint) error {
	return pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Account{}).Where("client_id = ?", id).
			Update("client_id", nil).Error; err != nil {
			return pkg.MapDBError(err)
		}
		result := tx.Delete(&domain.Client{}, id)
		if result.Error != nil {
			return pkg.MapDBError(result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// Count returns the number of clients.
func (r *clientRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Client{}).Count(&n).Error; err != nil {
		return 0, pkg.MapDBError(err)
	}
	return n, nil
}
