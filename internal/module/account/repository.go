package account

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// accountRepository implements domain.AccountRepository using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository backed by the given GORM database.
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts a new account.
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(account).Error; err != nil {
		return pkg.MapDBError(err)
	}
	return nil
}

// GetByRIB retrieves an account and its owner.
func (r *accountRepository) GetByRIB(ctx context.Context, rib string) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).Preload("Client").First(&account, "rib = ?", rib).Error; err != nil {
		return nil, pkg.MapDBError(err)
	}
	return &account, nil
}

// List returns one page of accounts, optionally only those owned by clientID.
func (r *accountRepository) List(ctx context.Context, req domain.PageRequest, clientID *uint) ([]domain.Account, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&domain.Account{})
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, pkg.MapDBError(err)
	}

	var accounts []domain.Account
	if err := query.Scopes(
		pkg.Sort(req, domain.AccountSortColumns),
		pkg.Paginate(req),
	).Preload("Client").Find(&accounts).Error; err != nil {
		return nil, 0, pkg.MapDBError(err)
	}

	return accounts, total, nil
}

// Update saves every column of an existing account.
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations, "created_at").Save(account).Error; err != nil {
		return pkg.MapDBError(err)
	}
	return nil
}

// Delete removes an account by RIB.
func (r *accountRepository) Delete(ctx context.Context, rib string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Account{}, "rib = ?", rib)
	if result.Error != nil {
		return pkg.MapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of accounts.
func (r *accountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Account{}).Count(&n).Error; err != nil {
		return 0, pkg.MapDBError(err)
	}
	return n, nil
}

// TotalBalance sums every account balance. Amounts are summed exactly in
// Go because SQLite aggregates decimals as floats.
func (r *accountRepository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var balances []decimal.Decimal
	if err := r.db.WithContext(ctx).Model(&domain.Account{}).Pluck("balance", &balances).Error; err != nil {
		return decimal.Zero, pkg.MapDBError(err)
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total, nil
}

// CountByStatus returns the number of accounts in each status. Statuses
// without accounts are absent.
func (r *accountRepository) CountByStatus(ctx context.Context) (map[domain.AccountStatus]int64, error) {
	var rows []struct {
		Status domain.AccountStatus
		N      int64
	}
	if err := r.db.WithContext(ctx).Model(&domain.Account{}).
		Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, pkg.MapDBError(err)
	}
	out := make(map[domain.AccountStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
