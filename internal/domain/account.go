package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
	AccountBusiness AccountType = "BUSINESS"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive            AccountStatus = "ACTIVE"
	AccountInactive          AccountStatus = "INACTIVE"
	AccountBlocked           AccountStatus = "BLOCKED"
	AccountClosed            AccountStatus = "CLOSED"
	AccountPendingActivation AccountStatus = "PENDING_ACTIVATION"
	AccountSuspended         AccountStatus = "SUSPENDED"
)

// Account is a balance-bearing record keyed by its RIB. It belongs to at most one client.
type Account struct {
	RIB                 string          `gorm:"primaryKey;size:34" json:"rib"`
	Balance             decimal.Decimal `gorm:"type:decimal(19,2);not null" json:"balance"`
	Type                AccountType     `gorm:"size:20;not null" json:"type"`
	Status              AccountStatus   `gorm:"size:20;not null;index" json:"status"`
	Currency            string          `gorm:"size:3;not null" json:"currency"`
	InterestRate        decimal.Decimal `gorm:"type:decimal(7,4)" json:"interestRate"`
	OverdraftLimit      decimal.Decimal `gorm:"type:decimal(19,2)" json:"overdraftLimit"`
	SwiftCode           string          `gorm:"size:11" json:"swiftCode"`
	IBAN                string          `gorm:"size:34" json:"iban"`
	BranchCode          string          `gorm:"size:20" json:"branchCode"`
	Notes               string          `gorm:"size:1000" json:"notes"`
	ClientID            *uint           `gorm:"index" json:"clientId"`
	Client              *Client         `gorm:"foreignKey:ClientID;-:migration" json:"client,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	ClosedAt            *time.Time      `json:"closedAt"`
	LastTransactionDate *time.Time      `json:"lastTransactionDate"`
}

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountChecking, AccountSavings, AccountBusiness:
		return true
	}
	return false
}

// ValidAccountStatus reports whether s is a known account status.
func ValidAccountStatus(s AccountStatus) bool {
	switch s {
	case AccountActive, AccountInactive, AccountBlocked, AccountClosed, AccountPendingActivation, AccountSuspended:
		return true
	}
	return false
}

// AccountSortColumns maps sortable account fields to columns.
var AccountSortColumns = map[string]string{
	"rib":       "rib",
	"balance":   "balance",
	"createdAt": "created_at",
}

// DefaultAccountSortBy is the account list's default ordering.
const DefaultAccountSortBy = "rib"

// AccountRepository defines the data access interface for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByRIB(ctx context.Context, rib string) (*Account, error)
	List(ctx context.Context, req PageRequest, clientID *uint) ([]Account, int64, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, rib string) error
	Count(ctx context.Context) (int64, error)
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	CountByStatus(ctx context.Context) (map[AccountStatus]int64, error)
}

// AccountService defines the business logic interface for accounts.
type AccountService interface {
	CreateAccount(ctx context.Context, account *Account) (*Account, error)
	GetAccount(ctx context.Context, rib string) (*Account, error)
	ListAccounts(ctx context.Context, req PageRequest, clientID *uint) (*PageResult[Account], error)
	UpdateAccount(ctx context.Context, rib string, account *Account) (*Account, error)
	DeleteAccount(ctx context.Context, rib string) error
}
