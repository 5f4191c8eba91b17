package account

import (
	"github.com/shopspring/decimal"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// AccountRequest is the body of create and update requests. Monetary fields
// are decimal strings or numbers.
type AccountRequest struct {
	RIB            string           `json:"rib"`
	Balance        *decimal.Decimal `json:"balance"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	Currency       string           `json:"currency"`
	InterestRate   *decimal.Decimal `json:"interestRate"`
	OverdraftLimit *decimal.Decimal `json:"overdraftLimit"`
	SwiftCode      string           `json:"swiftCode"`
	IBAN           string           `json:"iban"`
	BranchCode     string           `json:"branchCode"`
	Notes          string           `json:"notes"`
	ClientID       *uint            `json:"clientId"`
}

// Missing reports required fields absent from the body.
func (r *AccountRequest) Missing() map[string]string {
	if r.Balance == nil {
		return map[string]string{"balance": "Balance is required"}
	}
	return nil
}

// ToAccount converts the request into an account without timestamps.
func (r *AccountRequest) ToAccount() *domain.Account {
	return &domain.Account{
		RIB:            r.RIB,
		Balance:        zeroIfNil(r.Balance),
		Type:           domain.AccountType(r.Type),
		Status:         domain.AccountStatus(r.Status),
		Currency:       r.Currency,
		InterestRate:   zeroIfNil(r.InterestRate),
		OverdraftLimit: zeroIfNil(r.OverdraftLimit),
		SwiftCode:      r.SwiftCode,
		IBAN:           r.IBAN,
		BranchCode:     r.BranchCode,
		Notes:          r.Notes,
		ClientID:       r.ClientID,
	}
}

func zeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
