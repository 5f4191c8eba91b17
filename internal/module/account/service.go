package account

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// Messages shown to the user.
const (
	DuplicateRIBMessage  = "An account with this RIB already exists"
	OwnerNotFoundMessage = "Client not found"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// accountService implements domain.AccountService.
type accountService struct {
	repo    domain.AccountRepository
	clients domain.ClientRepository
}

// NewService creates a new AccountService. Owners are resolved through clients.
func NewService(repo domain.AccountRepository, clients domain.ClientRepository) domain.AccountService {
	return &accountService{repo: repo, clients: clients}
}

// CreateAccount validates and stores a new account for an existing client.
func (s *accountService) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	a := *account
	normalize(&a)
	if err := validate(&a, true); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, a.ClientID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &a); err != nil {
		if domain.IsAlreadyExists(err) {
			return nil, &domain.AppError{
				Code:    domain.CodeAlreadyExists,
				Message: DuplicateRIBMessage,
				Fields:  map[string]string{"rib": DuplicateRIBMessage},
			}
		}
		return nil, err
	}

	slog.InfoContext(ctx, "account created", "rib", a.RIB, "client_id", *a.ClientID)
	return s.repo.GetByRIB(ctx, a.RIB)
}

// GetAccount returns an account with its owner.
func (s *accountService) GetAccount(ctx context.Context, rib string) (*domain.Account, error) {
	return s.repo.GetByRIB(ctx, strings.TrimSpace(rib))
}

// ListAccounts returns one page of accounts, optionally for a single client.
func (s *accountService) ListAccounts(ctx context.Context, req domain.PageRequest, clientID *uint) (*domain.PageResult[domain.Account], error) {
	if err := validatePage(req); err != nil {
		return nil, err
	}
	accounts, total, err := s.repo.List(ctx, req, clientID)
	if err != nil {
		return nil, err
	}
	return domain.NewPageResult(accounts, total, req), nil
}

// UpdateAccount overwrites the editable fields of the account with rib.
// The RIB itself and the creation time never change.
func (s *accountService) UpdateAccount(ctx context.Context, rib string, account *domain.Account) (*domain.Account, error) {
	existing, err := s.repo.GetByRIB(ctx, strings.TrimSpace(rib))
	if err != nil {
		return nil, err
	}

	a := *account
	a.RIB = existing.RIB
	a.CreatedAt = existing.CreatedAt
	a.Client = nil
	normalize(&a)
	if err := validate(&a, false); err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, a.ClientID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &a); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "account updated", "rib", a.RIB)
	return s.repo.GetByRIB(ctx, a.RIB)
}

// DeleteAccount removes an account.
func (s *accountService) DeleteAccount(ctx context.Context, rib string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(rib)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "account deleted", "rib", rib)
	return nil
}

func (s *accountService) checkOwner(ctx context.Context, clientID *uint) error {
	if _, err := s.clients.GetByID(ctx, *clientID); err != nil {
		if domain.IsNotFound(err) {
			return domain.NewAppError(domain.CodeNotFound, OwnerNotFoundMessage, err)
		}
		return err
	}
	return nil
}

func normalize(a *domain.Account) {
	a.RIB = strings.TrimSpace(a.RIB)
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	a.Type = domain.AccountType(strings.ToUpper(strings.TrimSpace(string(a.Type))))
	a.Status = domain.AccountStatus(strings.ToUpper(strings.TrimSpace(string(a.Status))))
	a.SwiftCode = strings.TrimSpace(a.SwiftCode)
	a.IBAN = strings.TrimSpace(a.IBAN)
	a.BranchCode = strings.TrimSpace(a.BranchCode)
}

// validate checks the account rules. The RIB is only checked on create;
// updates take it from the URL.
func validate(a *domain.Account, checkRIB bool) error {
	fields := map[string]string{}
	if checkRIB {
		switch {
		case a.RIB == "":
			fields["rib"] = "RIB is required"
		case len(a.RIB) > 34:
			fields["rib"] = "RIB must not exceed 34 characters"
		}
	}
	if a.Balance.IsNegative() {
		fields["balance"] = "Balance must be positive or zero"
	}
	if a.Type == "" {
		fields["type"] = "Account type is required"
	} else if !domain.ValidAccountType(a.Type) {
		fields["type"] = "Account type must be CHECKING, SAVINGS or BUSINESS"
	}
	if a.Status == "" {
		fields["status"] = "Account status is required"
	} else if !domain.ValidAccountStatus(a.Status) {
		fields["status"] = "Unknown account status"
	}
	if a.Currency == "" {
		fields["currency"] = "Currency is required"
	} else if !currencyPattern.MatchString(a.Currency) {
		fields["currency"] = "Currency must be a 3-letter ISO code"
	}
	if !a.InterestRate.IsZero() && !a.InterestRate.IsPositive() {
		fields["interestRate"] = "Interest rate must be positive"
	}
	if a.OverdraftLimit.IsNegative() {
		fields["overdraftLimit"] = "Overdraft limit must be positive or zero"
	}
	if len(a.SwiftCode) > 11 {
		fields["swiftCode"] = "SWIFT code must not exceed 11 characters"
	}
	if len(a.IBAN) > 34 {
		fields["iban"] = "IBAN must not exceed 34 characters"
	}
	if len(a.Notes) > 1000 {
		fields["notes"] = "Notes must not exceed 1000 characters"
	}
	if a.ClientID == nil || *a.ClientID == 0 {
		fields["clientId"] = "Client ID is required"
	}
	if len(fields) > 0 {
		return domain.NewFieldError(fields)
	}
	return nil
}

func validatePage(req domain.PageRequest) error {
	fields := map[string]string{}
	if req.Page < 0 {
		fields["page"] = "page must be zero or greater"
	}
	if req.Size < 1 || req.Size > domain.MaxPageSize {
		fields["size"] = "size must be between 1 and 100"
	}
	if _, ok := domain.AccountSortColumns[req.SortBy]; !ok {
		fields["sortBy"] = "sortBy must be one of rib, balance, createdAt"
	}
	if req.SortDirection != domain.SortAsc && req.SortDirection != domain.SortDesc {
		fields["sortDirection"] = "sortDirection must be asc or desc"
	}
	if len(fields) > 0 {
		return domain.NewFieldError(fields)
	}
	return nil
}
