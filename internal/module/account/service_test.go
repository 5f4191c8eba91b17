package account

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/module/client"
)

// setupTestDB creates an in-memory SQLite database with the Client and
// Account tables.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.Client{}, &domain.Account{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (domain.AccountService, domain.AccountRepository, *domain.Client) {
	t.Helper()
	db := setupTestDB(t)
	clients := client.NewClientRepository(db)
	owner := &domain.Client{Name: "John", Surname: "Doe", Email: "john@example.com"}
	if err := clients.Create(context.Background(), owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	repo := NewAccountRepository(db)
	return NewService(repo, clients), repo, owner
}

func newAccount(rib, balance string, clientID uint) *domain.Account {
	return &domain.Account{
		RIB:            rib,
		Balance:        decimal.RequireFromString(balance),
		Type:           domain.AccountSavings,
		Status:         domain.AccountActive,
		Currency:       "mad",
		InterestRate:   decimal.RequireFromString("2.5"),
		OverdraftLimit: decimal.RequireFromString("1000.00"),
		ClientID:       &clientID,
	}
}

func TestAccountService_CreateAndGet(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, newAccount(" RIB123456789 ", "1000.00", owner.ID))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if created.RIB != "RIB123456789" || created.Currency != "MAD" {
		t.Errorf("created = %+v", created)
	}
	if created.Client == nil || created.Client.Email != "john@example.com" {
		t.Errorf("owner not loaded: %+v", created.Client)
	}

	got, err := svc.GetAccount(ctx, "RIB123456789")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Balance = %s", got.Balance)
	}
}

func TestAccountService_CreateErrors(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateAccount(ctx, newAccount("RIB1", "10", owner.ID)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name  string
		build func() *domain.Account
		check func(error) bool
		field string
	}{
		{"duplicate rib", func() *domain.Account { return newAccount("RIB1", "5", owner.ID) }, domain.IsAlreadyExists, "rib"},
		{"missing rib", func() *domain.Account { return newAccount("", "5", owner.ID) }, domain.IsValidation, "rib"},
		{"negative balance", func() *domain.Account { return newAccount("RIB2", "-0.01", owner.ID) }, domain.IsValidation, "balance"},
		{"unknown type", func() *domain.Account {
			a := newAccount("RIB2", "5", owner.ID)
			a.Type = "CRYPTO"
			return a
		}, domain.IsValidation, "type"},
		{"bad currency", func() *domain.Account {
			a := newAccount("RIB2", "5", owner.ID)
			a.Currency = "dirham"
			return a
		}, domain.IsValidation, "currency"},
		{"negative interest", func() *domain.Account {
			a := newAccount("RIB2", "5", owner.ID)
			a.InterestRate = decimal.RequireFromString("-1")
			return a
		}, domain.IsValidation, "interestRate"},
		{"no owner", func() *domain.Account {
			a := newAccount("RIB2", "5", owner.ID)
			a.ClientID = nil
			return a
		}, domain.IsValidation, "clientId"},
		{"unknown owner", func() *domain.Account { return newAccount("RIB2", "5", 999) }, domain.IsNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(ctx, tt.build())
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			if tt.field != "" && domain.FieldErrors(err)[tt.field] == "" {
				t.Errorf("fields = %v, want %s", domain.FieldErrors(err), tt.field)
			}
		})
	}
}

func TestAccountService_ListAndFilterByClient(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()
	svc.CreateAccount(ctx, newAccount("RIB-B", "300", owner.ID))
	svc.CreateAccount(ctx, newAccount("RIB-A", "100", owner.ID))

	req := domain.PageRequest{Page: 0, Size: 10, SortBy: "balance", SortDirection: domain.SortDesc}
	result, err := svc.ListAccounts(ctx, req, nil)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if result.TotalElements != 2 || result.Content[0].RIB != "RIB-B" {
		t.Errorf("result = %+v", result)
	}
	if result.Content[0].Client == nil {
		t.Error("owner not preloaded")
	}

	other := uint(999)
	result, err = svc.ListAccounts(ctx, req, &other)
	if err != nil || result.TotalElements != 0 {
		t.Errorf("other client: %+v, %v", result, err)
	}

	req.SortBy = "client"
	if _, err := svc.ListAccounts(ctx, req, nil); domain.FieldErrors(err)["sortBy"] == "" {
		t.Errorf("bad sort: %v", err)
	}
}

func TestAccountService_Update(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()
	created, _ := svc.CreateAccount(ctx, newAccount("RIB1", "10", owner.ID))

	change := newAccount("IGNORED", "2500.00", owner.ID)
	change.Status = domain.AccountBlocked
	updated, err := svc.UpdateAccount(ctx, "RIB1", change)
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if updated.RIB != "RIB1" || updated.Status != domain.AccountBlocked {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed")
	}

	if _, err := svc.UpdateAccount(ctx, "NOPE", change); !domain.IsNotFound(err) {
		t.Errorf("missing account: %v", err)
	}
}

func TestAccountService_Delete(t *testing.T) {
	svc, _, owner := newTestService(t)
	ctx := context.Background()
	svc.CreateAccount(ctx, newAccount("RIB1", "10", owner.ID))

	if err := svc.DeleteAccount(ctx, "RIB1"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if err := svc.DeleteAccount(ctx, "RIB1"); !domain.IsNotFound(err) {
		t.Errorf("second delete: %v", err)
	}
}

func TestAccountRepository_Aggregates(t *testing.T) {
	svc, repo, owner := newTestService(t)
	ctx := context.Background()
	svc.CreateAccount(ctx, newAccount("RIB1", "1000.10", owner.ID))
	svc.CreateAccount(ctx, newAccount("RIB2", "2500.25", owner.ID))
	blocked := newAccount("RIB3", "0.05", owner.ID)
	blocked.Status = domain.AccountBlocked
	svc.CreateAccount(ctx, blocked)

	total, err := repo.TotalBalance(ctx)
	if err != nil {
		t.Fatalf("TotalBalance: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("3500.40")) {
		t.Errorf("TotalBalance = %s", total)
	}

	byStatus, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if byStatus[domain.AccountActive] != 2 || byStatus[domain.AccountBlocked] != 1 {
		t.Errorf("CountByStatus = %v", byStatus)
	}

	if n, _ := repo.Count(ctx); n != 3 {
		t.Errorf("Count = %d", n)
	}
}
