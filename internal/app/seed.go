package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/simp-lee/bankoffice/internal/config"
	"github.com/simp-lee/bankoffice/internal/domain"
)

// adminName is the display name of the seeded staff account.
const adminName = "Admin User"

type userEnsurer interface {
	EnsureUser(ctx context.Context, name, email, password string) (*domain.User, bool, error)
}

// Seeder creates the admin user and, on an empty database, demo clients with
// one account each.
type Seeder struct {
	Users    userEnsurer
	Clients  domain.ClientService
	Count    func(ctx context.Context) (int64, error)
	Accounts domain.AccountService
	Logger   *slog.Logger
}

// Run applies cfg. It is safe to call on every start.
func (s *Seeder) Run(ctx context.Context, cfg config.SeedConfig) error {
	if !cfg.Enabled {
		return nil
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	if cfg.AdminEmail != "" {
		_, created, err := s.Users.EnsureUser(ctx, adminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
		if created {
			log.Info("admin user created", slog.String("email", cfg.AdminEmail))
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		return fmt.Errorf("count clients: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, demo := range demoData() {
		c, err := s.Clients.CreateClient(ctx, demo.client)
		if err != nil {
			return fmt.Errorf("seed client %s: %w", demo.client.Email, err)
		}
		demo.account.ClientID = &c.ID
		if _, err := s.Accounts.CreateAccount(ctx, demo.account); err != nil {
			return fmt.Errorf("seed account %s: %w", demo.account.RIB, err)
		}
	}
	log.Info("sample clients and accounts created")
	return nil
}

type demoClient struct {
	client  *domain.Client
	account *domain.Account
}

func demoData() []demoClient {
	ptr := func(f float64) *float64 { return &f }
	dob := func(s string) *domain.Date {
		d, _ := domain.ParseDate(s)
		return &d
	}
	dec := decimal.RequireFromString

	return []demoClient{
		{
			client: &domain.Client{
				Name: "John", Surname: "Doe",
				Email:         "john@example.com",
				Phone:         "51234567",
				StreetAddress: "123 Hassan II Street",
				City:          "Casablanca",
				State:         "Casablanca-Settat",
				PostalCode:    "20250",
				Country:       "Morocco",
				Region:        "Grand Casablanca",
				RegionCode:    "GC-01",
				Latitude:      ptr(33.5731104),
				Longitude:     ptr(-7.5898434),
				DateOfBirth:   dob("1990-01-15"),
			},
			account: &domain.Account{
				RIB:            "RIB123456789",
				Balance:        dec("1000.00"),
				Type:           domain.AccountSavings,
				Status:         domain.AccountActive,
				Currency:       "MAD",
				InterestRate:   dec("2.5"),
				OverdraftLimit: dec("1000.00"),
				SwiftCode:      "BCDM12345",
				IBAN:           "MA123456789",
				BranchCode:     "CAS001",
				Notes:          "Primary savings account",
			},
		},
		{
			client: &domain.Client{
				Name: "Jane", Surname: "Smith",
				Email:         "jane@example.com",
				Phone:         "59876543",
				StreetAddress: "45 Mohammed V Avenue",
				City:          "Rabat",
				State:         "Rabat-Salé-Kénitra",
				PostalCode:    "10000",
				Country:       "Morocco",
				Region:        "Rabat-Salé",
				RegionCode:    "RS-02",
				Latitude:      ptr(34.0209169),
				Longitude:     ptr(-6.8416734),
				DateOfBirth:   dob("1985-06-22"),
			},
			account: &domain.Account{
				RIB:            "RIB987654321",
				Balance:        dec("2500.00"),
				Type:           domain.AccountChecking,
				Status:         domain.AccountActive,
				Currency:       "MAD",
				InterestRate:   dec("0.5"),
				OverdraftLimit: dec("5000.00"),
				SwiftCode:      "BCDM12345",
				IBAN:           "MA987654321",
				BranchCode:     "RAB001",
				Notes:          "Primary checking account",
			},
		},
	}
}
