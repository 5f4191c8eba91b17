package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats aggregates headline metrics for the dashboard.
type DashboardStats struct {
	TotalClients     int64                   `json:"totalClients"`
	TotalAccounts    int64                   `json:"totalAccounts"`
	TotalBalance     decimal.Decimal         `json:"totalBalance"`
	AccountsByStatus map[AccountStatus]int64 `json:"accountsByStatus"`
	GeneratedAt      time.Time               `json:"generatedAt"`
}

// DashboardService computes dashboard metrics.
type DashboardService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
}
