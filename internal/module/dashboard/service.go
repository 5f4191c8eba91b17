package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	shardedcache "github.com/simp-lee/cache"
	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/bankoffice/internal/domain"
)

const statsKey = "stats"

// dashboardService implements domain.DashboardService.
type dashboardService struct {
	clients  domain.ClientRepository
	accounts domain.AccountRepository
	cache    shardedcache.CacheInterface
	mu       sync.Mutex
	now      func() time.Time
}

// NewService creates a DashboardService. A positive ttl caches the computed
// stats for that long; zero disables caching.
func NewService(clients domain.ClientRepository, accounts domain.AccountRepository, ttl time.Duration) domain.DashboardService {
	s := &dashboardService{clients: clients, accounts: accounts, now: time.Now}
	if ttl > 0 {
		// expired entries are dropped on read, so no cleaner goroutine
		s.cache = shardedcache.NewCache(shardedcache.Options{
			MaxSize:           1,
			DefaultExpiration: ttl,
			ShardCount:        1,
		})
	}
	return s
}

// Stats returns the headline metrics. The independent aggregates run
// concurrently; the first failure cancels the rest.
func (s *dashboardService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	if s.cache != nil {
		if cached, ok := shardedcache.GetTyped[domain.DashboardStats](s.cache, statsKey); ok {
			return &cached, nil
		}
		// one computation at a time refills the cache
		s.mu.Lock()
		defer s.mu.Unlock()
		if cached, ok := shardedcache.GetTyped[domain.DashboardStats](s.cache, statsKey); ok {
			return &cached, nil
		}
	}

	stats := domain.DashboardStats{GeneratedAt: s.now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.clients.Count(gctx)
		stats.TotalClients = n
		return err
	})
	g.Go(func() error {
		n, err := s.accounts.Count(gctx)
		stats.TotalAccounts = n
		return err
	})
	g.Go(func() error {
		total, err := s.accounts.TotalBalance(gctx)
		stats.TotalBalance = total
		return err
	})
	g.Go(func() error {
		byStatus, err := s.accounts.CountByStatus(gctx)
		stats.AccountsByStatus = byStatus
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "dashboard stats failed", "error", err)
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(statsKey, stats)
	}
	return &stats, nil
}
