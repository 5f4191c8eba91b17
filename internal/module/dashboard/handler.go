package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// recentClients is the number of newest clients shown on the dashboard.
const recentClients = 5

// DashboardHandler serves the dashboard API and page.
type DashboardHandler struct {
	svc     domain.DashboardService
	clients domain.ClientService
}

// NewHandler creates a new DashboardHandler.
func NewHandler(svc domain.DashboardService, clients domain.ClientService) *DashboardHandler {
	return &DashboardHandler{svc: svc, clients: clients}
}

// Stats handles GET /api/v1/dashboard.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, stats)
}

// Page renders the dashboard.
// GET /
func (h *DashboardHandler) Page(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}

	filter := domain.DefaultClientFilter()
	filter.Size = recentClients
	filter.SortBy = "createdAt"
	filter.SortDirection = domain.SortDesc
	var recent []domain.Client
	if page, err := h.clients.ListClients(ctx, filter); err != nil {
		slog.WarnContext(ctx, "recent clients unavailable", "error", err)
	} else {
		recent = page.Content
	}

	c.HTML(http.StatusOK, "dashboard/index.html", gin.H{
		"Stats":     stats,
		"Statuses":  statusRows(stats),
		"Recent":    recent,
		"User":      middleware.GetPrincipal(c),
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

type statusRow struct {
	Status domain.AccountStatus
	Count  int64
}

var statusOrder = []domain.AccountStatus{
	domain.AccountActive, domain.AccountPendingActivation, domain.AccountInactive,
	domain.AccountSuspended, domain.AccountBlocked, domain.AccountClosed,
}

// statusRows lists every status in a fixed order, zero counts included.
func statusRows(stats *domain.DashboardStats) []statusRow {
	rows := make([]statusRow, 0, len(statusOrder))
	for _, s := range statusOrder {
		rows = append(rows, statusRow{Status: s, Count: stats.AccountsByStatus[s]})
	}
	return rows
}
