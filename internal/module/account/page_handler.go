package account

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// AccountPageHandler handles page rendering and htmx endpoints for accounts.
type AccountPageHandler struct {
	svc domain.AccountService
}

// NewAccountPageHandler creates a new AccountPageHandler with the given service.
func NewAccountPageHandler(svc domain.AccountService) *AccountPageHandler {
	return &AccountPageHandler{svc: svc}
}

// ListPage renders the account list with pagination.
// GET /accounts
func (h *AccountPageHandler) ListPage(c *gin.Context) {
	req, clientID, err := parseListQuery(c)
	if err != nil {
		c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{})
		return
	}

	result, err := h.svc.ListAccounts(c.Request.Context(), req, clientID)
	if err != nil {
		if domain.IsValidation(err) {
			c.HTML(http.StatusBadRequest, "errors/400.html", gin.H{})
			return
		}
		slog.ErrorContext(c.Request.Context(), "list accounts failed", "error", err)
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}

	c.HTML(http.StatusOK, "account/list.html", gin.H{
		"Accounts":   result.Content,
		"Pagination": result,
		"BaseURL":    "/accounts",
		"ClientID":   clientID,
		"User":       middleware.GetPrincipal(c),
		"CSRFToken":  middleware.GetCSRFToken(c),
	})
}

// DeleteHTMX removes an account from the list page.
// DELETE /accounts/:rib
func (h *AccountPageHandler) DeleteHTMX(c *gin.Context) {
	if err := h.svc.DeleteAccount(c.Request.Context(), c.Param("rib")); err != nil {
		if domain.IsNotFound(err) {
			pkg.FailToast(c, "Account not found or already deleted")
			return
		}
		pkg.FailToast(c, "Delete failed. Please try again.")
		return
	}

	pkg.SetToast(c, "Account deleted", pkg.ToastSuccess)
	c.Status(http.StatusOK)
}
