package account

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// AccountHandler handles REST API requests for accounts.
type AccountHandler struct {
	svc domain.AccountService
}

// NewHandler creates a new AccountHandler.
func NewHandler(svc domain.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// List handles GET /api/v1/accounts. clientId narrows the list to one owner.
func (h *AccountHandler) List(c *gin.Context) {
	req, clientID, err := parseListQuery(c)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	result, err := h.svc.ListAccounts(c.Request.Context(), req, clientID)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Get handles GET /api/v1/accounts/:rib.
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.svc.GetAccount(c.Request.Context(), c.Param("rib"))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, account)
}

// Create handles POST /api/v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	account, err := h.svc.CreateAccount(c.Request.Context(), req.ToAccount())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, account)
}

// Update handles PUT /api/v1/accounts/:rib.
func (h *AccountHandler) Update(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	rib := c.Param("rib")
	if req.RIB != "" && req.RIB != rib {
		pkg.Error(c, domain.NewFieldError(map[string]string{"rib": "rib does not match the URL"}))
		return
	}

	account, err := h.svc.UpdateAccount(c.Request.Context(), rib, req.ToAccount())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, account)
}

// Delete handles DELETE /api/v1/accounts/:rib.
func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteAccount(c.Request.Context(), c.Param("rib")); err != nil {
		pkg.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func bindRequest(c *gin.Context) (*AccountRequest, bool) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "invalid request body", err))
		return nil, false
	}
	if missing := req.Missing(); missing != nil {
		pkg.Error(c, domain.NewFieldError(missing))
		return nil, false
	}
	return &req, true
}

// parseListQuery reads paging and the optional clientId filter. Accounts
// sort by RIB unless asked otherwise.
func parseListQuery(c *gin.Context) (domain.PageRequest, *uint, error) {
	req := pkg.ParsePageRequest(c)
	if strings.TrimSpace(c.Query("sortBy")) == "" {
		req.SortBy = domain.DefaultAccountSortBy
	}

	raw := strings.TrimSpace(c.Query("clientId"))
	if raw == "" {
		return req, nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return req, nil, domain.NewFieldError(map[string]string{"clientId": "clientId must be a positive number"})
	}
	clientID := uint(id)
	return req, &clientID, nil
}
