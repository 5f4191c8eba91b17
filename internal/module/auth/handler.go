package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// AuthHandler handles REST API requests for authentication.
type AuthHandler struct {
	svc Service
}

// NewHandler creates a new AuthHandler with the given service.
func NewHandler(svc Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login handles POST /api/v1/auth/login and its alias /authenticate.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	tokenResp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, tokenResp)
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	tokenResp, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, tokenResp)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}

	user, err := h.svc.Me(c.Request.Context(), p.UserID)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, newUserResponse(user))
}

// Validate handles GET /api/v1/auth/validate. Reaching it at all means the
// Auth middleware accepted the token.
func (h *AuthHandler) Validate(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}
	pkg.Success(c, ValidateResponse{Valid: true, ExpiresAt: p.Expires.Unix()})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		pkg.Error(c, domain.ErrUnauthorized)
		return
	}
	h.svc.Logout(c.Request.Context(), p)
	pkg.Success(c, nil)
}
