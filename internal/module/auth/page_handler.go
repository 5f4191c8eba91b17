package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/middleware"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// AuthPageHandler serves the sign-in and registration pages.
type AuthPageHandler struct {
	svc    Service
	ttl    time.Duration
	secure bool
}

// NewPageHandler creates an AuthPageHandler. ttl is the session cookie
// lifetime; secure marks the cookie HTTPS-only.
func NewPageHandler(svc Service, ttl time.Duration, secure bool) *AuthPageHandler {
	return &AuthPageHandler{svc: svc, ttl: ttl, secure: secure}
}

// LoginPage renders the sign-in form.
// GET /login
func (h *AuthPageHandler) LoginPage(c *gin.Context) {
	next := safeNext(c.Query("next"))
	if middleware.GetPrincipal(c) != nil {
		c.Redirect(http.StatusSeeOther, next)
		return
	}
	c.HTML(http.StatusOK, "auth/login.html", gin.H{
		"Next":      next,
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

// Login signs the user in and sets the session cookie.
// POST /login
func (h *AuthPageHandler) Login(c *gin.Context) {
	var req LoginRequest
	next := safeNext(c.PostForm("next"))
	if err := c.ShouldBind(&req); err != nil {
		slog.DebugContext(c.Request.Context(), "login: bind error", "error", err)
		h.renderLogin(c, req.Email, next, "Enter your email and password")
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.renderLogin(c, req.Email, next, pkg.SafeMessage(err, "Sign-in failed. Please try again."))
		return
	}

	middleware.SetSessionCookie(c, resp.Token, h.ttl, h.secure)
	pkg.Redirect(c, next)
}

func (h *AuthPageHandler) renderLogin(c *gin.Context, email, next, msg string) {
	c.HTML(http.StatusOK, "auth/login.html", gin.H{
		"Email":     email,
		"Next":      next,
		"Error":     msg,
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

// RegisterPage renders the registration form.
// GET /register
func (h *AuthPageHandler) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "auth/register.html", gin.H{
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

// Register creates an account and signs the user in.
// POST /register
func (h *AuthPageHandler) Register(c *gin.Context) {
	name := c.PostForm("name")
	email := c.PostForm("email")
	password := c.PostForm("password")
	if password != c.PostForm("confirmPassword") {
		h.renderRegister(c, name, email, map[string]string{"confirmPassword": "Passwords do not match"}, "")
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), name, email, password)
	if err != nil {
		if fields := domain.FieldErrors(err); len(fields) > 0 {
			h.renderRegister(c, name, email, fields, "")
			return
		}
		h.renderRegister(c, name, email, nil, pkg.SafeMessage(err, "Registration failed. Please try again."))
		return
	}

	middleware.SetSessionCookie(c, resp.Token, h.ttl, h.secure)
	pkg.SetToast(c, "Welcome, "+resp.User.Name, pkg.ToastSuccess)
	pkg.Redirect(c, "/")
}

func (h *AuthPageHandler) renderRegister(c *gin.Context, name, email string, fields map[string]string, msg string) {
	c.HTML(http.StatusOK, "auth/register.html", gin.H{
		"Name":        name,
		"Email":       email,
		"FieldErrors": fields,
		"Error":       msg,
		"CSRFToken":   middleware.GetCSRFToken(c),
	})
}

// Logout revokes the session and returns to the sign-in page.
// POST /logout
func (h *AuthPageHandler) Logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context(), middleware.GetPrincipal(c))
	middleware.ClearSessionCookie(c, h.secure)
	pkg.Redirect(c, "/login")
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if next == "/login" || strings.HasPrefix(next, "/login?") {
		return "/"
	}
	return next
}
