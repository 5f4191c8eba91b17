package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/pkg"
)

// SessionCookieName is the cookie carrying the console session token.
const SessionCookieName = "bo_session"

const principalContextKey = "principal"

// Principal is the authenticated staff member behind a request.
type Principal struct {
	UserID  uint
	Email   string
	Name    string
	Token   string
	TokenID string
	Expires time.Time
}

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// AuthConfig configures the Auth middleware.
type AuthConfig struct {
	Verifier TokenVerifier
	// PublicPaths are reachable without a session. Entries ending in "/"
	// match by prefix; all others match exactly.
	PublicPaths []string
	// LoginPath is where page requests without a valid session are sent.
	LoginPath string
	// APIPrefix marks JSON routes, which get a 401 instead of a redirect.
	APIPrefix string
}

// Auth gates every non-public route on a valid session. The token is read
// from "Authorization: Bearer" first and the session cookie second.
//
// Unauthenticated API calls get a 401 envelope. Unauthenticated page requests
// have the session cookie cleared and are sent to the login page, through
// HX-Redirect for htmx requests.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/"
	}
	secure := gin.Mode() == gin.ReleaseMode

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		public := isPublicPath(cfg.PublicPaths, path) || path == cfg.LoginPath

		token, fromCookie := extractToken(c)
		if token != "" {
			p, err := cfg.Verifier.Verify(c.Request.Context(), token)
			if err == nil {
				c.Set(principalContextKey, p)
				c.Next()
				return
			}
			if fromCookie {
				ClearSessionCookie(c, secure)
			}
		}
		if public {
			c.Next()
			return
		}

		if strings.HasPrefix(path, cfg.APIPrefix) {
			c.Header("WWW-Authenticate", `Bearer realm="bankoffice"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, pkg.Response{
				Code:    http.StatusUnauthorized,
				Message: domain.ErrUnauthorized.Message,
			})
			return
		}

		target := cfg.LoginPath
		if c.Request.Method == http.MethodGet && !pkg.IsHTMX(c) {
			target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		}
		pkg.Redirect(c, target)
		c.Abort()
	}
}

func extractToken(c *gin.Context) (token string, fromCookie bool) {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value), false
		}
	}
	if v, err := c.Cookie(SessionCookieName); err == nil && v != "" {
		return v, true
	}
	return "", false
}

func isPublicPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// GetPrincipal returns the authenticated principal, or nil.
func GetPrincipal(c *gin.Context) *Principal {
	if v, ok := c.Get(principalContextKey); ok {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}

// SetSessionCookie stores token in the HttpOnly session cookie.
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
