package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/bankoffice/internal/pkg"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"

	csrfExpiredMessage = "Your form expired. Reload the page and try again."
)

// CSRF protects page routes with a signed double-submit cookie.
//
// Tokens look like hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret)).
// Safe methods get a token cookie (readable by htmx, SameSite=Strict) and the
// token in gin.Context under "CSRFToken" for templates. Unsafe methods must
// echo the cookie in the "_csrf_token" form field or the X-CSRF-Token header.
// Rejections are 403: a toast for htmx requests, JSON otherwise.
//
// The JSON API authenticates with bearer tokens and is not wrapped by CSRF.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
				Code:    http.StatusInternalServerError,
				Message: "csrf secret is required",
			})
		}
	}

	secure := gin.Mode() == gin.ReleaseMode
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := c.Cookie(csrfCookieName)
			if err != nil || !validToken(token, secret) {
				if token, err = generateToken(secret); err != nil {
					c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
						Code:    http.StatusInternalServerError,
						Message: "failed to generate CSRF token",
					})
					return
				}
				setCSRFCookie(c, token, secure)
			}
			c.Set(csrfContextKey, token)
			c.Next()

		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			cookieToken, err := c.Cookie(csrfCookieName)
			if err != nil || cookieToken == "" {
				rejectCSRF(c, "CSRF token missing")
				return
			}
			requestToken := c.GetHeader(csrfHeaderName)
			if requestToken == "" {
				requestToken = c.PostForm(csrfFormField)
			}
			if requestToken == "" {
				rejectCSRF(c, "CSRF token missing")
				return
			}
			if !validToken(cookieToken, secret) || !tokensMatch(cookieToken, requestToken) {
				rejectCSRF(c, "CSRF token invalid")
				return
			}
			c.Set(csrfContextKey, cookieToken)
			c.Next()

		default:
			c.Next()
		}
	}
}

func rejectCSRF(c *gin.Context, reason string) {
	if pkg.IsHTMX(c) {
		c.Header("HX-Reswap", "none")
		pkg.SetToast(c, csrfExpiredMessage, pkg.ToastError)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.AbortWithStatusJSON(http.StatusForbidden, pkg.Response{Code: http.StatusForbidden, Message: reason})
}

// GetCSRFToken returns the token stored by CSRF, or "".
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

func generateToken(secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	nonceHex := hex.EncodeToString(nonce)
	return nonceHex + "." + signNonce(nonceHex, secret), nil
}

func signNonce(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validToken(token, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(signNonce(nonce, secret))) == 1
}

func tokensMatch(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// setCSRFCookie stores the token where htmx can read it; Secure in release mode.
func setCSRFCookie(c *gin.Context, token string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
