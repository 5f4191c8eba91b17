package auth

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAuthModuleRegisterRoutes(t *testing.T) {
	r := gin.New()
	mod := NewModule(&AuthHandler{}, &AuthPageHandler{})
	mod.RegisterRoutes(r.Group("/api/v1"), r.Group("/"))

	expected := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPost, "/api/v1/auth/authenticate"},
		{http.MethodPost, "/api/v1/auth/register"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/auth/validate"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/login"},
		{http.MethodPost, "/login"},
		{http.MethodGet, "/register"},
		{http.MethodPost, "/register"},
		{http.MethodPost, "/logout"},
	}

	registered := make(map[string]bool)
	for _, ri := range r.Routes() {
		registered[ri.Method+":"+ri.Path] = true
	}
	for _, exp := range expected {
		if !registered[exp.method+":"+exp.path] {
			t.Errorf("expected route %s %s to be registered", exp.method, exp.path)
		}
	}
}

func TestNewModule_PanicsOnNilHandler(t *testing.T) {
	for name, fn := range map[string]func(){
		"handler":     func() { NewModule(nil, &AuthPageHandler{}) },
		"pageHandler": func() { NewModule(&AuthHandler{}, nil) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic, got none")
				}
			}()
			fn()
		})
	}
}
