// Package apiclient is the REST client bankctl uses to talk to the
// back-office API. It implements the console data sources over HTTP and
// keeps the console.Session in step with the server: a 401 on an
// authenticated call clears the session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
)

// APIPrefix is the path every API route lives under.
const APIPrefix = "/api/v1"

// ErrUnauthorized is returned when the server rejects the session token.
// The session has already been cleared when it is returned.
var ErrUnauthorized = &domain.AppError{Code: domain.CodeUnauthorized, Message: "session expired, sign in again"}

// ErrNotSignedIn is returned by authenticated calls made without a token.
var ErrNotSignedIn = &domain.AppError{Code: domain.CodeUnauthorized, Message: "not signed in"}

// Doer performs an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the REST API.
type Client struct {
	base    *url.URL
	http    Doer
	session *console.Session
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the server at baseURL using session for the
// bearer token.
func New(baseURL string, session *console.Session, opts ...Option) (*Client, error) {
	if session == nil {
		return nil, errors.New("apiclient: session must not be nil")
	}
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: base url %q must be http or https", baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var (
	_ console.ClientLister  = (*Client)(nil)
	_ console.ClientPatcher = (*Client)(nil)
)

// Session returns the session the client authenticates with.
func (c *Client) Session() *console.Session { return c.session }

// envelope is the server's response wrapper.
type envelope struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	authed bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	u := *c.base
	u.Path = c.base.Path + APIPrefix + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("apiclient: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.authed {
		token := c.session.Get()
		if token == "" {
			return ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed", "method", r.method, "path", u.Path, "error", err)
		return fmt.Errorf("apiclient: %s %s: %w", r.method, u.Path, err)
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "api request",
		"method", r.method, "path", u.Path, "status", resp.StatusCode, "duration", time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && r.authed {
		if err := c.session.Clear(); err != nil {
			c.logger.WarnContext(ctx, "failed to clear session", "error", err)
		}
		return ErrUnauthorized
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("apiclient: decode response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("apiclient: decode data: %w", err)
	}
	return nil
}

// statusError maps an error response back onto the domain error taxonomy so
// callers can use domain.IsNotFound and friends.
func statusError(status int, env envelope) error {
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	code := domain.CodeInternal
	switch status {
	case http.StatusNotFound:
		code = domain.CodeNotFound
	case http.StatusConflict:
		code = domain.CodeAlreadyExists
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = domain.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		code = domain.CodeUnauthorized
	}
	return &domain.AppError{Code: code, Message: msg, Fields: env.Errors}
}

// User is the signed-in staff member.
type User struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      User   `json:"user"`
}

// Login signs in and stores the issued token in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("apiclient: login response carried no token")
	}
	if err := c.session.Set(resp.Token); err != nil {
		return nil, fmt.Errorf("apiclient: save session: %w", err)
	}
	return &resp.User, nil
}

// Logout revokes the token on the server and clears the session. The
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if !c.session.Authenticated() {
		return nil
	}
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", authed: true}, nil)
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	if clearErr := c.session.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me", authed: true}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListClients returns one page of clients matching filter.
func (c *Client) ListClients(ctx context.Context, filter domain.ClientFilter) (*domain.PageResult[domain.Client], error) {
	var page domain.PageResult[domain.Client]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/clients",
		query:  filterValues(filter),
		authed: true,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetClient returns one client with its accounts.
func (c *Client) GetClient(ctx context.Context, id uint) (*domain.Client, error) {
	var client domain.Client
	if err := c.do(ctx, request{method: http.MethodGet, path: clientPath(id), authed: true}, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// PatchClient sends a partial update carrying only fields.
func (c *Client) PatchClient(ctx context.Context, id uint, fields map[string]any) (*domain.Client, error) {
	var client domain.Client
	if err := c.do(ctx, request{method: http.MethodPatch, path: clientPath(id), body: fields, authed: true}, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// DeleteClient removes a client.
func (c *Client) DeleteClient(ctx context.Context, id uint) error {
	return c.do(ctx, request{method: http.MethodDelete, path: clientPath(id), authed: true}, nil)
}

// ListAccounts returns one page of accounts, optionally for one client.
func (c *Client) ListAccounts(ctx context.Context, req domain.PageRequest, clientID *uint) (*domain.PageResult[domain.Account], error) {
	q := pageValues(req)
	if clientID != nil {
		q.Set("clientId", strconv.FormatUint(uint64(*clientID), 10))
	}
	var page domain.PageResult[domain.Account]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/accounts", query: q, authed: true}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Dashboard returns the current dashboard metrics.
func (c *Client) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	if err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard", authed: true}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func clientPath(id uint) string {
	return "/clients/" + strconv.FormatUint(uint64(id), 10)
}

func pageValues(req domain.PageRequest) url.Values {
	q := url.Values{}
	q.Set(console.KeyPage, strconv.Itoa(req.Page))
	if req.Size > 0 {
		q.Set(console.KeySize, strconv.Itoa(req.Size))
	}
	if req.SortBy != "" {
		q.Set(console.KeySortBy, req.SortBy)
	}
	if req.SortDirection != "" {
		q.Set(console.KeySortDirection, req.SortDirection)
	}
	return q
}

func filterValues(f domain.ClientFilter) url.Values {
	q := pageValues(f.PageRequest)
	set := func(key, v string) {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(key, v)
		}
	}
	set(console.FilterName, f.Name)
	set(console.FilterCity, f.City)
	set(console.FilterRegion, f.Region)
	set(console.FilterRegionCode, f.RegionCode)
	set(console.FilterQuery, f.Query)
	set(console.FilterPhonePrefix, f.PhonePrefix)
	if f.AgeMin != nil {
		q.Set(console.FilterAgeMin, strconv.Itoa(*f.AgeMin))
	}
	if f.AgeMax != nil {
		q.Set(console.FilterAgeMax, strconv.Itoa(*f.AgeMax))
	}
	if f.HasAccounts != nil {
		q.Set(console.FilterHasAccounts, strconv.FormatBool(*f.HasAccounts))
	}
	return q
}
