package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// ClientLister is the data source behind the client list.
type ClientLister interface {
	ListClients(ctx context.Context, filter domain.ClientFilter) (*domain.PageResult[domain.Client], error)
	GetClient(ctx context.Context, id uint) (*domain.Client, error)
	DeleteClient(ctx context.Context, id uint) error
}

// ErrNoDeletePrompt is returned when a deletion was not confirmed through a
// prompt issued by RequestDelete.
var ErrNoDeletePrompt = errors.New("deletion must be confirmed through a prompt")

// ErrClosed is returned by a ListQuery after Close.
var ErrClosed = errors.New("list query closed")

// ListState is a consistent view of the list.
type ListState struct {
	Query   *ClientQuery
	Result  *domain.PageResult[domain.Client]
	Loading bool
	Err     error
}

// DeletePrompt identifies a pending deletion.
type DeletePrompt struct {
	ID     uint
	Text   string
	Name   string
	issued bool
	owner  *ListQuery
}

// ListQuery drives the client list: filter edits are debounced, paging and
// sorting fetch immediately, and a response is applied only if no newer
// request has started since it was sent.
type ListQuery struct {
	mu        sync.Mutex
	lister    ClientLister
	query     *ClientQuery
	result    *domain.PageResult[domain.Client]
	err       error
	loading   bool
	seq       uint64
	closed    bool
	debouncer *Debouncer
	ctx       context.Context
	cancel    context.CancelFunc

	logger   *slog.Logger
	onResult func(ListState)
	onError  func(error)
	timeout  time.Duration
}

// ListOption configures a ListQuery.
type ListOption func(*ListQuery)

// WithDebounce overrides the filter quiet period.
func WithDebounce(d time.Duration) ListOption {
	return func(l *ListQuery) { l.debouncer = NewDebouncer(d) }
}

// WithListLogger sets the logger.
func WithListLogger(logger *slog.Logger) ListOption {
	return func(l *ListQuery) { l.logger = logger }
}

// OnResult registers a callback run after each applied response.
func OnResult(fn func(ListState)) ListOption {
	return func(l *ListQuery) { l.onResult = fn }
}

// OnError registers a callback run when an applied response is an error.
func OnError(fn func(error)) ListOption {
	return func(l *ListQuery) { l.onError = fn }
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) ListOption {
	return func(l *ListQuery) { l.timeout = d }
}

// WithQuery starts the list from q instead of the default query.
func WithQuery(q *ClientQuery) ListOption {
	return func(l *ListQuery) {
		if q != nil {
			l.query = q.Clone()
		}
	}
}

// NewListQuery returns a list over lister starting from the default query.
// No fetch happens until Refresh or an edit.
func NewListQuery(lister ClientLister, opts ...ListOption) *ListQuery {
	ctx, cancel := context.WithCancel(context.Background())
	l := &ListQuery{
		lister: lister,
		query:  NewClientQuery(),
		ctx:    ctx,
		cancel: cancel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.debouncer == nil {
		l.debouncer = NewDebouncer(DefaultDebounce)
	}
	return l
}

// State returns a snapshot of the list.
func (l *ListQuery) State() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

func (l *ListQuery) stateLocked() ListState {
	return ListState{Query: l.query.Clone(), Result: l.result, Loading: l.loading, Err: l.err}
}

// Loading reports whether a fetch is in flight.
func (l *ListQuery) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// SetFilter edits one predicate and schedules a debounced fetch.
func (l *ListQuery) SetFilter(key, value string) error {
	return l.edit(func(q *ClientQuery) error { return q.SetFilter(key, value) })
}

// RemoveFilter clears one predicate and schedules a debounced fetch.
func (l *ListQuery) RemoveFilter(key string) error {
	return l.edit(func(q *ClientQuery) error { return q.RemoveFilter(key) })
}

// Reset restores the default query and schedules a debounced fetch.
func (l *ListQuery) Reset() error {
	return l.edit(func(q *ClientQuery) error { q.Reset(); return nil })
}

// edit applies a filter edit and restarts the quiet period.
func (l *ListQuery) edit(mutate func(q *ClientQuery) error) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	err := mutate(l.query)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.debouncer.Trigger(func() { _ = l.fetch(l.ctx) })
	return nil
}

// SetPage moves to page n and fetches immediately.
func (l *ListQuery) SetPage(ctx context.Context, n int) error {
	return l.apply(ctx, func(q *ClientQuery) error { q.SetPage(n); return nil })
}

// SetSize changes the page size and fetches immediately.
func (l *ListQuery) SetSize(ctx context.Context, n int) error {
	return l.apply(ctx, func(q *ClientQuery) error { q.SetSize(n); return nil })
}

// SetSort changes the ordering and fetches immediately.
func (l *ListQuery) SetSort(ctx context.Context, by, direction string) error {
	return l.apply(ctx, func(q *ClientQuery) error { q.SetSort(by, direction); return nil })
}

// Refresh fetches the current query immediately.
func (l *ListQuery) Refresh(ctx context.Context) error {
	return l.apply(ctx, func(*ClientQuery) error { return nil })
}

func (l *ListQuery) apply(ctx context.Context, mutate func(q *ClientQuery) error) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	err := mutate(l.query)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.debouncer.Cancel()
	return l.fetch(ctx)
}

func (l *ListQuery) fetch(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.seq++
	seq := l.seq
	l.loading = true
	query := l.query.Clone()
	l.mu.Unlock()

	filter, err := query.Filter()
	var result *domain.PageResult[domain.Client]
	if err == nil {
		ctx, stop := l.fetchContext(ctx)
		result, err = l.lister.ListClients(ctx, filter)
		stop()
	}

	l.mu.Lock()
	if l.closed || seq != l.seq {
		l.mu.Unlock()
		l.logger.Debug("discarding stale client list response", slog.Uint64("seq", seq))
		return err
	}
	l.loading = false
	if err != nil {
		l.err = err
	} else {
		l.result, l.err = result, nil
	}
	state := l.stateLocked()
	onResult, onError := l.onResult, l.onError
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("client list fetch failed", slog.Any("error", err))
		if onError != nil {
			onError(err)
		}
	}
	if onResult != nil {
		onResult(state)
	}
	return err
}

// fetchContext merges ctx with the list's lifetime and optional timeout.
func (l *ListQuery) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(l.ctx, cancel)
	if l.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, l.timeout)
		return ctx, func() { cancelTimeout(); stop(); cancel() }
	}
	return ctx, func() { stop(); cancel() }
}

// Preview returns the full record of a listed client.
func (l *ListQuery) Preview(ctx context.Context, id uint) (*domain.Client, error) {
	return l.lister.GetClient(ctx, id)
}

// EditTarget loads a client and opens an edit form on it.
func (l *ListQuery) EditTarget(ctx context.Context, id uint) (*Form, error) {
	c, err := l.lister.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewEditForm(c), nil
}

// RequestDelete issues a confirmation prompt naming the client.
func (l *ListQuery) RequestDelete(ctx context.Context, id uint) (DeletePrompt, error) {
	c := l.findRow(id)
	if c == nil {
		var err error
		if c, err = l.lister.GetClient(ctx, id); err != nil {
			return DeletePrompt{}, err
		}
	}
	return DeletePrompt{
		ID:     c.ID,
		Name:   c.FullName(),
		Text:   DeletePromptText(c),
		issued: true,
		owner:  l,
	}, nil
}

// DeletePromptText is the confirmation question for deleting c.
func DeletePromptText(c *domain.Client) string {
	return fmt.Sprintf("Delete client %s (%s)? This cannot be undone.", c.FullName(), c.Email)
}

func (l *ListQuery) findRow(id uint) *domain.Client {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.result == nil {
		return nil
	}
	for i := range l.result.Content {
		if l.result.Content[i].ID == id {
			c := l.result.Content[i]
			return &c
		}
	}
	return nil
}

// ConfirmDelete deletes the client named by prompt and refreshes the list.
func (l *ListQuery) ConfirmDelete(ctx context.Context, prompt DeletePrompt) error {
	if !prompt.issued || prompt.owner != l {
		return ErrNoDeletePrompt
	}
	if err := l.lister.DeleteClient(ctx, prompt.ID); err != nil {
		return err
	}
	return l.Refresh(ctx)
}

// Close cancels any pending or in-flight fetch. Responses arriving after
// Close are dropped.
func (l *ListQuery) Close() {
	l.mu.Lock()
	l.closed = true
	l.loading = false
	l.mu.Unlock()
	l.debouncer.Close()
	l.cancel()
}

// Age returns the age in whole years for dob, or false when dob is unknown.
func Age(dob *domain.Date, now time.Time) (int, bool) {
	if dob == nil || dob.IsZero() {
		return 0, false
	}
	return dob.AgeAt(now), true
}
