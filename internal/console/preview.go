package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// Preview messages.
const (
	NothingToPreviewMessage = "No changes to preview. Please return to the edit page."
	GoBackLabel             = "Go Back"
	UpdatedMessage          = "Client updated successfully"
)

// ErrNothingToPreview is returned when no handoff state is available.
var ErrNothingToPreview = errors.New("nothing to preview")

// Handoff is the state passed from the edit form to the preview step.
type Handoff struct {
	Original domain.Client
	Changes  []FieldChange
	Payload  map[string]any
}

// NewHandoff builds the preview handoff for an edit submission of original.
func NewHandoff(original *domain.Client, sub *Submission) (*Handoff, error) {
	if sub == nil || sub.Mode != ModeEdit || len(sub.Changes) == 0 {
		return nil, ErrNothingToPreview
	}
	return &Handoff{Original: *original, Changes: sub.Changes, Payload: sub.Fields}, nil
}

// HandoffStore keeps edit state between requests under random tokens: the
// client as the edit form first showed it, and handoffs on their way to the
// preview. Entries expire after the TTL; handoffs can be taken once.
type HandoffStore struct {
	mu        sync.Mutex
	lru       *expirable.LRU[string, Handoff]
	snapshots *expirable.LRU[string, domain.Client]
}

// Default handoff store sizing.
const (
	DefaultHandoffSize = 256
	DefaultHandoffTTL  = 10 * time.Minute
)

// NewHandoffStore returns a store holding at most size handoffs for ttl.
func NewHandoffStore(size int, ttl time.Duration) *HandoffStore {
	if size <= 0 {
		size = DefaultHandoffSize
	}
	if ttl <= 0 {
		ttl = DefaultHandoffTTL
	}
	return &HandoffStore{
		lru:       expirable.NewLRU[string, Handoff](size, nil, ttl),
		snapshots: expirable.NewLRU[string, domain.Client](size, nil, ttl),
	}
}

// BeginEdit records c as the edit form shows it and returns the token the
// form posts back. Changes are later tracked against this copy, not against
// whatever is stored when the form is submitted.
func (s *HandoffStore) BeginEdit(c *domain.Client) string {
	token := uuid.NewString()
	s.snapshots.Add(token, cloneClient(c))
	return token
}

// EditSnapshot returns the client recorded by BeginEdit under token. The
// snapshot must belong to client id.
func (s *HandoffStore) EditSnapshot(token string, id uint) (*domain.Client, bool) {
	if token == "" {
		return nil, false
	}
	c, ok := s.snapshots.Peek(token)
	if !ok || c.ID != id {
		return nil, false
	}
	out := cloneClient(&c)
	return &out, true
}

// Put stores h and returns its token.
func (s *HandoffStore) Put(h *Handoff) (string, error) {
	if h == nil || len(h.Changes) == 0 {
		return "", ErrNothingToPreview
	}
	token := uuid.NewString()
	s.lru.Add(token, *h)
	return token, nil
}

// Peek returns the handoff for token without consuming it.
func (s *HandoffStore) Peek(token string) (*Handoff, bool) {
	h, ok := s.lru.Peek(token)
	if !ok {
		return nil, false
	}
	return &h, true
}

// Take returns and removes the handoff for token.
func (s *HandoffStore) Take(token string) (*Handoff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.lru.Get(token)
	if !ok {
		return nil, false
	}
	s.lru.Remove(token)
	return &h, true
}

func (s *HandoffStore) restore(token string, h *Handoff) {
	s.lru.Add(token, *h)
}

// ClientPatcher applies a partial client update.
type ClientPatcher interface {
	PatchClient(ctx context.Context, id uint, fields map[string]any) (*domain.Client, error)
}

// PreviewRow is one before/after line of the review table.
type PreviewRow struct {
	Field string
	Label string
	Old   string
	New   string
}

// Preview is an opened review of pending changes.
type Preview struct {
	store   *HandoffStore
	token   string
	handoff *Handoff
}

// NewPreview opens a preview over an in-memory handoff.
func NewPreview(h *Handoff) (*Preview, error) {
	if h == nil || len(h.Changes) == 0 {
		return nil, ErrNothingToPreview
	}
	return &Preview{handoff: h}, nil
}

// OpenPreview opens the preview stored under token.
func OpenPreview(store *HandoffStore, token string) (*Preview, error) {
	if store == nil || token == "" {
		return nil, ErrNothingToPreview
	}
	h, ok := store.Peek(token)
	if !ok || len(h.Changes) == 0 {
		return nil, ErrNothingToPreview
	}
	return &Preview{store: store, token: token, handoff: h}, nil
}

// Token returns the store token, "" for in-memory previews.
func (p *Preview) Token() string { return p.token }

// Original returns the client as it was when editing began.
func (p *Preview) Original() domain.Client { return p.handoff.Original }

// Changes returns the pending changes.
func (p *Preview) Changes() []FieldChange { return p.handoff.Changes }

// Rows renders the pending changes for display.
func (p *Preview) Rows() []PreviewRow {
	rows := make([]PreviewRow, 0, len(p.handoff.Changes))
	for _, c := range p.handoff.Changes {
		rows = append(rows, PreviewRow{
			Field: c.Field,
			Label: FieldLabel(c.Field),
			Old:   FormatValue(c.OldValue),
			New:   FormatValue(c.NewValue),
		})
	}
	return rows
}

// Back abandons the preview and returns the id of the client to edit.
func (p *Preview) Back() uint {
	if p.store != nil {
		p.store.Take(p.token)
	}
	return p.handoff.Original.ID
}

// Confirm sends the pending update. On failure the preview stays available
// so the operator can retry or go back.
func (p *Preview) Confirm(ctx context.Context, patcher ClientPatcher) (*domain.Client, string, error) {
	h := p.handoff
	if p.store != nil {
		taken, ok := p.store.Take(p.token)
		if !ok {
			return nil, "", ErrNothingToPreview
		}
		h = taken
	}
	fields := make(map[string]any, len(h.Payload))
	for k, v := range h.Payload {
		if k != "id" {
			fields[k] = v
		}
	}
	updated, err := patcher.PatchClient(ctx, h.Original.ID, fields)
	if err != nil {
		if p.store != nil {
			p.store.restore(p.token, h)
		}
		return nil, "", err
	}
	return updated, UpdatedMessage, nil
}

// FormatValue renders a tracked value for display.
func FormatValue(v any) string {
	switch x := normalize(v).(type) {
	case nil:
		return "(empty)"
	case string:
		return x
	case domain.Date:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
