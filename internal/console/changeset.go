package console

import (
	"reflect"
	"strings"
	"time"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// FieldChange is one edited field: its snapshot value and its current value.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// Tracker records the fields whose current value differs from a snapshot
// taken when editing began. Reverting a field to its snapshot value removes
// it from the change set. Order is first-recorded.
type Tracker struct {
	snapshot map[string]any
	changes  []FieldChange
}

// NewTracker starts tracking against snapshot. The snapshot is copied.
func NewTracker(snapshot map[string]any) *Tracker {
	s := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		s[k] = normalize(v)
	}
	return &Tracker{snapshot: s}
}

// RecordEdit notes that field now holds value.
func (t *Tracker) RecordEdit(field string, value any) {
	value = normalize(value)
	old := t.snapshot[field]
	if _, isDate := old.(domain.Date); isDate {
		if s, ok := value.(string); ok {
			if d, err := domain.ParseDate(s); err == nil {
				value = d
			}
		}
	}
	idx := t.index(field)

	if equalValues(old, value) {
		if idx >= 0 {
			t.changes = append(t.changes[:idx], t.changes[idx+1:]...)
		}
		return
	}
	if idx >= 0 {
		t.changes[idx].NewValue = value
		return
	}
	t.changes = append(t.changes, FieldChange{Field: field, OldValue: old, NewValue: value})
}

func (t *Tracker) index(field string) int {
	for i, c := range t.changes {
		if c.Field == field {
			return i
		}
	}
	return -1
}

// Changes returns a copy of the current change set.
func (t *Tracker) Changes() []FieldChange {
	out := make([]FieldChange, len(t.changes))
	copy(out, t.changes)
	return out
}

// Count returns the number of changed fields.
func (t *Tracker) Count() int { return len(t.changes) }

// Has reports whether field is in the change set.
func (t *Tracker) Has(field string) bool { return t.index(field) >= 0 }

// Change returns the entry for field.
func (t *Tracker) Change(field string) (FieldChange, bool) {
	if i := t.index(field); i >= 0 {
		return t.changes[i], true
	}
	return FieldChange{}, false
}

// Payload returns the partial update for entity id: the id plus each changed
// field's new value. Untouched fields are absent; a nil value clears a field.
func (t *Tracker) Payload(id uint) map[string]any {
	p := make(map[string]any, len(t.changes)+1)
	p["id"] = id
	for _, c := range t.changes {
		p[c.Field] = c.NewValue
	}
	return p
}

// Discard drops every recorded change.
func (t *Tracker) Discard() { t.changes = nil }

// Snapshot returns the value field held when tracking began.
func (t *Tracker) Snapshot(field string) any { return t.snapshot[field] }

// normalize folds the representations a field can arrive in so that equal
// values compare equal: strings are trimmed and blank means nil, pointers are
// dereferenced and dates collapse to domain.Date.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return nil
		}
		return x
	case *string:
		if x == nil {
			return nil
		}
		return normalize(*x)
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *int:
		if x == nil {
			return nil
		}
		return *x
	case domain.Date:
		if x.IsZero() {
			return nil
		}
		return x
	case *domain.Date:
		if x == nil {
			return nil
		}
		return normalize(*x)
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return domain.NewDate(x)
	}
	return v
}

func equalValues(a, b any) bool {
	if da, ok := a.(domain.Date); ok {
		db, ok := b.(domain.Date)
		return ok && da.Equal(db)
	}
	return reflect.DeepEqual(a, b)
}
