package console

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simp-lee/bankoffice/internal/domain"
)

func snapshotFixture() map[string]any {
	dob, _ := domain.ParseDate("1990-01-15")
	return map[string]any{
		"name":        "John",
		"surname":     "Doe",
		"city":        "Casablanca",
		"phone":       "",
		"dateOfBirth": &dob,
	}
}

func TestTracker_RecordAndRevert(t *testing.T) {
	tr := NewTracker(snapshotFixture())

	tr.RecordEdit("name", "Jon")
	assert.Equal(t, 1, tr.Count())
	c, ok := tr.Change("name")
	assert.True(t, ok)
	assert.Equal(t, "John", c.OldValue)
	assert.Equal(t, "Jon", c.NewValue)

	tr.RecordEdit("name", "John")
	assert.Equal(t, 0, tr.Count())
	assert.False(t, tr.Has("name"))
}

func TestTracker_RepeatedEditKeepsOriginalOldValue(t *testing.T) {
	tr := NewTracker(snapshotFixture())
	tr.RecordEdit("city", "Rabat")
	tr.RecordEdit("city", "Fes")

	assert.Equal(t, []FieldChange{{Field: "city", OldValue: "Casablanca", NewValue: "Fes"}}, tr.Changes())
}

func TestTracker_OrderIsFirstRecorded(t *testing.T) {
	tr := NewTracker(snapshotFixture())
	tr.RecordEdit("surname", "Smith")
	tr.RecordEdit("name", "Jane")
	tr.RecordEdit("surname", "Smyth")

	changes := tr.Changes()
	assert.Equal(t, "surname", changes[0].Field)
	assert.Equal(t, "name", changes[1].Field)
}

func TestTracker_Normalization(t *testing.T) {
	tr := NewTracker(snapshotFixture())

	tr.RecordEdit("phone", "   ")
	tr.RecordEdit("name", " John ")
	tr.RecordEdit("dateOfBirth", "1990-01-15")
	assert.Equal(t, 0, tr.Count(), "equivalent representations are not changes")

	tr.RecordEdit("dateOfBirth", "1990-01-16")
	assert.True(t, tr.Has("dateOfBirth"))
}

func TestTracker_Payload(t *testing.T) {
	tr := NewTracker(snapshotFixture())
	tr.RecordEdit("city", "Rabat")
	tr.RecordEdit("surname", "")

	assert.Equal(t, map[string]any{"id": uint(7), "city": "Rabat", "surname": nil}, tr.Payload(7))
}

func TestTracker_SnapshotIsCopied(t *testing.T) {
	snap := snapshotFixture()
	tr := NewTracker(snap)
	snap["name"] = "Mutated"

	tr.RecordEdit("name", "John")
	assert.Equal(t, 0, tr.Count())
	assert.Equal(t, "John", tr.Snapshot("name"))
}

func TestTracker_Discard(t *testing.T) {
	tr := NewTracker(snapshotFixture())
	tr.RecordEdit("city", "Rabat")
	tr.Discard()
	assert.Equal(t, 0, tr.Count())
	assert.Equal(t, map[string]any{"id": uint(1)}, tr.Payload(1))
}

func TestTracker_ChangesAreCopies(t *testing.T) {
	tr := NewTracker(snapshotFixture())
	tr.RecordEdit("city", "Rabat")
	changes := tr.Changes()
	changes[0].NewValue = "Tangier"

	c, _ := tr.Change("city")
	assert.Equal(t, "Rabat", c.NewValue)
}
