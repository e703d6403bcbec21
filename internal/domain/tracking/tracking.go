package tracking

import (
	"strings"

	"github.com/google/uuid"
)

// Trackable is the capability every entity exposes so that a change applier
// can treat heterogeneous entity types uniformly.
type Trackable interface {
	TrackingInfo() *Tracking
}

// Navigable is a Trackable that can list the entities it references
// directly, through reference or collection navigation properties.
type Navigable interface {
	Trackable
	Neighbors() []Trackable
}

// Tracking is the runtime-only metadata carried by every entity. It is never
// persisted; entities embed it with a storage-ignore tag.
type Tracking struct {
	TrackingState      State     `json:"trackingState"`
	ModifiedProperties []string  `json:"modifiedProperties"`
	EntityIdentifier   uuid.UUID `json:"entityIdentifier"`
}

func (t *Tracking) TrackingInfo() *Tracking { return t }

// EnsureIdentifier assigns a random identifier when none is set and returns
// the (possibly pre-existing) value. An existing identifier is never replaced.
func (t *Tracking) EnsureIdentifier() uuid.UUID {
	if t.EntityIdentifier == uuid.Nil {
		t.EntityIdentifier = uuid.New()
	}
	return t.EntityIdentifier
}

func (t *Tracking) MarkAdded() {
	t.TrackingState = Added
	t.ModifiedProperties = nil
}

// MarkModified records changed properties. Added and Deleted entities keep
// their state; the property list only matters for Modified ones.
func (t *Tracking) MarkModified(props ...string) {
	switch t.TrackingState {
	case Added, Deleted:
		return
	}
	t.TrackingState = Modified
	for _, p := range props {
		p = strings.TrimSpace(p)
		if p == "" || t.IsModified(p) {
			continue
		}
		t.ModifiedProperties = append(t.ModifiedProperties, p)
	}
}

func (t *Tracking) MarkDeleted() {
	t.TrackingState = Deleted
	t.ModifiedProperties = nil
}

// AcceptChanges resets the entity to Unchanged after a successful save.
func (t *Tracking) AcceptChanges() {
	t.TrackingState = Unchanged
	t.ModifiedProperties = nil
}

func (t *Tracking) HasChanges() bool {
	return t.TrackingState != Unchanged
}

// IsModified reports whether prop is listed, ignoring case.
func (t *Tracking) IsModified(prop string) bool {
	for _, p := range t.ModifiedProperties {
		if strings.EqualFold(p, prop) {
			return true
		}
	}
	return false
}
