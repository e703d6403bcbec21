// Package changes models the audit trail of applied entity changes and the
// notice published once a batch of changes commits.
package changes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
)

// LogEntry records one entity change applied by a graph save. Every entry
// written by the same save shares a BatchID.
type LogEntry struct {
	ID               int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BatchID          uuid.UUID      `gorm:"column:batch_id;type:uuid;not null;index" json:"batchId"`
	EntityType       string         `gorm:"column:entity_type;not null;index:idx_change_log_entity,priority:1" json:"entityType"`
	EntityKey        string         `gorm:"column:entity_key;not null;index:idx_change_log_entity,priority:2" json:"entityKey"`
	EntityIdentifier uuid.UUID      `gorm:"column:entity_identifier;type:uuid" json:"entityIdentifier"`
	State            tracking.State `gorm:"column:state;not null" json:"state"`
	Properties       datatypes.JSON `gorm:"column:properties" json:"properties"`
	CreatedAt        time.Time      `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

func (LogEntry) TableName() string { return "change_log" }

// NewLogEntry builds an entry for a change. props is stored as a JSON array
// and is only kept for Modified changes.
func NewLogEntry(batch uuid.UUID, entityType, key string, id uuid.UUID, state tracking.State, props []string) LogEntry {
	if state != tracking.Modified || props == nil {
		props = []string{}
	}
	raw, _ := json.Marshal(props)
	return LogEntry{
		BatchID:          batch,
		EntityType:       entityType,
		EntityKey:        key,
		EntityIdentifier: id,
		State:            state,
		Properties:       datatypes.JSON(raw),
	}
}

// PropertyList decodes Properties. Malformed payloads yield nil.
func (e LogEntry) PropertyList() []string {
	if len(e.Properties) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(e.Properties, &out); err != nil {
		return nil
	}
	return out
}

// Notice is the payload published after a save commits.
type Notice struct {
	BatchID     uuid.UUID      `json:"batchId"`
	CommittedAt time.Time      `json:"committedAt"`
	Changes     []NoticeChange `json:"changes"`
}

type NoticeChange struct {
	EntityType       string         `json:"entityType"`
	EntityKey        string         `json:"entityKey"`
	EntityIdentifier uuid.UUID      `json:"entityIdentifier"`
	State            tracking.State `json:"state"`
	Properties       []string       `json:"properties,omitempty"`
}

// NoticeFor summarizes committed entries. It returns false when there is
// nothing to announce.
func NoticeFor(batch uuid.UUID, committedAt time.Time, entries []LogEntry) (Notice, bool) {
	if len(entries) == 0 {
		return Notice{}, false
	}
	n := Notice{BatchID: batch, CommittedAt: committedAt.UTC(), Changes: make([]NoticeChange, 0, len(entries))}
	for _, e := range entries {
		n.Changes = append(n.Changes, NoticeChange{
			EntityType:       e.EntityType,
			EntityKey:        e.EntityKey,
			EntityIdentifier: e.EntityIdentifier,
			State:            e.State,
			Properties:       e.PropertyList(),
		})
	}
	return n, true
}
