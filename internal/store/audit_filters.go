package store

import (
	"time"

	"github.com/VatsalPandya47/taskmind/internal/models"
)

// AuditLogFilters contains filter criteria for querying audit logs
type AuditLogFilters struct {
	EventType   models.EventType `json:"event_type,omitempty"`
	ActorUserID string           `json:"actor_user_id,omitempty"`
	Provider    string           `json:"provider,omitempty"`
	Success     *bool            `json:"success,omitempty"`
	StartTime   time.Time        `json:"start_time,omitzero"`
	EndTime     time.Time        `json:"end_time,omitzero"`
}
