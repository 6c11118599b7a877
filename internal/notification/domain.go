package notification

import (
	"time"

	"github.com/google/uuid"
)

// Categories distinguish routine messages from collection calls and
// manager broadcasts.
const (
	CategoryGeneral    = "General"
	CategoryCollection = "Collection"
	CategoryBroadcast  = "Broadcast"
)

// Notification is one message produced by the engine for a user. The
// engine only writes these; delivery is someone else's job.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
