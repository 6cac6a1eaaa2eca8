package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Effect channels the outbox can redeliver on.
const (
	ChannelRealtime     = "realtime"
	ChannelNotification = "notification"
	ChannelScore        = "score"
)

// Item is one undelivered best-effort effect. The primary operation that
// produced it has already committed; the outbox only retries delivery.
type Item struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = 3
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
