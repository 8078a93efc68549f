package models

import "time"

// DeliveryState is the target state of a receipt transition.
type DeliveryState string

const (
	StateDelivered DeliveryState = "delivered"
	StateRead      DeliveryState = "read"
)

// DeliveryStatus is the per-recipient receipt for one message. Exactly one
// row exists per (message, participant-at-send-time) pair. Timestamps are set
// once and never cleared; read implies delivered.
type DeliveryStatus struct {
	MessageID   int64      `db:"message_id" json:"message_id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at"`
	ReadAt      *time.Time `db:"read_at" json:"read_at"`
}

// NeedsDeliveryUpdate reports whether the viewer should acknowledge delivery
// of the message: it is someone else's message and no delivery timestamp has
// been recorded for the viewer yet.
func NeedsDeliveryUpdate(msg Message, viewerID int64, status *DeliveryStatus) bool {
	if msg.SenderID == viewerID {
		return false
	}
	return status == nil || status.DeliveredAt == nil
}
