package models

import "time"

// Message is an immutable, append-only entry in a thread. The id is assigned
// by the database sequence and doubles as the pagination cursor.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	ThreadID  int64     `db:"thread_id" json:"thread_id"`
	SenderID  int64     `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageWithStatus joins a message with the viewer's own delivery receipt.
// Other recipients' receipts are never exposed.
type MessageWithStatus struct {
	Message
	DeliveredAt         *time.Time `json:"delivered_at"`
	ReadAt              *time.Time `json:"read_at"`
	NeedsDeliveryUpdate bool       `json:"needs_delivery_update"`
}

// ThreadEvent is broadcasted through websockets.
type ThreadEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}
