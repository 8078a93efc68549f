package models

import "time"

// Thread represents the chat conversation bound to exactly one meetup.
type Thread struct {
	ID            int64     `db:"id" json:"id"`
	MeetupID      string    `db:"meetup_id" json:"meetup_id"`
	Name          string    `db:"name" json:"name"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
}

// ThreadSummary provides the API-friendly view of a thread for the chat list.
type ThreadSummary struct {
	ThreadID      int64     `db:"id" json:"thread_id"`
	MeetupID      string    `db:"meetup_id" json:"meetup_id"`
	Name          string    `db:"name" json:"name"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
}

// Participant is a member of a thread and thus a valid sender/recipient.
type Participant struct {
	ThreadID int64     `db:"thread_id" json:"thread_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
