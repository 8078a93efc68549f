package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"meetup-chat-service/internal/models"
	"meetup-chat-service/internal/observability"
)

var (
	ErrMessageNotFound      = errors.New("message not found")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrSenderNotParticipant = errors.New("sender is not a thread participant")
)

// DefaultPageLimit is applied when the caller does not bound the page.
const DefaultPageLimit = 50

// MaxPageLimit caps a single page.
const MaxPageLimit = 200

// MessageRepository defines interactions with the append-only message log.
type MessageRepository interface {
	Append(ctx context.Context, threadID int64, senderID int64, content string) (models.Message, error)
	Page(ctx context.Context, threadID int64, limit int, before int64) ([]models.Message, bool, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message and fans out one receipt row per participant in a
// single transaction. The participant snapshot is read inside the transaction
// so membership changes during the send cannot split the receipt set, and a
// reader can never observe the message without its receipts. The sender's own
// row is pre-marked delivered and read at the message timestamp.
func (r *MessageRepo) Append(ctx context.Context, threadID int64, senderID int64, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyContent
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var participantIDs []int64
	if err = tx.SelectContext(ctx, &participantIDs,
		`SELECT user_id FROM thread_participants WHERE thread_id=$1 ORDER BY user_id`, threadID); err != nil {
		return models.Message{}, err
	}

	sender := false
	for _, id := range participantIDs {
		if id == senderID {
			sender = true
			break
		}
	}
	if !sender {
		err = ErrSenderNotParticipant
		return models.Message{}, err
	}

	var msg models.Message
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (thread_id, sender_id, content) VALUES ($1, $2, $3)
         RETURNING id, thread_id, sender_id, content, created_at`,
		threadID, senderID, content,
	).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE threads SET last_message_at=$2 WHERE id=$1 AND last_message_at < $2`,
		threadID, msg.CreatedAt); err != nil {
		return models.Message{}, err
	}

	for _, userID := range participantIDs {
		if userID == senderID {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO message_statuses (message_id, user_id, delivered_at, read_at) VALUES ($1, $2, $3, $3)`,
				msg.ID, userID, msg.CreatedAt)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO message_statuses (message_id, user_id) VALUES ($1, $2)`,
				msg.ID, userID)
		}
		if err != nil {
			return models.Message{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}
	observability.ObserveFanoutSize(len(participantIDs))
	return msg, nil
}

// Page returns up to limit messages newest-first, strictly older than the
// before cursor when one is given (before=0 means the newest page). The
// cursor is an immutable message id, so concurrent appends can never skip or
// duplicate a message within one cursor chain.
func (r *MessageRepo) Page(ctx context.Context, threadID int64, limit int, before int64) ([]models.Message, bool, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	msgs := make([]models.Message, 0, limit+1)
	var err error
	if before > 0 {
		err = r.db.SelectContext(ctx, &msgs,
			`SELECT id, thread_id, sender_id, content, created_at
             FROM messages WHERE thread_id=$1 AND id < $2
             ORDER BY id DESC LIMIT $3`,
			threadID, before, limit+1)
	} else {
		err = r.db.SelectContext(ctx, &msgs,
			`SELECT id, thread_id, sender_id, content, created_at
             FROM messages WHERE thread_id=$1
             ORDER BY id DESC LIMIT $2`,
			threadID, limit+1)
	}
	if err != nil {
		return nil, false, err
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	return msgs, hasMore, nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, thread_id, sender_id, content, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
