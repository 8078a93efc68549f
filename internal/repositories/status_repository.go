package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"meetup-chat-service/internal/models"
	"meetup-chat-service/internal/observability"
)

var (
	ErrStatusNotFound = errors.New("message status not found")
	ErrStatusConflict = errors.New("message status write conflict")
)

const (
	advanceAttempts = 3
	advanceBackoff  = 50 * time.Millisecond
)

// StatusRepository tracks per-recipient delivery receipts.
type StatusRepository interface {
	Advance(ctx context.Context, messageID int64, userID int64, state models.DeliveryState, now time.Time) (models.DeliveryStatus, error)
	StatusFor(ctx context.Context, messageID int64, userID int64) (*models.DeliveryStatus, error)
	StatusesForMessages(ctx context.Context, viewerID int64, messageIDs []int64) (map[int64]models.DeliveryStatus, error)
	BackfillMissing(ctx context.Context) (int64, error)
}

// StatusRepo is a sqlx implementation of StatusRepository.
type StatusRepo struct {
	db *sqlx.DB
}

// NewStatusRepo constructs a StatusRepo.
func NewStatusRepo(db *sqlx.DB) *StatusRepo {
	return &StatusRepo{db: db}
}

// Advance moves the receipt for (message, user) forward. Transitions are
// monotonic and idempotent: timestamps are set at most once, re-applying the
// same or a lower state never regresses, and marking read backfills the
// delivery timestamp. A single UPDATE does the whole transition so concurrent
// calls for the same pair serialize on the row; transient serialization
// failures are retried a bounded number of times before surfacing a conflict.
func (r *StatusRepo) Advance(ctx context.Context, messageID int64, userID int64, state models.DeliveryState, now time.Time) (models.DeliveryStatus, error) {
	markRead := state == models.StateRead

	var status models.DeliveryStatus
	var err error
	for attempt := 1; attempt <= advanceAttempts; attempt++ {
		err = r.db.QueryRowxContext(ctx,
			`UPDATE message_statuses
             SET delivered_at = COALESCE(delivered_at, $3),
                 read_at = CASE WHEN $4 THEN COALESCE(read_at, $3) ELSE read_at END
             WHERE message_id=$1 AND user_id=$2
             RETURNING message_id, user_id, delivered_at, read_at`,
			messageID, userID, now, markRead,
		).StructScan(&status)
		if err == nil {
			return status, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeliveryStatus{}, ErrStatusNotFound
		}
		if !isSerializationFailure(err) {
			return models.DeliveryStatus{}, err
		}
		observability.IncReceiptConflict()
		select {
		case <-ctx.Done():
			return models.DeliveryStatus{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * advanceBackoff):
		}
	}
	return models.DeliveryStatus{}, ErrStatusConflict
}

// StatusFor fetches the viewer's receipt for one message, nil when absent.
func (r *StatusRepo) StatusFor(ctx context.Context, messageID int64, userID int64) (*models.DeliveryStatus, error) {
	var status models.DeliveryStatus
	err := r.db.GetContext(ctx, &status,
		`SELECT message_id, user_id, delivered_at, read_at FROM message_statuses WHERE message_id=$1 AND user_id=$2`,
		messageID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// StatusesForMessages fetches the viewer's receipts for a page of messages in
// one round trip, keyed by message id.
func (r *StatusRepo) StatusesForMessages(ctx context.Context, viewerID int64, messageIDs []int64) (map[int64]models.DeliveryStatus, error) {
	result := make(map[int64]models.DeliveryStatus, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(
		`SELECT message_id, user_id, delivered_at, read_at FROM message_statuses WHERE user_id = ? AND message_id IN (?)`,
		viewerID, messageIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var statuses []models.DeliveryStatus
	if err := r.db.SelectContext(ctx, &statuses, query, args...); err != nil {
		return nil, err
	}
	for _, s := range statuses {
		result[s.MessageID] = s
	}
	return result, nil
}

// BackfillMissing repairs receipt rows that went missing for participants who
// were already members when the message was sent. Late joiners are excluded:
// membership gained after a message never earns a receipt for it. The
// sender's repaired rows are pre-marked from the message timestamp.
func (r *StatusRepo) BackfillMissing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_statuses (message_id, user_id, delivered_at, read_at)
         SELECT m.id, tp.user_id,
                CASE WHEN tp.user_id = m.sender_id THEN m.created_at END,
                CASE WHEN tp.user_id = m.sender_id THEN m.created_at END
         FROM messages m
         INNER JOIN thread_participants tp ON tp.thread_id = m.thread_id
         WHERE tp.joined_at <= m.created_at
         ON CONFLICT (message_id, user_id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
