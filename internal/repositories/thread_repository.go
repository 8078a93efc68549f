package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"meetup-chat-service/internal/models"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrThreadExists   = errors.New("thread already exists for meetup")
)

// ThreadRepository abstracts thread lifecycle and membership persistence.
type ThreadRepository interface {
	CreateThread(ctx context.Context, meetupID string, name string, participantIDs []int64) (models.Thread, error)
	GetThread(ctx context.Context, threadID int64) (models.Thread, error)
	GetThreadForMeetup(ctx context.Context, meetupID string) (models.Thread, error)
	AddParticipant(ctx context.Context, threadID int64, userID int64) error
	IsParticipant(ctx context.Context, threadID int64, userID int64) (bool, error)
	Participants(ctx context.Context, threadID int64) ([]int64, error)
	TouchActivity(ctx context.Context, threadID int64, at time.Time) error
	ListThreadsForUser(ctx context.Context, userID int64) ([]models.ThreadSummary, error)
	DeleteThreadForMeetup(ctx context.Context, meetupID string) error
}

// ThreadRepo is a sqlx implementation of ThreadRepository.
type ThreadRepo struct {
	db *sqlx.DB
}

// NewThreadRepo constructs a ThreadRepo.
func NewThreadRepo(db *sqlx.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

// CreateThread creates the thread bound to a meetup together with its initial
// participant set. At most one thread may exist per meetup.
func (r *ThreadRepo) CreateThread(ctx context.Context, meetupID string, name string, participantIDs []int64) (models.Thread, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Thread{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var thread models.Thread
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO threads (meetup_id, name) VALUES ($1, $2)
         RETURNING id, meetup_id, name, created_at, last_message_at`,
		meetupID, name,
	).StructScan(&thread); err != nil {
		if isUniqueViolation(err) {
			err = ErrThreadExists
		}
		return models.Thread{}, err
	}

	// dedupe members
	memberSet := map[int64]struct{}{}
	for _, id := range participantIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int64, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO thread_participants (thread_id, user_id) VALUES ($1, $2)`,
			thread.ID, id,
		); err != nil {
			return models.Thread{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}

// GetThread fetches a thread by id.
func (r *ThreadRepo) GetThread(ctx context.Context, threadID int64) (models.Thread, error) {
	var thread models.Thread
	err := r.db.GetContext(ctx, &thread,
		`SELECT id, meetup_id, name, created_at, last_message_at FROM threads WHERE id=$1`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, ErrThreadNotFound
	}
	return thread, err
}

// GetThreadForMeetup resolves the thread bound to a meetup.
func (r *ThreadRepo) GetThreadForMeetup(ctx context.Context, meetupID string) (models.Thread, error) {
	var thread models.Thread
	err := r.db.GetContext(ctx, &thread,
		`SELECT id, meetup_id, name, created_at, last_message_at FROM threads WHERE meetup_id=$1`, meetupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Thread{}, ErrThreadNotFound
	}
	return thread, err
}

// AddParticipant adds a user to the thread. Idempotent: adding an existing
// member is a no-op. Receipts for messages sent before the join are not
// materialized; the new member only fans out from this point forward.
func (r *ThreadRepo) AddParticipant(ctx context.Context, threadID int64, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO thread_participants (thread_id, user_id) VALUES ($1, $2)
         ON CONFLICT (thread_id, user_id) DO NOTHING`,
		threadID, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrThreadNotFound
		}
		return err
	}
	_, err = res.RowsAffected()
	return err
}

// IsParticipant checks whether a user belongs to the thread.
func (r *ThreadRepo) IsParticipant(ctx context.Context, threadID int64, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM thread_participants WHERE thread_id=$1 AND user_id=$2)`,
		threadID, userID)
	return exists, err
}

// Participants returns the current member ids of a thread.
func (r *ThreadRepo) Participants(ctx context.Context, threadID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM thread_participants WHERE thread_id=$1 ORDER BY user_id`, threadID)
	return ids, err
}

// TouchActivity advances the thread's last-activity clock. Timestamps older
// than the current value are ignored so the clock never moves backward.
func (r *ThreadRepo) TouchActivity(ctx context.Context, threadID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE threads SET last_message_at=$2 WHERE id=$1 AND last_message_at < $2`,
		threadID, at)
	return err
}

// ListThreadsForUser returns thread summaries for the user's chat list,
// most recently active first.
func (r *ThreadRepo) ListThreadsForUser(ctx context.Context, userID int64) ([]models.ThreadSummary, error) {
	var summaries []models.ThreadSummary
	err := r.db.SelectContext(ctx, &summaries,
		`SELECT t.id, t.meetup_id, t.name, t.last_message_at
         FROM threads t
         INNER JOIN thread_participants tp ON tp.thread_id = t.id
         WHERE tp.user_id=$1
         ORDER BY t.last_message_at DESC`,
		userID)
	return summaries, err
}

// DeleteThreadForMeetup removes the thread bound to a meetup. Messages,
// participants and receipts cascade with it.
func (r *ThreadRepo) DeleteThreadForMeetup(ctx context.Context, meetupID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM threads WHERE meetup_id=$1`, meetupID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrThreadNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
