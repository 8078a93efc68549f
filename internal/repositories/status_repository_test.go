package repositories

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup-chat-service/internal/models"
)

var statusColumns = []string{"message_id", "user_id", "delivered_at", "read_at"}

func TestAdvanceReadBackfillsDelivery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
		WithArgs(int64(9), int64(1), now, true).
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow(int64(9), int64(1), now, now))

	status, err := repo.Advance(context.Background(), 9, 1, models.StateRead, now)
	require.NoError(t, err)
	require.NotNil(t, status.DeliveredAt)
	require.NotNil(t, status.ReadAt)
	assert.Equal(t, *status.DeliveredAt, *status.ReadAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceDeliveredLeavesReadUntouched(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
		WithArgs(int64(9), int64(1), now, false).
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow(int64(9), int64(1), now, nil))

	status, err := repo.Advance(context.Background(), 9, 1, models.StateDelivered, now)
	require.NoError(t, err)
	assert.NotNil(t, status.DeliveredAt)
	assert.Nil(t, status.ReadAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceKeepsEarlierTimestamps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	earlier := time.Now().UTC().Add(-time.Hour)
	now := time.Now().UTC()

	// the row was already read an hour ago; re-applying delivered must not
	// regress either timestamp
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
		WithArgs(int64(9), int64(1), now, false).
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow(int64(9), int64(1), earlier, earlier))

	status, err := repo.Advance(context.Background(), 9, 1, models.StateDelivered, now)
	require.NoError(t, err)
	assert.Equal(t, earlier, *status.DeliveredAt)
	assert.Equal(t, earlier, *status.ReadAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
		WithArgs(int64(9), int64(1), now, true).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Advance(context.Background(), 9, 1, models.StateRead, now)
	require.ErrorIs(t, err, ErrStatusNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceRetriesSerializationFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
		WithArgs(int64(9), int64(1), now, true).
		WillReturnError(&pq.Error{Code: "40001"})
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
		WithArgs(int64(9), int64(1), now, true).
		WillReturnRows(sqlmock.NewRows(statusColumns).AddRow(int64(9), int64(1), now, now))

	status, err := repo.Advance(context.Background(), 9, 1, models.StateRead, now)
	require.NoError(t, err)
	assert.NotNil(t, status.ReadAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceConflictAfterRetriesExhausted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
			WithArgs(int64(9), int64(1), now, true).
			WillReturnError(&pq.Error{Code: "40001"})
	}

	_, err := repo.Advance(context.Background(), 9, 1, models.StateRead, now)
	require.ErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceDoesNotRetryOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE message_statuses`)).
		WithArgs(int64(9), int64(1), now, true).
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := repo.Advance(context.Background(), 9, 1, models.StateRead, now)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStatusConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusesForMessages(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND message_id IN ($2, $3)`)).
		WithArgs(int64(1), int64(4), int64(3)).
		WillReturnRows(sqlmock.NewRows(statusColumns).
			AddRow(int64(3), int64(1), now, nil))

	statuses, err := repo.StatusesForMessages(context.Background(), 1, []int64{4, 3})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.NotNil(t, statuses[3].DeliveredAt)
	_, ok := statuses[4]
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusesForMessagesEmptyPage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)

	statuses, err := repo.StatusesForMessages(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, statuses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillMissingCountsInserted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatusRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO message_statuses (message_id, user_id, delivered_at, read_at)`)).
		WillReturnResult(sqlmock.NewResult(0, 12))

	created, err := repo.BackfillMissing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), created)
	require.NoError(t, mock.ExpectationsWereMet())
}
