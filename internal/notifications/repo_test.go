package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	notifications := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  recipient_id TEXT NOT NULL,
  recipient_role TEXT NOT NULL,
  event_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(notifications).Error)
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, recipientID uuid.UUID, created time.Time, readAt *time.Time) *models.Notification {
	t.Helper()

	note := &models.Notification{
		ID:            uuid.New(),
		RecipientID:   recipientID,
		RecipientRole: enums.UserRoleBuyer,
		EventID:       uuid.New(),
		OrderID:       uuid.New(),
		Type:          enums.NotificationTypeOrderApproved,
		Title:         "Order updated",
		Message:       "Your order is now approved.",
		ReadAt:        readAt,
		CreatedAt:     created,
	}
	require.NoError(t, db.Create(note).Error)
	return note
}

func TestRepositoryListPaginates(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	recipientID := uuid.New()
	now := time.Now().UTC()
	older := seedNotification(t, db, recipientID, now.Add(-time.Hour), nil)
	newer := seedNotification(t, db, recipientID, now, nil)
	seedNotification(t, db, uuid.New(), now, nil)

	rows, cursor, err := repo.List(context.Background(), listNotificationsParams{
		RecipientID: recipientID,
		Limit:       1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, newer.ID, rows[0].ID)
	require.NotNil(t, cursor)

	second, cursor, err := repo.List(context.Background(), listNotificationsParams{
		RecipientID: recipientID,
		Limit:       1,
		Cursor:      cursor,
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, older.ID, second[0].ID)
	assert.Nil(t, cursor)
}

func TestRepositoryListUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	recipientID := uuid.New()
	now := time.Now().UTC()
	read := now.Add(-time.Minute)
	seedNotification(t, db, recipientID, now.Add(-time.Hour), &read)
	unread := seedNotification(t, db, recipientID, now, nil)

	rows, _, err := repo.List(context.Background(), listNotificationsParams{
		RecipientID: recipientID,
		Limit:       10,
		UnreadOnly:  true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)
}

func TestRepositoryUnreadCount(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	recipientID := uuid.New()
	now := time.Now().UTC()
	read := now.Add(-time.Minute)
	seedNotification(t, db, recipientID, now.Add(-time.Hour), &read)
	seedNotification(t, db, recipientID, now, nil)
	seedNotification(t, db, recipientID, now, nil)

	count, err := repo.UnreadCount(context.Background(), recipientID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryMarkRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	recipientID := uuid.New()
	note := seedNotification(t, db, recipientID, time.Now().UTC(), nil)

	mark, err := repo.MarkRead(context.Background(), recipientID, note.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	again, err := repo.MarkRead(context.Background(), recipientID, note.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, again.Found)
	assert.False(t, again.Updated)

	missing, err := repo.MarkRead(context.Background(), recipientID, uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, missing.Found)
}

func TestRepositoryMarkAllRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	recipientID := uuid.New()
	now := time.Now().UTC()
	seedNotification(t, db, recipientID, now.Add(-time.Hour), nil)
	seedNotification(t, db, recipientID, now, nil)

	updated, err := repo.MarkAllRead(context.Background(), recipientID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	count, err := repo.UnreadCount(context.Background(), recipientID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepositoryDeleteReadBefore(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	recipientID := uuid.New()
	now := time.Now().UTC()
	read := now.Add(-48 * time.Hour)
	seedNotification(t, db, recipientID, now.Add(-72*time.Hour), &read)
	seedNotification(t, db, recipientID, now.Add(-72*time.Hour), nil)
	seedNotification(t, db, recipientID, now, &read)

	deleted, err := repo.DeleteReadBefore(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
