package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/driftlinehq/driftline/backend/internal/models"
)

func setupNotificationRepo(t *testing.T) NotificationRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return NewPostgresNotificationRepository(db)
}

func seedNotification(t *testing.T, repo NotificationRepository, recipientID, actorID uint, action string, createdAt time.Time) *models.Notification {
	t.Helper()
	n := &models.Notification{
		RecipientID:    recipientID,
		ActorID:        actorID,
		Action:         action,
		NotifiableType: "micropost",
		NotifiableID:   "abc",
		CreatedAt:      createdAt,
	}
	require.NoError(t, repo.CreateNotification(n))
	return n
}

func TestCreateNotificationValidation(t *testing.T) {
	repo := setupNotificationRepo(t)

	err := repo.CreateNotification(&models.Notification{RecipientID: 1, ActorID: 2})
	assert.ErrorIs(t, err, ErrValidation)

	err = repo.CreateNotification(&models.Notification{ActorID: 2, Action: "liked"})
	assert.ErrorIs(t, err, ErrValidation)

	err = repo.CreateNotification(&models.Notification{RecipientID: 1, Action: "liked"})
	assert.ErrorIs(t, err, ErrValidation)

	err = repo.CreateNotification(&models.Notification{RecipientID: 1, ActorID: 2, Action: "liked"})
	assert.NoError(t, err)
}

func TestListByRecipientOrderAndPaging(t *testing.T) {
	repo := setupNotificationRepo(t)
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	oldest := seedNotification(t, repo, 1, 2, "liked", base)
	middle := seedNotification(t, repo, 1, 2, "commented", base.Add(time.Minute))
	newest := seedNotification(t, repo, 1, 3, "followed", base.Add(2*time.Minute))
	seedNotification(t, repo, 9, 2, "liked", base.Add(3*time.Minute)) // other recipient

	rows, err := repo.ListByRecipient(1, 1, 2, FilterAll)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, middle.ID, rows[1].ID)

	rows, err = repo.ListByRecipient(1, 2, 2, FilterAll)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, oldest.ID, rows[0].ID)
}

func TestListByRecipientTiebreakOnID(t *testing.T) {
	repo := setupNotificationRepo(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	first := seedNotification(t, repo, 1, 2, "liked", at)
	second := seedNotification(t, repo, 1, 3, "liked", at)

	rows, err := repo.ListByRecipient(1, 1, 20, FilterAll)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[1].ID)
}

func TestListByRecipientReadFilter(t *testing.T) {
	repo := setupNotificationRepo(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	read := seedNotification(t, repo, 1, 2, "liked", at)
	unread := seedNotification(t, repo, 1, 2, "commented", at.Add(time.Minute))
	_, err := repo.MarkAsRead(read.ID, 1)
	require.NoError(t, err)

	rows, err := repo.ListByRecipient(1, 1, 20, FilterUnread)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)

	rows, err = repo.ListByRecipient(1, 1, 20, FilterRead)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, read.ID, rows[0].ID)

	rows, err = repo.ListByRecipient(1, 1, 20, FilterAll)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMarkAsRead(t *testing.T) {
	repo := setupNotificationRepo(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	n := seedNotification(t, repo, 1, 2, "liked", at)

	updated, err := repo.MarkAsRead(n.ID, 1)
	require.NoError(t, err)
	assert.True(t, updated.Read)

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Marking again is a no-op success.
	updated, err = repo.MarkAsRead(n.ID, 1)
	require.NoError(t, err)
	assert.True(t, updated.Read)
}

func TestMarkAsReadForeignRecipient(t *testing.T) {
	repo := setupNotificationRepo(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	n := seedNotification(t, repo, 1, 2, "liked", at)

	// Another user can't touch the row; it reads as missing.
	_, err := repo.MarkAsRead(n.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMarkAllAsRead(t *testing.T) {
	repo := setupNotificationRepo(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	seedNotification(t, repo, 1, 2, "liked", at)
	seedNotification(t, repo, 1, 2, "commented", at.Add(time.Minute))
	seedNotification(t, repo, 9, 2, "liked", at)

	affected, err := repo.MarkAllAsRead(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Other recipients are untouched.
	count, err = repo.GetUnreadCount(9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	affected, err = repo.MarkAllAsRead(1)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestGetUnreadCount(t *testing.T) {
	repo := setupNotificationRepo(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	seedNotification(t, repo, 1, 2, "liked", at)
	seedNotification(t, repo, 1, 3, "followed", at)

	count, err = repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
