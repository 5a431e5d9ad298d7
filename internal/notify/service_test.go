package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return db
}

func newTestService(t *testing.T, broker Broker, opts ...ServiceOption) (*Service, repositories.NotificationRepository, *Dispatcher) {
	t.Helper()
	repo := repositories.NewPostgresNotificationRepository(newTestDB(t))
	users := &fakeUsers{users: map[uint]*models.User{
		1: {ID: 1, Name: "alice"},
		2: {ID: 2, Name: "bob"},
	}}
	d, err := NewDispatcher(newTestRouter(users, nil, nil), broker, WithDispatcherLogger(NoopLogger{}))
	require.NoError(t, err)
	opts = append(opts, WithServiceLogger(NoopLogger{}))
	return NewService(repo, users, d, opts...), repo, d
}

func TestNotifyPersistsAndReturnsRow(t *testing.T) {
	svc, repo, _ := newTestService(t, &recordingBroker{})

	before := time.Now()
	n, err := svc.Notify(context.Background(), Event{
		Kind:        KindFollowed,
		ActorID:     1,
		RecipientID: 2,
		Subject:     Subject{Type: SubjectFollow, ID: "3"},
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.NotZero(t, n.ID)
	assert.Equal(t, uint(2), n.RecipientID)
	assert.Equal(t, uint(1), n.ActorID)
	assert.Equal(t, "followed", n.Action)
	assert.Equal(t, "follow", n.NotifiableType)
	assert.Equal(t, "3", n.NotifiableID)
	assert.False(t, n.Read)
	assert.False(t, n.CreatedAt.Before(before.Truncate(time.Second)))

	count, err := repo.GetUnreadCount(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotifyShareStoredUnderHistoricalAction(t *testing.T) {
	svc, _, _ := newTestService(t, &recordingBroker{})

	n, err := svc.Notify(context.Background(), Event{
		Kind:        KindShared,
		ActorID:     1,
		RecipientID: 2,
		Subject:     Subject{Type: SubjectMicropost, ID: "abc"},
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "share", n.Action)
}

func TestNotifySurvivesBrokerOutage(t *testing.T) {
	svc, repo, d := newTestService(t, failingBroker{})
	d.Start()
	defer d.Stop()

	n, err := svc.Notify(context.Background(), Event{
		Kind:        KindLiked,
		ActorID:     1,
		RecipientID: 2,
		Subject:     Subject{Type: SubjectMicropost, ID: "abc"},
	})
	require.NoError(t, err)
	require.NotNil(t, n)

	// The durable row exists regardless of what happened downstream.
	rows, err := repo.ListByRecipient(2, 1, 20, repositories.FilterAll)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestNotifySuppressesSelfActions(t *testing.T) {
	svc, repo, _ := newTestService(t, &recordingBroker{})

	n, err := svc.Notify(context.Background(), Event{
		Kind:        KindLiked,
		ActorID:     1,
		RecipientID: 1,
		Subject:     Subject{Type: SubjectMicropost, ID: "abc"},
	})
	require.NoError(t, err)
	assert.Nil(t, n)

	count, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotifyUnfollowGate(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		svc, repo, _ := newTestService(t, &recordingBroker{})
		n, err := svc.Notify(context.Background(), Event{
			Kind: KindUnfollowed, ActorID: 1, RecipientID: 2,
			Subject: Subject{Type: SubjectFollow},
		})
		require.NoError(t, err)
		assert.Nil(t, n)

		count, err := repo.GetUnreadCount(2)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("enabled via option", func(t *testing.T) {
		svc, _, _ := newTestService(t, &recordingBroker{}, WithUnfollowNotifications(true))
		n, err := svc.Notify(context.Background(), Event{
			Kind: KindUnfollowed, ActorID: 1, RecipientID: 2,
			Subject: Subject{Type: SubjectFollow},
		})
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "unfollowed", n.Action)
	})
}

func TestNotifyFeedOnlySkipsPersistence(t *testing.T) {
	svc, repo, _ := newTestService(t, &recordingBroker{})

	n, err := svc.Notify(context.Background(), Event{
		Kind:    KindNewPost,
		ActorID: 1,
		Subject: Subject{Type: SubjectMicropost, ID: "abc"},
	})
	require.NoError(t, err)
	assert.Nil(t, n)

	rows, err := repo.ListByRecipient(0, 1, 20, repositories.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNotifyMentions(t *testing.T) {
	svc, repo, _ := newTestService(t, &recordingBroker{})

	subject := Subject{Type: SubjectMicropost, ID: "abc"}
	svc.NotifyMentions(context.Background(), 1, "hey @bob and @ghost, also @alice", subject)

	// bob gets one, ghost doesn't exist, alice is the actor (self-mention).
	bobCount, err := repo.GetUnreadCount(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobCount)

	aliceCount, err := repo.GetUnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, aliceCount)

	rows, err := repo.ListByRecipient(2, 1, 20, repositories.FilterAll)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "mentioned", rows[0].Action)
	assert.Equal(t, "abc", rows[0].NotifiableID)
}
