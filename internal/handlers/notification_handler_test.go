package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

type notificationHandlerFixture struct {
	handler          *NotificationHandler
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
}

func newNotificationFixture(t *testing.T) *notificationHandlerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Notification{}))

	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	userRepo := repositories.NewPostgresUserRepository(db)
	return &notificationHandlerFixture{
		handler:          NewNotificationHandler(notificationRepo, userRepo),
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
	}
}

func (f *notificationHandlerFixture) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com"}
	require.NoError(t, f.userRepo.CreateUser(u))
	return u
}

func (f *notificationHandlerFixture) seedNotification(t *testing.T, recipientID, actorID uint, action string, at time.Time) *models.Notification {
	t.Helper()
	n := &models.Notification{
		RecipientID:    recipientID,
		ActorID:        actorID,
		Action:         action,
		NotifiableType: "micropost",
		NotifiableID:   "abc",
		CreatedAt:      at,
	}
	require.NoError(t, f.notificationRepo.CreateNotification(n))
	return n
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uint) echo.Context {
	c := e.NewContext(req, rec)
	c.Set("user", &models.JwtCustomClaims{UserID: userID})
	return c
}

func TestGetNotifications(t *testing.T) {
	f := newNotificationFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	f.seedNotification(t, bob.ID, alice.ID, "liked", base)
	newest := f.seedNotification(t, bob.ID, alice.ID, "followed", base.Add(time.Minute))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, bob.ID)

	require.NoError(t, f.handler.GetNotifications(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Notifications []EnrichedNotification `json:"notifications"`
		UnreadCount   int64                  `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, int64(2), body.UnreadCount)
	require.Len(t, body.Notifications, 2)
	assert.Equal(t, newest.ID, body.Notifications[0].ID)
	assert.Equal(t, "followed", body.Notifications[0].Action)
	assert.Equal(t, "alice", body.Notifications[0].Actor.Name)
	assert.Equal(t, "micropost", body.Notifications[0].Notifiable.Type)
	assert.Equal(t, "abc", body.Notifications[0].Notifiable.ID)
	assert.False(t, body.Notifications[0].Read)
}

func TestGetNotificationsDeletedActorKeepsID(t *testing.T) {
	f := newNotificationFixture(t)
	bob := f.seedUser(t, "bob")

	// Actor 99 has no user row; the serialized actor still carries the id.
	f.seedNotification(t, bob.ID, 99, "liked", time.Now())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, bob.ID)

	require.NoError(t, f.handler.GetNotifications(c))

	var body struct {
		Notifications []EnrichedNotification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, uint(99), body.Notifications[0].Actor.ID)
	assert.Empty(t, body.Notifications[0].Actor.Name)
}

func TestGetNotificationsUnreadFilter(t *testing.T) {
	f := newNotificationFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	read := f.seedNotification(t, bob.ID, alice.ID, "liked", base)
	unread := f.seedNotification(t, bob.ID, alice.ID, "commented", base.Add(time.Minute))
	_, err := f.notificationRepo.MarkAsRead(read.ID, bob.ID)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?filter=unread", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, bob.ID)

	require.NoError(t, f.handler.GetNotifications(c))

	var body struct {
		Notifications []EnrichedNotification `json:"notifications"`
		UnreadCount   int64                  `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, unread.ID, body.Notifications[0].ID)
	assert.Equal(t, int64(1), body.UnreadCount)
}

func TestGetNotificationsUnauthenticated(t *testing.T) {
	f := newNotificationFixture(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := f.handler.GetNotifications(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestGetUnreadCount(t *testing.T) {
	f := newNotificationFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	f.seedNotification(t, bob.ID, alice.ID, "liked", time.Now())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread_count", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, bob.ID)

	require.NoError(t, f.handler.GetUnreadCount(c))

	var body map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body["unread_count"])
}

func TestMarkAsReadHandler(t *testing.T) {
	f := newNotificationFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	n := f.seedNotification(t, bob.ID, alice.ID, "liked", time.Now())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, bob.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(n.ID), 10))

	require.NoError(t, f.handler.MarkAsRead(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success      bool                `json:"success"`
		Notification models.Notification `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Notification.Read)
}

func TestMarkAsReadForeignNotification(t *testing.T) {
	f := newNotificationFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	mallory := f.seedUser(t, "mallory")
	n := f.seedNotification(t, bob.ID, alice.ID, "liked", time.Now())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, mallory.ID)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(n.ID), 10))

	err := f.handler.MarkAsRead(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)

	// Bob's notification is untouched.
	count, err := f.notificationRepo.GetUnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMarkAllAsReadHandler(t *testing.T) {
	f := newNotificationFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	f.seedNotification(t, bob.ID, alice.ID, "liked", time.Now())
	f.seedNotification(t, bob.ID, alice.ID, "commented", time.Now())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, bob.ID)

	require.NoError(t, f.handler.MarkAllAsRead(c))

	count, err := f.notificationRepo.GetUnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
