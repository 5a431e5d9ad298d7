package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/notify"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

// NotificationHandler serves the REST surface clients reconcile against.
// Realtime pushes are an optimization; these endpoints are the source of
// truth for badges and lists.
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread_count", h.GetUnreadCount)
	g.PATCH("/notifications/:id/mark_as_read", h.MarkAsRead)
	g.PATCH("/notifications/mark_all_as_read", h.MarkAllAsRead)
}

// EnrichedNotification is the serialized notification with actor summary
// and notifiable reference resolved.
type EnrichedNotification struct {
	ID         uint                 `json:"id"`
	Action     string               `json:"action"`
	Read       bool                 `json:"read"`
	CreatedAt  time.Time            `json:"created_at"`
	Actor      models.UserCompact   `json:"actor"`
	Notifiable notify.NotifiableRef `json:"notifiable"`
}

func (h *NotificationHandler) enrichNotifications(notifications []models.Notification) []EnrichedNotification {
	enriched := make([]EnrichedNotification, 0, len(notifications))
	actorCache := make(map[uint]models.UserCompact)

	for _, n := range notifications {
		actor, ok := actorCache[n.ActorID]
		if !ok {
			// A deleted actor still serializes with its id so clients can
			// render something.
			actor = models.UserCompact{ID: n.ActorID}
			if user, err := h.userRepository.GetUserByID(n.ActorID); err == nil {
				actor = user.ToCompact()
			}
			actorCache[n.ActorID] = actor
		}
		enriched = append(enriched, EnrichedNotification{
			ID:         n.ID,
			Action:     n.Action,
			Read:       n.Read,
			CreatedAt:  n.CreatedAt,
			Actor:      actor,
			Notifiable: notify.NotifiableRef{ID: n.NotifiableID, Type: n.NotifiableType},
		})
	}
	return enriched
}

// GetNotifications returns the recipient's notifications, newest first,
// together with the authoritative unread count.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	filter := repositories.ReadFilter(c.QueryParam("filter"))
	switch filter {
	case repositories.FilterRead, repositories.FilterUnread:
	default:
		filter = repositories.FilterAll
	}

	notifications, err := h.notificationRepository.ListByRecipient(currentUserID, page, limit, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	unreadCount, err := h.notificationRepository.GetUnreadCount(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"notifications": h.enrichNotifications(notifications),
		"unread_count":  unreadCount,
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notificationRepository.GetUnreadCount(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"unread_count": count})
}

// MarkAsRead marks a single notification as read. A notification owned by
// someone else is indistinguishable from a missing one.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notifID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	notification, err := h.notificationRepository.MarkAsRead(uint(notifID), currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "notification": notification})
}

// MarkAllAsRead marks all of the recipient's notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if _, err := h.notificationRepository.MarkAllAsRead(currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
