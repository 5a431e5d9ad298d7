package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/notify"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	notifier         *notify.Service
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, notifier *notify.Service) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		notifier:         notifier,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if currentUserID == uint(targetID) {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	if _, err := h.userRepository.GetUserByID(uint(targetID)); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	// Check if already following
	isFollowing, err := h.followRepository.IsFollowing(currentUserID, uint(targetID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if isFollowing {
		return echo.NewHTTPError(http.StatusConflict, "Already following this user")
	}

	follow := &models.Follow{
		FollowerID:  currentUserID,
		FollowingID: uint(targetID),
	}
	if err := h.followRepository.CreateFollow(follow); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Update counts
	h.userRepository.IncrementFollowingCount(currentUserID)
	h.userRepository.IncrementFollowersCount(uint(targetID))

	if _, err := h.notifier.Notify(c.Request().Context(), notify.Event{
		Kind:        notify.KindFollowed,
		ActorID:     currentUserID,
		RecipientID: uint(targetID),
		Subject:     notify.Subject{Type: notify.SubjectFollow, ID: strconv.FormatUint(uint64(follow.ID), 10)},
	}); err != nil {
		log.Printf("follow notification for user %d failed: %v", targetID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "following": true})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if err := h.followRepository.DeleteFollow(currentUserID, uint(targetID)); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Not following this user")
	}

	// Update counts
	h.userRepository.DecrementFollowingCount(currentUserID)
	h.userRepository.DecrementFollowersCount(uint(targetID))

	// Gated behind NOTIFY_ON_UNFOLLOW; the service drops it when disabled
	if _, err := h.notifier.Notify(c.Request().Context(), notify.Event{
		Kind:        notify.KindUnfollowed,
		ActorID:     currentUserID,
		RecipientID: uint(targetID),
		Subject:     notify.Subject{Type: notify.SubjectFollow, ID: ""},
	}); err != nil {
		log.Printf("unfollow notification for user %d failed: %v", targetID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "following": false})
}
