package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/notify"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// MicropostHandler handles micropost HTTP requests
type MicropostHandler struct {
	micropostRepository repositories.MicropostRepository
	followRepository    repositories.FollowRepository
	notifier            *notify.Service
}

// NewMicropostHandler creates a new MicropostHandler
func NewMicropostHandler(micropostRepo repositories.MicropostRepository, followRepo repositories.FollowRepository, notifier *notify.Service) *MicropostHandler {
	return &MicropostHandler{
		micropostRepository: micropostRepo,
		followRepository:    followRepo,
		notifier:            notifier,
	}
}

// RegisterMicropostRoutes registers micropost routes
func (h *MicropostHandler) RegisterMicropostRoutes(g *echo.Group) {
	g.POST("/microposts", h.CreateMicropost)
	g.GET("/microposts/:id", h.GetMicropost)
	g.DELETE("/microposts/:id", h.DeleteMicropost)
	g.GET("/users/:id/microposts", h.GetUserMicroposts)
	g.GET("/feed", h.GetFeed)
}

// CreateMicropost creates a micropost and fans the new_post event out to the
// author's followers. Mentions in the content notify the mentioned users.
// Pipeline failures are logged; the post itself always stands.
func (h *MicropostHandler) CreateMicropost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateMicropostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	post := &models.Micropost{
		AuthorID:  currentUserID,
		Content:   req.Content,
		Hashtags:  extractHashtags(req.Content),
		ImageURLs: req.ImageURLs,
	}
	if err := h.micropostRepository.CreateMicropost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	subject := notify.Subject{Type: notify.SubjectMicropost, ID: post.ID.Hex()}
	if _, err := h.notifier.Notify(c.Request().Context(), notify.Event{
		Kind:    notify.KindNewPost,
		ActorID: currentUserID,
		Subject: subject,
	}); err != nil {
		log.Printf("new_post fan-out for %s failed: %v", post.ID.Hex(), err)
	}
	h.notifier.NotifyMentions(c.Request().Context(), currentUserID, post.Content, subject)

	return c.JSON(http.StatusCreated, post)
}

// GetMicropost returns a single micropost
func (h *MicropostHandler) GetMicropost(c echo.Context) error {
	post, err := h.micropostRepository.GetMicropostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Micropost not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, post)
}

// DeleteMicropost deletes the caller's own micropost
func (h *MicropostHandler) DeleteMicropost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.micropostRepository.DeleteMicropost(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Micropost not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// GetUserMicroposts returns a user's microposts, newest first
func (h *MicropostHandler) GetUserMicroposts(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	skip, limit := paginationParams(c)
	posts, err := h.micropostRepository.GetMicropostsByAuthorID(c.Request().Context(), uint(userID), skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"microposts": posts})
}

// GetFeed returns microposts of followed users plus the caller's own
func (h *MicropostHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	followingIDs, err := h.followRepository.GetFollowingIDs(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	authorIDs := append(followingIDs, currentUserID)

	skip, limit := paginationParams(c)
	posts, err := h.micropostRepository.GetMicropostsByAuthorIDs(c.Request().Context(), authorIDs, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"microposts": posts})
}

func paginationParams(c echo.Context) (skip, limit int64) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 20
	}
	return int64((page - 1) * size), int64(size)
}

func extractHashtags(content string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}
