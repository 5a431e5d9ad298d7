package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/notify"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

// ShareHandler handles share HTTP requests
type ShareHandler struct {
	shareRepository     repositories.ShareRepository
	micropostRepository repositories.MicropostRepository
	notifier            *notify.Service
}

// NewShareHandler creates a new ShareHandler
func NewShareHandler(shareRepo repositories.ShareRepository, micropostRepo repositories.MicropostRepository, notifier *notify.Service) *ShareHandler {
	return &ShareHandler{
		shareRepository:     shareRepo,
		micropostRepository: micropostRepo,
		notifier:            notifier,
	}
}

// RegisterShareRoutes registers share routes
func (h *ShareHandler) RegisterShareRoutes(g *echo.Group) {
	g.POST("/microposts/:id/share", h.ShareMicropost)
}

// ShareMicropost records a share and notifies the micropost author
func (h *ShareHandler) ShareMicropost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	micropostID := c.Param("id")
	var req models.CreateShareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	post, err := h.micropostRepository.GetMicropostByID(c.Request().Context(), micropostID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Micropost not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	shared, err := h.shareRepository.HasUserShared(currentUserID, micropostID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if shared {
		return echo.NewHTTPError(http.StatusConflict, "Micropost already shared")
	}

	share := &models.Share{
		MicropostID: micropostID,
		UserID:      currentUserID,
		Comment:     req.Comment,
	}
	if err := h.shareRepository.CreateShare(share); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.micropostRepository.IncrementSharesCount(c.Request().Context(), micropostID); err != nil {
		log.Printf("shares count increment for %s failed: %v", micropostID, err)
	}

	if _, err := h.notifier.Notify(c.Request().Context(), notify.Event{
		Kind:        notify.KindShared,
		ActorID:     currentUserID,
		RecipientID: post.AuthorID,
		Subject:     notify.Subject{Type: notify.SubjectMicropost, ID: micropostID},
	}); err != nil {
		log.Printf("share notification for %s failed: %v", micropostID, err)
	}

	return c.JSON(http.StatusCreated, share)
}
