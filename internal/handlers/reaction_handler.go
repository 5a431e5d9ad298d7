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

// ReactionHandler handles reaction HTTP requests
type ReactionHandler struct {
	reactionRepository  repositories.ReactionRepository
	micropostRepository repositories.MicropostRepository
	notifier            *notify.Service
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactionRepo repositories.ReactionRepository, micropostRepo repositories.MicropostRepository, notifier *notify.Service) *ReactionHandler {
	return &ReactionHandler{
		reactionRepository:  reactionRepo,
		micropostRepository: micropostRepo,
		notifier:            notifier,
	}
}

// RegisterReactionRoutes registers reaction routes
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	g.PUT("/microposts/:id/reaction", h.SetReaction)
	g.DELETE("/microposts/:id/reaction", h.RemoveReaction)
}

// SetReaction creates or replaces the caller's reaction on a micropost.
// Only the first reaction per (user, micropost) notifies the author;
// changing the kind afterwards is a silent in-place update.
func (h *ReactionHandler) SetReaction(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	micropostID := c.Param("id")
	var req models.CreateReactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	post, err := h.micropostRepository.GetMicropostByID(c.Request().Context(), micropostID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Micropost not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	existing, err := h.reactionRepository.GetByUserAndMicropost(currentUserID, micropostID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if existing != nil {
		if existing.Kind == req.Kind {
			return c.JSON(http.StatusOK, existing)
		}
		if err := h.reactionRepository.UpdateReactionKind(existing.ID, req.Kind); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		existing.Kind = req.Kind
		return c.JSON(http.StatusOK, existing)
	}

	reaction := &models.Reaction{
		MicropostID: micropostID,
		UserID:      currentUserID,
		Kind:        req.Kind,
	}
	if err := h.reactionRepository.CreateReaction(reaction); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.micropostRepository.IncrementReactionsCount(c.Request().Context(), micropostID); err != nil {
		log.Printf("reactions count increment for %s failed: %v", micropostID, err)
	}

	kind := notify.KindReacted
	if req.Kind == "like" {
		kind = notify.KindLiked
	}
	if _, err := h.notifier.Notify(c.Request().Context(), notify.Event{
		Kind:        kind,
		ActorID:     currentUserID,
		RecipientID: post.AuthorID,
		Subject:     notify.Subject{Type: notify.SubjectMicropost, ID: micropostID},
	}); err != nil {
		log.Printf("reaction notification for %s failed: %v", micropostID, err)
	}

	return c.JSON(http.StatusCreated, reaction)
}

// RemoveReaction removes the caller's reaction from a micropost
func (h *ReactionHandler) RemoveReaction(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	micropostID := c.Param("id")
	if err := h.reactionRepository.DeleteReaction(currentUserID, micropostID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Reaction not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.micropostRepository.DecrementReactionsCount(c.Request().Context(), micropostID); err != nil {
		log.Printf("reactions count decrement for %s failed: %v", micropostID, err)
	}
	return c.NoContent(http.StatusNoContent)
}
