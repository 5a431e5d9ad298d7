package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/notify"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

// CommentHandler handles comment HTTP requests
type CommentHandler struct {
	commentRepository   repositories.CommentRepository
	micropostRepository repositories.MicropostRepository
	notifier            *notify.Service
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, micropostRepo repositories.MicropostRepository, notifier *notify.Service) *CommentHandler {
	return &CommentHandler{
		commentRepository:   commentRepo,
		micropostRepository: micropostRepo,
		notifier:            notifier,
	}
}

// RegisterCommentRoutes registers comment routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/microposts/:id/comments", h.CreateComment)
	g.GET("/microposts/:id/comments", h.GetComments)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment creates a comment and notifies the micropost author.
// Mentions in the comment body notify the mentioned users.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	micropostID := c.Param("id")
	var req models.CreateCommentRequest
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

	comment := &models.Comment{
		MicropostID: micropostID,
		UserID:      currentUserID,
		Content:     req.Content,
	}
	if err := h.commentRepository.CreateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.micropostRepository.IncrementCommentsCount(c.Request().Context(), micropostID); err != nil {
		log.Printf("comments count increment for %s failed: %v", micropostID, err)
	}

	subject := notify.Subject{Type: notify.SubjectComment, ID: strconv.FormatUint(uint64(comment.ID), 10)}
	if _, err := h.notifier.Notify(c.Request().Context(), notify.Event{
		Kind:        notify.KindCommented,
		ActorID:     currentUserID,
		RecipientID: post.AuthorID,
		Subject:     subject,
	}); err != nil {
		log.Printf("comment notification for %s failed: %v", micropostID, err)
	}
	h.notifier.NotifyMentions(c.Request().Context(), currentUserID, comment.Content, subject)

	return c.JSON(http.StatusCreated, comment)
}

// GetComments returns comments on a micropost
func (h *CommentHandler) GetComments(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	comments, err := h.commentRepository.GetCommentsByMicropostID(c.Param("id"), page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"comments": comments})
}

// DeleteComment deletes the caller's own comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	commentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}

	comment, err := h.commentRepository.GetCommentByID(uint(commentID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
	}

	if err := h.commentRepository.DeleteComment(uint(commentID), currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
	}

	if err := h.micropostRepository.DecrementCommentsCount(c.Request().Context(), comment.MicropostID); err != nil {
		log.Printf("comments count decrement for %s failed: %v", comment.MicropostID, err)
	}
	return c.NoContent(http.StatusNoContent)
}
