package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/driftlinehq/driftline/backend/internal/models"
	"github.com/driftlinehq/driftline/backend/internal/repositories"
)

// UserDirectory is the slice of the user repository the service needs:
// resolving @name mentions to recipients.
type UserDirectory interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByName(name string) (*models.User, error)
}

// Service is the entry point handlers call when a write commits. It owns
// the ordering contract of the pipeline: persist the notification row
// synchronously, then hand realtime delivery to the dispatcher. A broadcast
// problem can never fail the caller; only the synchronous persist can.
type Service struct {
	notifications    repositories.NotificationRepository
	users            UserDirectory
	dispatcher       *Dispatcher
	notifyOnUnfollow bool
	logger           Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithUnfollowNotifications enables durable notifications for unfollow
// events. Off by default.
func WithUnfollowNotifications(enabled bool) ServiceOption {
	return func(s *Service) { s.notifyOnUnfollow = enabled }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service.
func NewService(notifications repositories.NotificationRepository, users UserDirectory, dispatcher *Dispatcher, opts ...ServiceOption) *Service {
	s := &Service{
		notifications: notifications,
		users:         users,
		dispatcher:    dispatcher,
		logger:        StdLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify turns a committed domain write into a durable notification row and
// an asynchronous realtime dispatch. Suppressed events return (nil, nil).
// The returned error covers persistence only; callers log it and let the
// domain write stand.
func (s *Service) Notify(ctx context.Context, ev Event) (*models.Notification, error) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	if ev.Kind == KindUnfollowed && !s.notifyOnUnfollow {
		return nil, nil
	}
	if ev.Suppressed() {
		s.logger.Debugf("suppressed %s event: actor %d is the recipient", ev.Kind, ev.ActorID)
		return nil, nil
	}

	var notification *models.Notification
	if !ev.FeedOnly() {
		notification = &models.Notification{
			RecipientID:    ev.RecipientID,
			ActorID:        ev.ActorID,
			Action:         ev.Action(),
			NotifiableType: string(ev.Subject.Type),
			NotifiableID:   ev.Subject.ID,
			CreatedAt:      ev.OccurredAt,
		}
		if err := s.notifications.CreateNotification(notification); err != nil {
			return nil, fmt.Errorf("persist %s notification: %w", ev.Kind, err)
		}
	}

	// Fire-and-forget from here: the row is durable whether or not any
	// live connection ever sees a push.
	s.dispatcher.Enqueue(ev, notification)
	return notification, nil
}

// NotifyMentions scans micropost content for @name references and fires a
// mentioned event per resolvable user. Unknown names are skipped silently;
// self-mentions are suppressed by the event itself.
func (s *Service) NotifyMentions(ctx context.Context, actorID uint, content string, subject Subject) {
	for _, name := range ExtractMentions(content) {
		user, err := s.users.GetUserByName(name)
		if err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				s.logger.Warnf("resolve mention @%s: %v", name, err)
			}
			continue
		}
		if _, err := s.Notify(ctx, Event{
			Kind:        KindMentioned,
			ActorID:     actorID,
			RecipientID: user.ID,
			Subject:     subject,
		}); err != nil {
			s.logger.Errorf("mention notification for @%s: %v", name, err)
		}
	}
}
