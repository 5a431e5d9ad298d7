package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/driftlinehq/driftline/backend/internal/models"
)

// ErrStaleSubject reports that the subject of an event, or its owner,
// vanished between event creation and payload construction. Callers drop
// the dispatch and move on; this is never a hard error.
var ErrStaleSubject = errors.New("stale subject")

// ActorDirectory resolves actor display fields at dispatch time.
type ActorDirectory interface {
	GetUserByID(id uint) (*models.User, error)
}

// MicropostSource resolves micropost state at dispatch time so feed payloads
// carry current content and counts.
type MicropostSource interface {
	GetMicropostByID(ctx context.Context, id string) (*models.Micropost, error)
}

// FollowerSource lists the followers a new_post event fans out to.
type FollowerSource interface {
	GetFollowerIDs(userID uint) ([]uint, error)
}

// NotifiableRef is the tagged reference embedded in notification payloads.
type NotifiableRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// NotificationPayload is pushed on notifications:{recipient} topics.
type NotificationPayload struct {
	Action     string             `json:"action"`
	Message    string             `json:"message"`
	Actor      models.UserCompact `json:"actor"`
	Notifiable NotifiableRef      `json:"notifiable"`
	CreatedAt  time.Time          `json:"created_at"`
}

// FeedPayload is pushed on feed topics. It is denormalized so a client can
// render the update without a follow-up fetch.
type FeedPayload struct {
	Action         string             `json:"action"` // new_post, reaction_update, share_update
	MicropostID    string             `json:"micropost_id"`
	Content        string             `json:"content,omitempty"`
	Hashtags       []string           `json:"hashtags,omitempty"`
	ReactionsCount int                `json:"reactions_count"`
	CommentsCount  int                `json:"comments_count"`
	SharesCount    int                `json:"shares_count"`
	Author         models.UserCompact `json:"author"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Delivery is one (topic, payload) pair produced by the router.
// RecipientID is non-zero for per-recipient notification deliveries and lets
// secondary sinks (mobile push) resolve device tokens.
type Delivery struct {
	Topic       string
	RecipientID uint
	Payload     any
}

// Router maps an event (and its persisted notification, when one exists) to
// the deliveries the dispatcher should publish. Payloads are built from
// current entity state, not from state captured at event time.
type Router struct {
	users      ActorDirectory
	microposts MicropostSource
	followers  FollowerSource
	logger     Logger
}

// NewRouter creates a Router.
func NewRouter(users ActorDirectory, microposts MicropostSource, followers FollowerSource, logger Logger) *Router {
	if logger == nil {
		logger = StdLogger{}
	}
	return &Router{users: users, microposts: microposts, followers: followers, logger: logger}
}

// Route derives all deliveries for an event. It returns ErrStaleSubject when
// the actor or subject no longer exists; it never panics and never partially
// fails a caller's request.
func (r *Router) Route(ctx context.Context, ev Event, notification *models.Notification) ([]Delivery, error) {
	actor, err := r.users.GetUserByID(ev.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor %d gone: %w", ev.ActorID, ErrStaleSubject)
	}

	if ev.FeedOnly() {
		return r.routeFeed(ctx, ev, actor)
	}

	createdAt := ev.OccurredAt
	if notification != nil {
		createdAt = notification.CreatedAt
	}

	deliveries := []Delivery{{
		Topic:       NotificationTopic(ev.RecipientID),
		RecipientID: ev.RecipientID,
		Payload: NotificationPayload{
			Action:     ev.Action(),
			Message:    MessageFor(actor.Name, ev.Action()),
			Actor:      actor.ToCompact(),
			Notifiable: NotifiableRef{ID: ev.Subject.ID, Type: string(ev.Subject.Type)},
			CreatedAt:  createdAt,
		},
	}}

	// Reactions and shares also move counters on the public feed.
	switch ev.Kind {
	case KindLiked, KindReacted:
		if d, ok := r.feedUpdate(ctx, ev, "reaction_update"); ok {
			deliveries = append(deliveries, d)
		}
	case KindShared:
		if d, ok := r.feedUpdate(ctx, ev, "share_update"); ok {
			deliveries = append(deliveries, d)
		}
	}

	return deliveries, nil
}

func (r *Router) routeFeed(ctx context.Context, ev Event, actor *models.User) ([]Delivery, error) {
	post, err := r.microposts.GetMicropostByID(ctx, ev.Subject.ID)
	if err != nil {
		return nil, fmt.Errorf("micropost %s gone: %w", ev.Subject.ID, ErrStaleSubject)
	}

	payload := feedPayloadFrom("new_post", post, actor.ToCompact())

	followerIDs, err := r.followers.GetFollowerIDs(ev.ActorID)
	if err != nil {
		return nil, fmt.Errorf("list followers of %d: %v", ev.ActorID, err)
	}

	deliveries := make([]Delivery, 0, len(followerIDs)+1)
	for _, id := range followerIDs {
		deliveries = append(deliveries, Delivery{Topic: FeedTopic(id), Payload: payload})
	}
	deliveries = append(deliveries, Delivery{Topic: FirehoseTopic, Payload: payload})
	return deliveries, nil
}

// feedUpdate builds a counter-refresh delivery for the firehose. A vanished
// micropost just skips the feed side; the notification delivery stands.
func (r *Router) feedUpdate(ctx context.Context, ev Event, action string) (Delivery, bool) {
	post, err := r.microposts.GetMicropostByID(ctx, ev.Subject.ID)
	if err != nil {
		r.logger.Debugf("skip %s for %s: %v", action, ev.Subject.ID, err)
		return Delivery{}, false
	}

	author, err := r.users.GetUserByID(post.AuthorID)
	if err != nil {
		r.logger.Debugf("skip %s for %s: author gone", action, ev.Subject.ID)
		return Delivery{}, false
	}

	return Delivery{Topic: FirehoseTopic, Payload: feedPayloadFrom(action, post, author.ToCompact())}, true
}

func feedPayloadFrom(action string, post *models.Micropost, author models.UserCompact) FeedPayload {
	return FeedPayload{
		Action:         action,
		MicropostID:    post.ID.Hex(),
		Content:        post.Content,
		Hashtags:       post.Hashtags,
		ReactionsCount: post.ReactionsCount,
		CommentsCount:  post.CommentsCount,
		SharesCount:    post.SharesCount,
		Author:         author,
		CreatedAt:      post.CreatedAt,
	}
}

// MessageFor renders the human-readable line for a stored action.
func MessageFor(actorName, action string) string {
	switch action {
	case "liked":
		return actorName + " liked your micropost"
	case "commented":
		return actorName + " commented on your micropost"
	case "mentioned":
		return actorName + " mentioned you in a micropost"
	case "followed":
		return actorName + " started following you"
	case "unfollowed":
		return actorName + " unfollowed you"
	default:
		return actorName + " " + action
	}
}
