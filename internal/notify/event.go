package notify

import (
	"regexp"
	"time"
)

// Kind identifies what a domain write did.
type Kind string

const (
	KindLiked      Kind = "liked"
	KindCommented  Kind = "commented"
	KindMentioned  Kind = "mentioned"
	KindFollowed   Kind = "followed"
	KindUnfollowed Kind = "unfollowed"
	KindShared     Kind = "shared"
	KindReacted    Kind = "reacted"
	KindNewPost    Kind = "new_post"
)

// SubjectType enumerates the entities a notification can point at. New
// notifiable kinds are added here and resolved in the router, never via
// reflection.
type SubjectType string

const (
	SubjectMicropost SubjectType = "micropost"
	SubjectComment   SubjectType = "comment"
	SubjectReaction  SubjectType = "reaction"
	SubjectFollow    SubjectType = "follow"
	SubjectShare     SubjectType = "share"
)

// Subject is a tagged reference to the entity an event is about.
type Subject struct {
	Type SubjectType
	ID   string
}

// Event is the ephemeral record of a notification-worthy write. It is built
// at commit time, consumed immediately by the pipeline, and never stored.
type Event struct {
	Kind        Kind
	ActorID     uint
	RecipientID uint // zero for feed-only kinds
	Subject     Subject
	OccurredAt  time.Time
}

// FeedOnly reports whether the event fans out to feed topics without
// producing a durable notification row.
func (e Event) FeedOnly() bool {
	return e.Kind == KindNewPost
}

// Suppressed reports whether the event must be dropped before persistence.
// Users are never notified about their own actions; follows can't be
// self-directed in the first place (rejected upstream).
func (e Event) Suppressed() bool {
	switch e.Kind {
	case KindLiked, KindReacted, KindCommented, KindMentioned, KindShared:
		return e.ActorID == e.RecipientID
	default:
		return false
	}
}

// Action returns the value persisted in Notification.Action. Shares are
// stored under the historical name "share".
func (e Event) Action() string {
	if e.Kind == KindShared {
		return "share"
	}
	return string(e.Kind)
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// ExtractMentions returns the distinct @names referenced in content, in
// order of first appearance.
func ExtractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
