package notify

import "fmt"

// FirehoseTopic carries every public feed update. Clients may opt into it;
// the per-user topics below are always server-derived.
const FirehoseTopic = "feed"

// NotificationTopic is the per-recipient notification stream.
func NotificationTopic(userID uint) string {
	return fmt.Sprintf("notifications:%d", userID)
}

// FeedTopic is the per-user home feed stream; a user's topic receives the
// posts of everyone they follow.
func FeedTopic(userID uint) string {
	return fmt.Sprintf("feed:%d", userID)
}
