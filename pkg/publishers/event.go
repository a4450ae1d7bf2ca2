package publishers

import (
	"time"

	"github.com/piccscy/wechat/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	FollowUserID    string         `json:"follow_userid"`
	ExternalUserID  string         `json:"external_userid"`
	ExternalContact map[string]any `json:"external_contact"`
	FollowUser      []any          `json:"follow_user,omitempty"`
	CollectedAt     time.Time      `json:"collected_at"`
}

// NewEvent constructs an Event for the given follow user + contact snapshot.
func NewEvent(followUserID string, contact domain.Contact) Event {
	return Event{
		FollowUserID:    followUserID,
		ExternalUserID:  contact.ExternalUserID,
		ExternalContact: contact.Profile,
		FollowUser:      contact.FollowUsers,
		CollectedAt:     time.Now().UTC(),
	}
}

// attributes returns the routing attributes attached to every delivery:
// message attributes on queues and topics, X-Contact-* headers on webhooks.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"follow_userid":   e.FollowUserID,
		"external_userid": e.ExternalUserID,
	}
}
