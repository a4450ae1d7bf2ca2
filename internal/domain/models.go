package domain

// Domain contains core models shared by the sync runtime and publishers.

// Contact is a snapshot of one customer as returned by the contact detail endpoint.
type Contact struct {
	ExternalUserID string
	Profile        map[string]any
	FollowUsers    []any
}
