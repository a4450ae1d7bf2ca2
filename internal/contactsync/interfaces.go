package contactsync

import (
	"context"

	"github.com/piccscy/wechat/pkg/httpclient"
	"github.com/piccscy/wechat/pkg/publishers"
)

// ContactSource is the subset of crm.Client the sync pass reads from.
type ContactSource interface {
	GetFollowUserList(ctx context.Context) (httpclient.Result, error)
	List(ctx context.Context, userid string) (httpclient.Result, error)
	GetExternalContact(ctx context.Context, externalUserID string) (httpclient.Result, error)
}

// EventPublisher publishes contact snapshots downstream.
// It returns the number of sinks that accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper tracks which contacts were published recently.
type Deduper interface {
	SeenContact(id string) (bool, error)
	MarkContact(id string) error
}
