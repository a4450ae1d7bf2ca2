package contactsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/piccscy/wechat/internal/domain"
	"github.com/piccscy/wechat/internal/logger"
	"github.com/piccscy/wechat/pkg/httpclient"
	"github.com/piccscy/wechat/pkg/publishers"
)

// errCodeNoCustomers is returned by the list endpoint for members without customers.
const errCodeNoCustomers = 84061

// Stats summarizes one sync pass.
type Stats struct {
	FollowUsers int
	Listed      int
	Published   int
	Skipped     int
}

// Service walks follow users and their customers, publishing fresh contact snapshots.
type Service struct {
	source    ContactSource
	publisher EventPublisher
	deduper   Deduper
	log       logger.Logger
}

// NewService wires a sync pass. publisher, deduper and log may be nil.
func NewService(source ContactSource, publisher EventPublisher, log logger.Logger, deduper Deduper) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		source:    source,
		publisher: publisher,
		deduper:   deduper,
		log:       log,
	}
}

// Run executes one sync pass. A cancelled context ends the pass early without error.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if s == nil || s.source == nil {
		return stats, fmt.Errorf("contact sync service is not initialized")
	}

	res, err := s.source.GetFollowUserList(ctx)
	if interrupted(ctx, err) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("get follow user list: %w", err)
	}
	if err := res.Err(); err != nil {
		return stats, fmt.Errorf("get follow user list: %w", err)
	}

	users := res.Strings("follow_user")
	stats.FollowUsers = len(users)
	if len(users) == 0 {
		s.log.WarnObj("no follow users returned; nothing to sync", "sync_meta", map[string]any{
			"follow_users": 0,
		})
		return stats, nil
	}

	var errs []error
	for _, userid := range users {
		if ctx.Err() != nil {
			break
		}
		err := s.runUser(ctx, userid, &stats)
		if interrupted(ctx, err) {
			break
		}
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("follow user sync failed", "sync_error", map[string]any{
				"userid": userid,
				"error":  err.Error(),
			})
		}
	}
	return stats, errors.Join(errs...)
}

func (s *Service) runUser(ctx context.Context, userid string, stats *Stats) error {
	res, err := s.source.List(ctx, userid)
	if interrupted(ctx, err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list customers of %s: %w", userid, err)
	}
	if res.ErrCode() == errCodeNoCustomers {
		return nil
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("list customers of %s: %w", userid, err)
	}

	ids := res.Strings("external_userid")
	stats.Listed += len(ids)

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if s.seen(id) {
			stats.Skipped++
			continue
		}
		err := s.syncContact(ctx, userid, id)
		if interrupted(ctx, err) {
			break
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Published++
	}

	s.log.InfoObj("follow user sync completed", "sync_result", map[string]any{
		"userid":    userid,
		"customers": len(ids),
		"failed":    len(errs),
	})
	return errors.Join(errs...)
}

func (s *Service) syncContact(ctx context.Context, userid, externalUserID string) error {
	res, err := s.source.GetExternalContact(ctx, externalUserID)
	if err != nil {
		return fmt.Errorf("get contact %s: %w", externalUserID, err)
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("get contact %s: %w", externalUserID, err)
	}

	if s.publisher == nil {
		return nil
	}
	evt := publishers.NewEvent(userid, contactFromResult(externalUserID, res))
	delivered, err := s.publisher.Publish(ctx, evt)
	if err != nil {
		s.log.WarnObj("contact publish partially failed", "publish_error", map[string]any{
			"external_userid": externalUserID,
			"delivered":       delivered,
			"error":           err.Error(),
		})
	}
	if delivered == 0 {
		if err == nil {
			err = errors.New("no publisher accepted the event")
		}
		return fmt.Errorf("publish contact %s: %w", externalUserID, err)
	}

	if s.deduper != nil {
		if err := s.deduper.MarkContact(externalUserID); err != nil {
			s.log.WarnObj("mark contact failed", "dedupe_error", map[string]any{
				"external_userid": externalUserID,
				"error":           err.Error(),
			})
		}
	}
	return nil
}

// interrupted reports a failure caused by the pass being cancelled.
func interrupted(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}

// seen reports whether the contact was published recently; lookup errors count as unseen.
func (s *Service) seen(id string) bool {
	if s.deduper == nil {
		return false
	}
	seen, err := s.deduper.SeenContact(id)
	if err != nil {
		s.log.WarnObj("dedupe lookup failed", "dedupe_error", map[string]any{
			"external_userid": id,
			"error":           err.Error(),
		})
		return false
	}
	return seen
}

func contactFromResult(externalUserID string, res httpclient.Result) domain.Contact {
	profile, _ := res["external_contact"].(map[string]any)
	follow, _ := res["follow_user"].([]any)
	return domain.Contact{
		ExternalUserID: externalUserID,
		Profile:        profile,
		FollowUsers:    follow,
	}
}
