package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piccscy/wechat/internal/config"
	"github.com/piccscy/wechat/internal/contactsync"
	"github.com/piccscy/wechat/internal/logger"
	"github.com/piccscy/wechat/pkg/publishers"
)

// Syncer is the contact sync runtime. It periodically walks every follow user's
// customers and fans fresh contact snapshots out to the configured publishers.
type Syncer struct {
	api          *API
	fanout       *publishers.Fanout
	syncService  *contactsync.Service
	syncInterval time.Duration
	log          logger.Logger
}

// NewSyncer builds a sync runtime from config files.
func NewSyncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	fanout, err := publishers.DefaultBuilders().Fanout(ctx, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	api, err := NewAPI(cfg, log)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}

	return &Syncer{
		api:          api,
		fanout:       fanout,
		syncService:  contactsync.NewService(api.CRM, fanout, log, api.Store()),
		syncInterval: cfg.SyncInterval,
		log:          log,
	}, nil
}

// Run performs a pass immediately and then one per interval until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.syncService == nil {
		return fmt.Errorf("syncer is not initialized")
	}

	s.log.InfoObj("sync loop starting", "syncer_state", map[string]any{
		"publishers_count": s.fanout.Size(),
		"sync_interval":    s.syncInterval.String(),
	})

	if err := s.RunOnce(ctx); err != nil {
		s.log.ErrorObj("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sync loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled sync failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sync pass.
func (s *Syncer) RunOnce(ctx context.Context) error {
	if s == nil || s.syncService == nil {
		return fmt.Errorf("syncer is not initialized")
	}
	start := time.Now()
	s.log.InfoObj("sync started", "sync_meta", map[string]any{
		"started_at": start.UTC(),
	})
	stats, err := s.syncService.Run(ctx)
	s.log.InfoObj("sync completed", "sync_meta", map[string]any{
		"follow_users": stats.FollowUsers,
		"listed":       stats.Listed,
		"published":    stats.Published,
		"skipped":      stats.Skipped,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return err
}

// Close shuts down publishers and storage.
func (s *Syncer) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.fanout != nil {
		if err := s.fanout.Close(); err != nil {
			s.log.ErrorObj("publisher close failed", "error", err)
			errs = append(errs, err)
		}
	}
	if err := s.api.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
