package app

import (
	"fmt"

	"github.com/piccscy/wechat/internal/config"
	"github.com/piccscy/wechat/internal/logger"
	"github.com/piccscy/wechat/internal/storage"
	"github.com/piccscy/wechat/pkg/accesstoken"
	"github.com/piccscy/wechat/pkg/crm"
	"github.com/piccscy/wechat/pkg/httpclient"
)

// API bundles an authenticated customer-contact client with the store backing its token cache.
type API struct {
	CRM   *crm.Client
	store storage.Store
	log   logger.Logger
}

// NewAPI opens storage, builds the token provider and returns a ready client.
func NewAPI(cfg *config.Config, log logger.Logger) (*API, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	storeOpts := storage.Options{
		ContactTTL:      cfg.ContactTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"contact_ttl_seconds":      int(cfg.ContactTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	tokens, err := accesstoken.NewProvider(accesstoken.Config{
		CorpID:        cfg.CorpID,
		CorpSecret:    cfg.CorpSecret,
		BaseURL:       cfg.APIBaseURL,
		Timeout:       cfg.HTTPTimeout,
		RefreshMargin: cfg.TokenRefreshMargin,
	}, store, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init token provider: %w", err)
	}

	client := httpclient.NewRestyClient(httpclient.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.HTTPTimeout,
		Tokens:  tokens,
		Logger:  log,
	})

	return &API{
		CRM:   crm.New(client),
		store: store,
		log:   log,
	}, nil
}

// Store exposes the backing store for components that share it.
func (a *API) Store() storage.Store {
	if a == nil {
		return nil
	}
	return a.store
}

// Close releases the storage backend, logging any errors encountered.
func (a *API) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		a.log.ErrorObj("storage close failed", "error", err)
		return err
	}
	return nil
}
