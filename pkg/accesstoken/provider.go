// Package accesstoken fetches and caches the corp access token attached to API calls.
package accesstoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/piccscy/wechat/pkg/httpclient"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath            = "gettoken"
	defaultRefreshMargin = 5 * time.Minute
	defaultTimeout       = 10 * time.Second
)

// Cache persists tokens across process restarts.
type Cache interface {
	LoadToken(key string) (token string, expiresAt time.Time, ok bool, err error)
	SaveToken(key, token string, expiresAt time.Time) error
	DeleteToken(key string) error
}

// Logger defines the logging surface the provider relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

// Config holds the credentials and tuning for a Provider.
type Config struct {
	CorpID        string
	CorpSecret    string
	BaseURL       string
	Timeout       time.Duration
	RefreshMargin time.Duration
}

// FetchError is returned when the token endpoint answers with a non-zero errcode.
type FetchError struct {
	Code int
	Msg  string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("gettoken errcode %d: %s", e.Code, e.Msg)
}

// Provider implements httpclient.TokenSource.
type Provider struct {
	cfg    Config
	client *resty.Client
	cache  Cache
	log    Logger
	now    func() time.Time
	group  singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

var _ httpclient.TokenSource = (*Provider)(nil)

// NewProvider builds a token provider. cache and log may be nil.
func NewProvider(cfg Config, cache Cache, log Logger) (*Provider, error) {
	cfg.CorpID = strings.TrimSpace(cfg.CorpID)
	cfg.CorpSecret = strings.TrimSpace(cfg.CorpSecret)
	if cfg.CorpID == "" {
		return nil, errors.New("corp id is required")
	}
	if cfg.CorpSecret == "" {
		return nil, errors.New("corp secret is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = httpclient.DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = defaultRefreshMargin
	}
	if log == nil {
		log = noopLogger{}
	}

	client := httpclient.NewRestyHTTPClient(cfg.Timeout)
	client.SetBaseURL(cfg.BaseURL)

	return &Provider{
		cfg:    cfg,
		client: client,
		cache:  cache,
		log:    log,
		now:    time.Now,
	}, nil
}

// Token returns a valid access token, fetching a new one when the cached copy is stale.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if tok, ok := p.memoryToken(); ok {
		return tok, nil
	}

	// The shared fetch outlives any single caller; the client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(p.cfg.CorpID, func() (any, error) {
		if tok, ok := p.memoryToken(); ok {
			return tok, nil
		}
		if tok, ok := p.cachedToken(); ok {
			return tok, nil
		}
		return p.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the in-memory and persisted token.
func (p *Provider) Invalidate(context.Context) error {
	p.mu.Lock()
	p.token = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()

	if p.cache == nil {
		return nil
	}
	if err := p.cache.DeleteToken(p.cfg.CorpID); err != nil {
		return fmt.Errorf("delete cached token: %w", err)
	}
	return nil
}

func (p *Provider) memoryToken() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token == "" || !p.fresh(p.expiresAt) {
		return "", false
	}
	return p.token, true
}

func (p *Provider) cachedToken() (string, bool) {
	if p.cache == nil {
		return "", false
	}
	tok, expiresAt, ok, err := p.cache.LoadToken(p.cfg.CorpID)
	if err != nil {
		p.log.WarnObj("token cache load failed", "error", err.Error())
		return "", false
	}
	if !ok || tok == "" || !p.fresh(expiresAt) {
		return "", false
	}
	p.store(tok, expiresAt)
	return tok, true
}

func (p *Provider) fresh(expiresAt time.Time) bool {
	return p.now().Add(p.cfg.RefreshMargin).Before(expiresAt)
}

func (p *Provider) store(tok string, expiresAt time.Time) {
	p.mu.Lock()
	p.token = tok
	p.expiresAt = expiresAt
	p.mu.Unlock()
}

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (p *Provider) fetch(ctx context.Context) (string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"corpid":     p.cfg.CorpID,
			"corpsecret": p.cfg.CorpSecret,
		}).
		Get(tokenPath)
	if err != nil {
		return "", fmt.Errorf("gettoken request: %w", err)
	}
	if !resp.IsSuccess() {
		return "", &httpclient.StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(string(resp.Body()))}
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("decode gettoken response: %w", err)
	}
	if body.ErrCode != 0 {
		return "", &FetchError{Code: body.ErrCode, Msg: body.ErrMsg}
	}
	if body.AccessToken == "" {
		return "", errors.New("gettoken response has empty access_token")
	}

	expiresAt := p.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	p.store(body.AccessToken, expiresAt)
	p.log.DebugObj("access token refreshed", "token_meta", map[string]any{
		"corp_id":    p.cfg.CorpID,
		"expires_at": expiresAt.UTC(),
	})

	if p.cache != nil {
		if err := p.cache.SaveToken(p.cfg.CorpID, body.AccessToken, expiresAt); err != nil {
			p.log.WarnObj("token cache save failed", "error", err.Error())
		}
	}
	return body.AccessToken, nil
}
