package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://qyapi.weixin.qq.com/cgi-bin/"

const (
	accessTokenParam = "access_token"
	maxSnippetBytes  = 512

	errCodeInvalidToken = 40014
	errCodeExpiredToken = 42001
)

// Options configures a RestyClient.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Logger  Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
	tokens TokenSource
	log    Logger
}

// NewRestyClient creates a new RestyClient resolving paths against opts.BaseURL.
func NewRestyClient(opts Options) *RestyClient {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	c := newRestyBaseClient(opts.Timeout)
	c.SetBaseURL(base)
	return &RestyClient{
		client: c,
		tokens: opts.Tokens,
		log:    ensureLogger(opts.Logger),
	}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// Get performs a GET request with params encoded into the query string.
func (r *RestyClient) Get(ctx context.Context, path string, query Params) (Result, error) {
	req, err := r.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range query {
		for _, s := range queryValues(v) {
			req.QueryParam.Add(k, s)
		}
	}
	return r.execute(ctx, req, http.MethodGet, path)
}

// PostJSON performs a POST request with params as the JSON body.
func (r *RestyClient) PostJSON(ctx context.Context, path string, body Params) (Result, error) {
	req, err := r.newRequest(ctx)
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = Params{}
	}
	req.SetHeader("Content-Type", "application/json")
	req.SetBody(body)
	return r.execute(ctx, req, http.MethodPost, path)
}

func (r *RestyClient) newRequest(ctx context.Context) (*resty.Request, error) {
	req := r.client.R().SetContext(ctx)
	if r.tokens == nil {
		return req, nil
	}
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	req.SetQueryParam(accessTokenParam, token)
	return req, nil
}

func (r *RestyClient) execute(ctx context.Context, req *resty.Request, method, path string) (Result, error) {
	path = strings.TrimLeft(path, "/")
	r.log.DebugObj("api request", "api_request", map[string]any{
		"method": method,
		"path":   path,
	})

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, NewStatusError(resp.StatusCode(), resp.Body())
	}

	result, err := decodeResult(resp.Body())
	if err != nil {
		return nil, err
	}

	if code := result.ErrCode(); code == errCodeInvalidToken || code == errCodeExpiredToken {
		r.log.WarnObj("access token rejected", "api_token", map[string]any{
			"path":    path,
			"errcode": code,
		})
		if r.tokens != nil {
			if err := r.tokens.Invalidate(ctx); err != nil {
				r.log.WarnObj("access token invalidate failed", "error", err.Error())
			}
		}
	}
	return result, nil
}

func decodeResult(body []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var result Result
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result == nil {
		result = Result{}
	}
	return result, nil
}

// queryValues renders a parameter value as one or more query string values.
func queryValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{t}
	case []string:
		return t
	case fmt.Stringer:
		return []string{t.String()}
	default:
		return []string{fmt.Sprint(t)}
	}
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxSnippetBytes {
		body = body[:maxSnippetBytes]
	}
	return strings.TrimSpace(string(body))
}
