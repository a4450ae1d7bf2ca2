package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/piccscy/wechat/pkg/httpclient"
)

// httpPublisher posts contact events to a webhook.
type httpPublisher struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.HTTP.Headers)

	return &httpPublisher{
		id:     cfg.ID,
		method: cfg.HTTP.Method,
		url:    cfg.HTTP.URL,
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the event as the JSON body with its routing attributes as X-Contact-* headers.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.client.R().SetContext(ctx).SetBody(evt)
	for name, value := range evt.attributes() {
		if value != "" {
			req.SetHeader(attributeHeader(name), value)
		}
	}

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("deliver contact %s: %w", evt.ExternalUserID, err)
	}
	if !resp.IsSuccess() {
		return httpclient.NewStatusError(resp.StatusCode(), resp.Body())
	}

	h.log.DebugObj("webhook accepted contact", "publisher_http_delivery", map[string]any{
		"publisher_id":    h.id,
		"external_userid": evt.ExternalUserID,
		"status":          resp.StatusCode(),
	})
	return nil
}

// attributeHeader maps follow_userid to X-Contact-Follow-Userid.
func attributeHeader(attr string) string {
	parts := strings.Split(attr, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return "X-Contact-" + strings.Join(parts, "-")
}
