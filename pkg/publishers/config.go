package publishers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
)

const defaultHTTPTimeoutSeconds = 5

// PublisherConfig is one sink entry of the publishers file.
type PublisherConfig struct {
	ID      string                 `yaml:"id"`
	Type    string                 `yaml:"type"`
	Enabled *bool                  `yaml:"enabled"`
	HTTP    *HTTPPublisherConfig   `yaml:"http"`
	SQS     *SQSPublisherConfig    `yaml:"sqs"`
	SNS     *SNSPublisherConfig    `yaml:"sns"`
	PubSub  *PubSubPublisherConfig `yaml:"pubsub"`
}

// HTTPPublisherConfig describes a webhook receiving contact events.
type HTTPPublisherConfig struct {
	URL            string            `yaml:"url"`
	Method         string            `yaml:"method"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

// AWSCredentials are optional static keys; without them the default chain is used.
type AWSCredentials struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// SQSPublisherConfig targets a queue.
type SQSPublisherConfig struct {
	QueueURL    string          `yaml:"uri"`
	Region      string          `yaml:"region"`
	Credentials *AWSCredentials `yaml:"credentials"`
}

// SNSPublisherConfig targets a topic.
type SNSPublisherConfig struct {
	TopicARN    string          `yaml:"topic_arn"`
	Region      string          `yaml:"region"`
	Credentials *AWSCredentials `yaml:"credentials"`
}

// PubSubPublisherConfig targets a Google Cloud Pub/Sub topic.
type PubSubPublisherConfig struct {
	ProjectID       string `yaml:"project_id"`
	Topic           string `yaml:"topic"`
	CredentialsFile string `yaml:"credentials_file"`
}

// IsEnabled reports the enabled flag; entries are enabled unless stated otherwise.
func (c PublisherConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Registry holds the validated entries of a publishers file in file order.
type Registry struct {
	entries []PublisherConfig
}

// LoadRegistry reads a publishers file. JSON files are accepted as YAML, and
// ${VAR} references are expanded from the environment so keys can stay out of the file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	reg, err := ParseRegistry([]byte(os.ExpandEnv(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// ParseRegistry decodes and validates publisher entries. Unknown keys are rejected.
func ParseRegistry(raw []byte) (*Registry, error) {
	var file struct {
		Publishers []PublisherConfig `yaml:"publishers"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode publishers: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("no publishers entries")
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	reg := &Registry{entries: make([]PublisherConfig, 0, len(file.Publishers))}
	for i, cfg := range file.Publishers {
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		reg.entries = append(reg.entries, cfg)
	}
	return reg, nil
}

// ByID looks an entry up by id.
func (r *Registry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	id = strings.TrimSpace(id)
	for _, cfg := range r.entries {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return PublisherConfig{}, false
}

// Enabled returns the entries to build, in file order.
func (r *Registry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	var out []PublisherConfig
	for _, cfg := range r.entries {
		if cfg.IsEnabled() {
			out = append(out, cfg)
		}
	}
	return out
}

func (c *PublisherConfig) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.HTTP != nil {
		h := *c.HTTP
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = http.MethodPost
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = defaultHTTPTimeoutSeconds
		}
		h.Headers = trimHeaders(h.Headers)
		c.HTTP = &h
	}
	if c.SQS != nil {
		q := *c.SQS
		q.QueueURL = strings.TrimSpace(q.QueueURL)
		q.Region = strings.TrimSpace(q.Region)
		q.Credentials = q.Credentials.trimmed()
		c.SQS = &q
	}
	if c.SNS != nil {
		s := *c.SNS
		s.TopicARN = strings.TrimSpace(s.TopicARN)
		s.Region = strings.TrimSpace(s.Region)
		s.Credentials = s.Credentials.trimmed()
		c.SNS = &s
	}
	if c.PubSub != nil {
		g := *c.PubSub
		g.ProjectID = strings.TrimSpace(g.ProjectID)
		g.Topic = strings.TrimSpace(g.Topic)
		g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
		c.PubSub = &g
	}
}

// validate checks that the block for the entry's type is present and complete.
func (c PublisherConfig) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	missing := func(field string) error {
		return fmt.Errorf("%s is required for publisher %q", field, c.ID)
	}
	switch c.Type {
	case TypeHTTP:
		switch {
		case c.HTTP == nil:
			return missing("http")
		case c.HTTP.URL == "":
			return missing("http.url")
		}
	case TypeSQS:
		switch {
		case c.SQS == nil:
			return missing("sqs")
		case c.SQS.QueueURL == "":
			return missing("sqs.uri")
		case c.SQS.Region == "":
			return missing("sqs.region")
		}
	case TypeSNS:
		switch {
		case c.SNS == nil:
			return missing("sns")
		case c.SNS.TopicARN == "":
			return missing("sns.topic_arn")
		case c.SNS.Region == "":
			return missing("sns.region")
		}
	case TypePubSub:
		switch {
		case c.PubSub == nil:
			return missing("pubsub")
		case c.PubSub.ProjectID == "":
			return missing("pubsub.project_id")
		case c.PubSub.Topic == "":
			return missing("pubsub.topic")
		}
	case "":
		return missing("type")
	default:
		return fmt.Errorf("publisher %q has unsupported type %q", c.ID, c.Type)
	}
	return nil
}

// trimmed drops the block entirely when no key pair is configured.
func (c *AWSCredentials) trimmed() *AWSCredentials {
	if c == nil {
		return nil
	}
	out := AWSCredentials{
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
		SessionToken:    strings.TrimSpace(c.SessionToken),
	}
	if out.AccessKeyID == "" && out.SecretAccessKey == "" {
		return nil
	}
	return &out
}

func trimHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
