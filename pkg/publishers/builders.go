package publishers

import (
	"context"
	"errors"
	"fmt"
)

// Builder constructs a sink from its config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps a publisher type to its constructor.
type Builders map[string]Builder

// DefaultBuilders knows every sink type this package ships.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	}
}

// Build constructs the sink for cfg.
func (b Builders) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	build, ok := b[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("publisher %q: no builder for type %q", cfg.ID, cfg.Type)
	}
	pub, err := build(ctx, cfg, ensureLogger(log))
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return pub, nil
}

// Fanout builds a sink per entry. Sinks opened before a failing entry are closed.
func (b Builders) Fanout(ctx context.Context, cfgs []PublisherConfig, log Logger) (*Fanout, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no publishers configured")
	}
	sinks := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := b.Build(ctx, cfg, log)
		if err != nil {
			_ = NewFanout(sinks).Close()
			return nil, err
		}
		sinks = append(sinks, pub)
	}
	return NewFanout(sinks), nil
}
