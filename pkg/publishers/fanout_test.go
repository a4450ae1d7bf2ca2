package publishers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  atomic.Int32
	closed bool
}

func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls.Add(1)
	return s.err
}

func TestFanoutCountsDeliveriesAndReportsFailures(t *testing.T) {
	boom := errors.New("queue full")
	ok := &stubPublisher{id: "hook", typ: TypeHTTP}
	bad := &stubPublisher{id: "queue", typ: TypeSQS, err: boom}
	fanout := NewFanout([]Publisher{ok, bad})

	count, err := fanout.Publish(context.Background(), testEvent())
	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
	if ok.calls.Load() != 1 || bad.calls.Load() != 1 {
		t.Fatalf("every sink must be tried once")
	}
	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if delivery.PublisherID != "queue" || delivery.ExternalUserID != "wm1" || !errors.Is(err, boom) {
		t.Fatalf("unexpected delivery error %+v", delivery)
	}
}

func TestFanoutWithoutSinksDeliversNothing(t *testing.T) {
	count, err := NewFanout(nil).Publish(context.Background(), testEvent())
	if count != 0 || err != nil {
		t.Fatalf("expected 0, nil; got %d, %v", count, err)
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	a := &stubPublisher{id: "a", typ: TypePubSub}
	b := &stubPublisher{id: "b", typ: TypePubSub}
	fanout := NewFanout([]Publisher{a, nil, b})
	if fanout.Size() != 2 {
		t.Fatalf("nil publishers must be skipped, size=%d", fanout.Size())
	}
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("expected all publishers closed")
	}
}

func TestBuildersFanoutClosesPartialBuilds(t *testing.T) {
	opened := &stubPublisher{id: "first", typ: "stub"}
	builders := Builders{
		"stub": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return opened, nil },
		"fail": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return nil, errors.New("no credentials") },
	}

	_, err := builders.Fanout(context.Background(), []PublisherConfig{
		{ID: "first", Type: "stub"},
		{ID: "second", Type: "fail"},
	}, nil)
	if err == nil {
		t.Fatalf("expected build error")
	}
	if !opened.closed {
		t.Fatalf("sink built before the failure must be closed")
	}
}

func TestDefaultBuildersBuildHTTP(t *testing.T) {
	fanout, err := DefaultBuilders().Fanout(context.Background(), []PublisherConfig{
		webhookConfig("https://example.com/contacts"),
	}, nil)
	if err != nil {
		t.Fatalf("Fanout: %v", err)
	}
	if fanout.Size() != 1 {
		t.Fatalf("expected 1 sink, got %d", fanout.Size())
	}
}

func TestBuildersRejectUnknownType(t *testing.T) {
	if _, err := DefaultBuilders().Build(context.Background(), PublisherConfig{ID: "k", Type: "kafka"}, nil); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
	if _, err := DefaultBuilders().Fanout(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for empty config list")
	}
}
