package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DeliveryError reports a sink that rejected a contact event.
type DeliveryError struct {
	PublisherID    string
	PublisherType  string
	ExternalUserID string
	Err            error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s publisher[%s] contact %s: %v", e.PublisherType, e.PublisherID, e.ExternalUserID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Fanout delivers each contact event to every sink concurrently.
type Fanout struct {
	sinks []Publisher
}

// NewFanout skips nil sinks.
func NewFanout(pubs []Publisher) *Fanout {
	sinks := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			sinks = append(sinks, p)
		}
	}
	return &Fanout{sinks: sinks}
}

// Publish returns how many sinks accepted the event. Failures are joined in
// sink order as *DeliveryError values.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	var (
		g         errgroup.Group
		delivered atomic.Int32
		failures  = make([]error, len(f.sinks))
	)
	for i, sink := range f.sinks {
		i, sink := i, sink
		g.Go(func() error {
			if err := sink.Publish(ctx, evt); err != nil {
				failures[i] = &DeliveryError{
					PublisherID:    sink.ID(),
					PublisherType:  sink.Type(),
					ExternalUserID: evt.ExternalUserID,
					Err:            err,
				}
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load()), errors.Join(failures...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Close releases sinks holding connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, sink := range f.sinks {
		closer, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", sink.Type(), sink.ID(), err))
		}
	}
	return errors.Join(errs...)
}
