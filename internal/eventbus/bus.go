package eventbus

import (
	"context"

	"orderflow/internal/event"
	"orderflow/internal/pkg/errs"
)

// ErrRetryable marks handler failures caused by transient conditions
// (storage outage, broker hiccup). The consumer nacks and requeues the
// delivery instead of dropping it; everything else is acked after
// logging so one poison message cannot stall the stream.
var ErrRetryable = errs.New("retryable handler failure")

// Handler processes one delivery of an event. Deliveries are
// at-least-once and unordered across subjects, so handlers must be
// idempotent and tolerate missing aggregates.
type Handler func(ctx context.Context, e event.Event) error

type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Bus delivers pattern-subscribed events at-least-once. Subscribe must
// be called before Start; the subscription set is static after that.
// Each group is an independent consumer: when two groups subscribe to
// the same subject, each receives its own copy of every event.
type Bus interface {
	Publisher
	Subscribe(group, subject string, h Handler)
	Start(ctx context.Context) error
	Close(ctx context.Context) error
}
