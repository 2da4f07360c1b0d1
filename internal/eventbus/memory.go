package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"orderflow/internal/event"
)

const (
	memoryMaxAttempts    = 3
	memoryRedeliverDelay = 10 * time.Millisecond
)

// MemoryBus is an in-process Bus used by tests and single-binary
// deployments. It mimics the broker contract the service is written
// against: every delivery runs as its own goroutine, failures never
// propagate to the publisher, and retryable failures are redelivered.
type MemoryBus struct {
	logger *slog.Logger

	mu      sync.RWMutex
	subs    []subscription
	started bool
	closed  bool

	inflight sync.WaitGroup
}

type subscription struct {
	group   string
	subject string
	handler Handler
}

func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{logger: logger}
}

func (b *MemoryBus) Subscribe(group, subject string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{group: group, subject: subject, handler: h})
}

func (b *MemoryBus) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	return nil
}

func (b *MemoryBus) Close(_ context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.inflight.Wait()
	return nil
}

// Publish dispatches the event to every matching subscription, each on
// its own goroutine. It never returns a handler error.
func (b *MemoryBus) Publish(_ context.Context, e event.Event) error {
	b.mu.RLock()
	closed := b.closed
	matched := make([]subscription, 0, 2)
	for _, s := range b.subs {
		if subjectMatches(s.subject, e.Subject()) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	if closed {
		return errors.New("bus is closed")
	}

	for _, s := range matched {
		b.inflight.Add(1)
		go b.deliver(s, e)
	}
	return nil
}

func (b *MemoryBus) deliver(s subscription, e event.Event) {
	defer b.inflight.Done()

	for attempt := 1; ; attempt++ {
		err := s.handler(context.Background(), e)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrRetryable) || attempt >= memoryMaxAttempts {
			level := slog.LevelError
			if errors.Is(err, event.ErrValidation) {
				level = slog.LevelWarn
			}
			b.logger.Log(context.Background(), level, "dropping event after handler failure",
				"subject", e.Subject(),
				"event_id", e.ID,
				"attempt", attempt,
				"error", err.Error())
			return
		}
		b.logger.Warn("redelivering event after retryable failure",
			"group", s.group,
			"subject", e.Subject(),
			"event_id", e.ID,
			"attempt", attempt,
			"error", err.Error())
		time.Sleep(memoryRedeliverDelay)
	}
}

// Drain blocks until all in-flight deliveries have finished. Tests use
// this to assert on post-dispatch state.
func (b *MemoryBus) Drain() {
	b.inflight.Wait()
}

// subjectMatches supports AMQP-style '*' single-segment wildcards, e.g.
// "order_service.order.*" matches "order_service.order.created".
func subjectMatches(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	pp := strings.Split(pattern, ".")
	sp := strings.Split(subject, ".")
	if len(pp) != len(sp) {
		return false
	}
	for i := range pp {
		if pp[i] != "*" && pp[i] != sp[i] {
			return false
		}
	}
	return true
}
