package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type countingHandler struct {
	calls    int
	failures int
	panics   bool
	deadline bool
}

func (h *countingHandler) Topic() string { return "cyclescope.refresh" }

func (h *countingHandler) Handle(ctx context.Context, _ []byte) error {
	h.calls++
	if _, ok := ctx.Deadline(); ok {
		h.deadline = true
	}
	if h.panics {
		panic("boom")
	}
	if h.calls <= h.failures {
		return errors.New("redis down")
	}
	return nil
}

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{
		WithConsumerBrokers([]string{"127.0.0.1:1"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	}, opts...)
	c, err := NewConsumer(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	c := newTestConsumer(t, WithConsumerHandlerTimeout(time.Second))
	h := &countingHandler{failures: 2}

	if got := c.process(h, kafka.Message{Topic: h.Topic()}); got != outcomeOK {
		t.Fatalf("outcome = %s", got)
	}
	if h.calls != 3 || !h.deadline {
		t.Fatalf("calls = %d deadline = %v", h.calls, h.deadline)
	}
}

func TestProcessGivesUpWithoutDLQ(t *testing.T) {
	c := newTestConsumer(t)
	h := &countingHandler{failures: 10}

	if got := c.process(h, kafka.Message{Topic: h.Topic()}); got != outcomeFailed {
		t.Fatalf("outcome = %s", got)
	}
	if h.calls != 3 {
		t.Fatalf("calls = %d, want 1 + 2 retries", h.calls)
	}
}

func TestProcessSkipsStaleMessages(t *testing.T) {
	c := newTestConsumer(t, WithConsumerMaxAge(time.Minute))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	h := &countingHandler{}

	if got := c.process(h, kafka.Message{Topic: h.Topic(), Time: now.Add(-2 * time.Minute)}); got != outcomeStale {
		t.Fatalf("outcome = %s", got)
	}
	if got := c.process(h, kafka.Message{Topic: h.Topic(), Time: now.Add(-30 * time.Second)}); got != outcomeOK {
		t.Fatalf("fresh outcome = %s", got)
	}
	if h.calls != 1 {
		t.Fatalf("calls = %d", h.calls)
	}
}

func TestProcessRecoversPanics(t *testing.T) {
	c := newTestConsumer(t)
	if got := c.process(&countingHandler{panics: true}, kafka.Message{Topic: "t"}); got != outcomeFailed {
		t.Fatalf("outcome = %s", got)
	}
}

func TestProcessStopsRetryingOnShutdown(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(5, time.Hour, time.Hour))
	h := &countingHandler{failures: 10}
	go func() {
		time.Sleep(20 * time.Millisecond)
		c.cancel()
	}()

	if got := c.process(h, kafka.Message{Topic: h.Topic()}); got != outcomeFailed {
		t.Fatalf("outcome = %s", got)
	}
	if h.calls != 1 {
		t.Fatalf("calls = %d", h.calls)
	}
}

func TestNewConsumerValidates(t *testing.T) {
	if _, err := NewConsumer(WithConsumerBrokers([]string{"x:1"}), WithConsumerAutoOffsetReset("middle")); err == nil {
		t.Fatal("expected offset reset error")
	}
	c := newTestConsumer(t)
	if err := c.Start(); err == nil {
		t.Fatal("expected error without handlers")
	}
}
