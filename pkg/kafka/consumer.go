package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	xlogger "CycleScope/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerOption configures Consumer. Zero values keep the defaults.
type ConsumerOption func(*ConsumerConfig)

type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	AutoOffsetReset string // earliest or latest
	WorkerCount     int
	BufferSize      int
	RetryMax        int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	HandlerTimeout  time.Duration // per attempt, 0 for none
	MaxAge          time.Duration // older messages are committed unhandled, 0 for none
	DLQTopic        string
	MinBytes        int
	MaxBytes        int
	Logger          *xlogger.Logger
}

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:         "cyclescope",
		AutoOffsetReset: "earliest",
		WorkerCount:     1,
		BufferSize:      10,
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        1,
		MaxBytes:        10e6,
	}
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if groupID != "" {
			c.GroupID = groupID
		}
	}
}

// WithConsumerAutoOffsetReset picks where a new group starts: "earliest" or "latest".
func WithConsumerAutoOffsetReset(reset string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if reset != "" {
			c.AutoOffsetReset = reset
		}
	}
}

func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// WithConsumerRetry configures retry attempts after the first and the backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		if max >= 0 {
			c.RetryMax = max
		}
		if backoffMin > 0 {
			c.BackoffMin = backoffMin
		}
		if backoffMax > 0 {
			c.BackoffMax = backoffMax
		}
	}
}

// WithConsumerHandlerTimeout bounds each Handle attempt.
func WithConsumerHandlerTimeout(d time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) { c.HandlerTimeout = d }
}

// WithConsumerMaxAge skips messages produced longer than d ago.
func WithConsumerMaxAge(d time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) { c.MaxAge = d }
}

// WithConsumerDLQ sets the topic failed messages are forwarded to.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if minBytes > 0 {
			c.MinBytes = minBytes
		}
		if maxBytes > 0 {
			c.MaxBytes = maxBytes
		}
	}
}

func WithConsumerLogger(l *xlogger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) { c.Logger = l }
}

// Outcomes recorded per handled message.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
	outcomeDLQ    = "dlq"
	outcomeStale  = "stale"
)

// Consumer reads the registered topics and hands messages to a fixed set of
// worker lanes. A partition always maps to the same lane, so messages of one
// partition are handled in order.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *xlogger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	lanes    []chan kafka.Message
	dlq      *kafka.Writer
	now      func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return nil, fmt.Errorf("unknown auto offset reset %q", cfg.AutoOffsetReset)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = xlogger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:      cfg,
		log:      logger,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	initConsumerMetricsOnce()
	return c, nil
}

// RegisterHandler registers h for its topic. Must be called before Start.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	topic := h.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", xlogger.String("topic", topic))
		return
	}
	c.handlers[topic] = h
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	startOffset := kafka.FirstOffset
	if c.cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	c.lanes = make([]chan kafka.Message, c.cfg.WorkerCount)
	for i := range c.lanes {
		c.lanes[i] = make(chan kafka.Message, c.cfg.BufferSize)
		c.wg.Add(1)
		go c.work(c.lanes[i])
	}

	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: startOffset,
		})
		c.readers[topic] = r
		c.wg.Add(1)
		go c.fetch(topic, r)
	}

	c.log.Info("kafka consumer started",
		xlogger.String("group", c.cfg.GroupID),
		xlogger.Int("workers", c.cfg.WorkerCount),
		xlogger.Int("topics", len(c.readers)),
	)
	return nil
}

// Stop cancels in-flight handlers, closes the readers and waits for the
// goroutines until ctx expires. Uncommitted messages are redelivered.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("kafka reader close failed", xlogger.String("topic", topic), xlogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("kafka dlq close failed", xlogger.Error(cerr))
			}
		}
		if err == nil {
			c.log.Info("kafka consumer stopped")
		}
	})
	return err
}

func (c *Consumer) fetch(topic string, r *kafka.Reader) {
	defer c.wg.Done()

	for {
		msg, err := r.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", xlogger.String("topic", topic), xlogger.Error(err))
			if !sleepCtx(c.ctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}

		lane := c.lanes[msg.Partition%len(c.lanes)]
		select {
		case lane <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(lane)))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(lane <-chan kafka.Message) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-lane:
			h, ok := c.handlers[msg.Topic]
			if !ok {
				continue
			}
			start := time.Now()
			outcome := c.process(h, msg)
			consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
			consumerMessages.WithLabelValues(msg.Topic, outcome).Inc()

			if outcome != outcomeFailed || c.dlq != nil {
				c.commit(msg)
			}
		}
	}
}

// process runs h with retries. Failures are forwarded to the DLQ when one is
// configured; a message that could not be parked is left uncommitted.
func (c *Consumer) process(h MessageHandler, msg kafka.Message) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic in kafka handler", xlogger.String("topic", msg.Topic), xlogger.Any("panic", r))
			outcome = c.park(msg, fmt.Errorf("panic: %v", r))
		}
	}()

	if c.cfg.MaxAge > 0 && !msg.Time.IsZero() && c.now().Sub(msg.Time) > c.cfg.MaxAge {
		c.log.Info("kafka message stale, skipping",
			xlogger.String("topic", msg.Topic),
			xlogger.Int64("offset", msg.Offset),
			xlogger.Duration("age_ms", c.now().Sub(msg.Time)),
		)
		return outcomeStale
	}

	var err error
	attempts := 0
	for {
		attempts++
		err = c.handleOnce(h, msg.Value)
		if err == nil {
			return outcomeOK
		}
		if attempts > c.cfg.RetryMax || c.ctx.Err() != nil {
			break
		}
		if !sleepCtx(c.ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)) {
			break
		}
	}

	if c.ctx.Err() != nil {
		return outcomeFailed
	}
	c.log.Error("kafka handler failed",
		xlogger.String("topic", msg.Topic),
		xlogger.Int("attempts", attempts),
		xlogger.Error(err),
	)
	return c.park(msg, err)
}

func (c *Consumer) handleOnce(h MessageHandler, data []byte) error {
	ctx := c.ctx
	if c.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.HandlerTimeout)
		defer cancel()
	}
	return h.Handle(ctx, data)
}

func (c *Consumer) park(msg kafka.Message, cause error) string {
	if c.dlq == nil {
		return outcomeFailed
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Time:  c.now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(msg.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.log.Error("kafka dlq write failed", xlogger.String("topic", c.cfg.DLQTopic), xlogger.Error(err))
		return outcomeFailed
	}
	return outcomeDLQ
}

// commit retries a few times; a lost commit only means the message is seen again.
func (c *Consumer) commit(msg kafka.Message) {
	r := c.readers[msg.Topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka commit failed",
		xlogger.String("topic", msg.Topic),
		xlogger.Int64("offset", msg.Offset),
		xlogger.Error(err),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerMessages      *prometheus.CounterVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "cyclescope_kafka_consumer_queue_depth", Help: "Messages waiting in a worker lane"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cyclescope_kafka_consumer_handle_seconds",
				Help:    "Handling time per message, retries included",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"topic"},
		)
		consumerMessages = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "cyclescope_kafka_consumer_messages_total", Help: "Handled messages by outcome"},
			[]string{"topic", "outcome"},
		)
	})
}
