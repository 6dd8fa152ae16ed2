package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a batch to a topic. pkg/kafka.Producer satisfies it.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval, default 30s
	CountThreshold int           // distinct entries that force an early flush, default 100
	MinLevel       string        // lowest level collected, default "warn"
	Source         string        // stamped on every batch
	Topic          string
	Publisher      Publisher
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogBatch is one flush, most frequent entries first.
type LogBatch struct {
	Source    string               `json:"source"`
	FlushedAt time.Time            `json:"flushed_at"`
	Entries   []AggregatedLogEntry `json:"entries"`
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// LogCollector deduplicates repeated log lines and ships them in periodic batches.
type LogCollector struct {
	config  CollectionConfig
	minRank int
	mu      sync.Mutex
	entries map[uint64]*AggregatedLogEntry
	flushCh chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	now     func() time.Time
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if cfg.MinLevel == "" {
		cfg.MinLevel = "warn"
	}
	if cfg.Source == "" {
		cfg.Source = "cyclescope"
	}

	d := &LogCollector{
		config:  cfg,
		minRank: levelRank[cfg.MinLevel],
		entries: make(map[uint64]*AggregatedLogEntry),
		flushCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	if rank, ok := levelRank[level]; ok && rank < d.minRank {
		return
	}
	now := d.now()
	key := entryKey(level, message, fields, caller)

	d.mu.Lock()
	if e, ok := d.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		d.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	full := len(d.entries) >= d.config.CountThreshold
	d.mu.Unlock()

	if full {
		select {
		case d.flushCh <- struct{}{}:
		default:
		}
	}
}

// entryKey hashes the identity of a log line. Field maps marshal with sorted keys.
func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(level + "\x00" + message + "\x00" + caller + "\x00"))
	if b, err := json.Marshal(fields); err == nil {
		_, _ = h.Write(b)
	}
	return h.Sum64()
}

func (d *LogCollector) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.flush()
		case <-d.flushCh:
			d.flush()
		case <-d.done:
			d.flush()
			return
		}
	}
}

func (d *LogCollector) drain() []AggregatedLogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.entries) == 0 {
		return nil
	}
	out := make([]AggregatedLogEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	d.entries = make(map[uint64]*AggregatedLogEntry)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FirstSeen.Before(out[j].FirstSeen)
	})
	return out
}

// flush publishes outside the lock. Failures go to stderr since logging them would feed the collector.
func (d *LogCollector) flush() {
	entries := d.drain()
	if len(entries) == 0 || d.config.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch := LogBatch{Source: d.config.Source, FlushedAt: d.now().UTC(), Entries: entries}
	if err := d.config.Publisher.PublishMessage(ctx, d.config.Topic, batch); err != nil {
		fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(entries), err)
	}
}

// Close flushes what is pending and stops the loop.
func (d *LogCollector) Close() {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
}
