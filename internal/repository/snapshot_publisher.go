package repository

import (
	"context"
	"time"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
)

// topicWriter is the subset of pkg/kafka.Producer the publisher needs.
type topicWriter interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// ScreenerEnvelope wraps a screener result on the screener topic.
type ScreenerEnvelope struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Payload     interface{} `json:"payload"`
}

// KafkaSnapshotPublisher implements SnapshotPublisher for Kafka.
type KafkaSnapshotPublisher struct {
	producer       topicWriter
	dashboardTopic string
	screenerTopic  string
	now            func() time.Time
}

// NewKafkaSnapshotPublisher creates a Kafka snapshot publisher.
func NewKafkaSnapshotPublisher(producer topicWriter, dashboardTopic, screenerTopic string) drepo.SnapshotPublisher {
	return &KafkaSnapshotPublisher{
		producer:       producer,
		dashboardTopic: dashboardTopic,
		screenerTopic:  screenerTopic,
		now:            time.Now,
	}
}

// PublishDashboard keys the message by snapshot date so one day compacts to its latest value.
func (p *KafkaSnapshotPublisher) PublishDashboard(ctx context.Context, s models.DashboardSnapshot) error {
	return p.producer.Publish(ctx, p.dashboardTopic, []byte(s.Date), s)
}

func (p *KafkaSnapshotPublisher) PublishScreener(ctx context.Context, kind string, payload interface{}) error {
	return p.producer.Publish(ctx, p.screenerTopic, []byte(kind), ScreenerEnvelope{
		Kind:        kind,
		GeneratedAt: p.now().UTC(),
		Payload:     payload,
	})
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopSnapshotPublisher drops every snapshot. Used when Kafka is disabled.
type NopSnapshotPublisher struct{}

func (NopSnapshotPublisher) PublishDashboard(context.Context, models.DashboardSnapshot) error {
	return nil
}

func (NopSnapshotPublisher) PublishScreener(context.Context, string, interface{}) error {
	return nil
}

func (NopSnapshotPublisher) Close() error { return nil }
