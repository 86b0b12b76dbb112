package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinematch/internal/config"
	"github.com/temcen/cinematch/internal/metrics"
	"github.com/temcen/cinematch/pkg/models"
)

const RecommendationServedEvent = "recommendation.served"

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends served recommendation lists to Kafka for offline
// evaluation. It never blocks a request longer than its write timeout.
type Publisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewPublisher(cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topics.Recommendations,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        cfg.Kafka.Async,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		BatchSize:    cfg.Kafka.BatchSize,
	}
	if cfg.Kafka.Async {
		writer.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				logger.WithError(err).WithField("messages", len(messages)).Warn("Async Kafka write failed")
			}
		}
	}
	return newPublisher(writer, cfg.Kafka.Topics.Recommendations, cfg.Kafka.WriteTimeout, m, logger)
}

func newPublisher(w messageWriter, topic string, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{writer: w, topic: topic, timeout: timeout, metrics: m, logger: logger}
}

func (p *Publisher) PublishRecommendation(ctx context.Context, event models.RecommendationEvent) error {
	msg, err := newEventMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, msg)
	p.metrics.EventPublished(err)
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"strategy": event.Strategy,
		"topic":    p.topic,
	}).Debug("Recommendation event published")
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// newEventMessage keys messages by strategy so each strategy's events stay
// ordered within one partition.
func newEventMessage(event models.RecommendationEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Strategy),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(RecommendationServedEvent)},
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
