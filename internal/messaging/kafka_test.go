package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cinematch/internal/metrics"
	"github.com/temcen/cinematch/pkg/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	deadline bool
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testEvent() models.RecommendationEvent {
	return models.RecommendationEvent{
		EventID:   uuid.New(),
		Strategy:  "similarity",
		Ratings:   []models.RatingInput{{MovieID: 1, Rating: 5}},
		ItemIDs:   []int{2, 3},
		Scores:    []float64{4.5, 0},
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewEventMessage(t *testing.T) {
	event := testEvent()

	msg, err := newEventMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("similarity"), msg.Key)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, RecommendationServedEvent, headers["event_type"])
	assert.Equal(t, event.EventID.String(), headers["event_id"])
	assert.Equal(t, "2024-05-01T12:00:00Z", headers["timestamp"])

	var decoded models.RecommendationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ItemIDs, decoded.ItemIDs)
	assert.Equal(t, event.Ratings, decoded.Ratings)
}

func TestPublisher_PublishRecommendation(t *testing.T) {
	writer := &fakeWriter{}
	p := newPublisher(writer, "recommendation-events", time.Second, metrics.New(prometheus.NewRegistry()), testLogger())

	require.NoError(t, p.PublishRecommendation(context.Background(), testEvent()))
	assert.Len(t, writer.messages, 1)
	assert.True(t, writer.deadline, "writes must be bounded by a timeout")

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	p := newPublisher(writer, "recommendation-events", 0, nil, testLogger())

	err := p.PublishRecommendation(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 5*time.Second, p.timeout)
}
