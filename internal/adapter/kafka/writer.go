// Package kafka publishes normalized incidents to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/config"
	"github.com/couchcryptid/police-incident-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Message header keys.
const (
	HeaderTimeOfDay = "time_of_day"
	HeaderCategory  = "incident_category"
	HeaderPriority  = "response_priority"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces incident messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured incident topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           100 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// LoadBatch publishes every keyed incident in a single WriteMessages call.
// Incidents are keyed by incident number, so the hash balancer keeps
// republished incidents on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, incidents []domain.Incident) (int, error) {
	keyed, _ := domain.SplitUnkeyed(incidents)
	if len(keyed) == 0 {
		return 0, nil
	}
	msgs := make([]kafkago.Message, len(keyed))
	for i := range keyed {
		msg, err := serializeToMessage(keyed[i])
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish incidents: %w", err)
	}
	w.logger.Debug("incidents published", "count", len(msgs))
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Incident into a Kafka message.
func serializeToMessage(inc domain.Incident) (kafkago.Message, error) {
	data, err := json.Marshal(inc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize incident: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(inc.IncidentNumber),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderTimeOfDay, Value: []byte(inc.TimeOfDay)},
			{Key: HeaderCategory, Value: []byte(inc.IncidentCategory)},
			{Key: HeaderPriority, Value: []byte(inc.ResponsePriority)},
		},
	}, nil
}
