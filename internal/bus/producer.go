package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes pipeline messages. acks=all with bounded retries: a
// publish either lands on all replicas or reports an error the caller must
// act on (intake demotes the submission to failed).
type Producer struct {
	writer  *kafka.Writer
	brokers []string
	logger  *slog.Logger
}

// NewProducer connects a producer to the given brokers.
func NewProducer(brokers []string) *Producer {
	return &Producer{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            3,
			WriteBackoffMax:        time.Second,
			WriteTimeout:           30 * time.Second,
			AllowAutoTopicCreation: true,
		},
		logger: slog.With("component", "bus.producer"),
	}
}

// PublishIngest publishes the stage-1 payload for a committed submission.
func (p *Producer) PublishIngest(ctx context.Context, msg IngestMessage) error {
	msg.Stage = "ingest"
	msg.Timestamp = now()
	return p.publish(ctx, TopicIngest, msg.SubmissionID, msg)
}

// PublishOcr publishes the stage-2 payload after OCR text is persisted.
func (p *Producer) PublishOcr(ctx context.Context, msg OcrMessage) error {
	msg.Stage = "ocr_completed"
	msg.Timestamp = now()
	return p.publish(ctx, TopicOcr, msg.SubmissionID, msg)
}

// PublishMetadata publishes the stage-3 payload after metadata is persisted.
func (p *Producer) PublishMetadata(ctx context.Context, msg MetadataMessage) error {
	msg.Stage = "metadata_extracted"
	msg.Timestamp = now()
	return p.publish(ctx, TopicMetadata, msg.SubmissionID, msg)
}

func (p *Producer) publish(ctx context.Context, topic string, submissionID int64, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(submissionID, 10)),
		Value: payload,
	})
	if err != nil {
		p.logger.Error("publish failed", "topic", topic, "submission_id", submissionID, "error", err)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.Info("message published", "topic", topic, "submission_id", submissionID)
	return nil
}

// HealthCheck dials the first broker to verify the cluster is reachable.
func (p *Producer) HealthCheck(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka unreachable: %w", err)
	}
	return conn.Close()
}

// Close flushes and shuts down the producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
