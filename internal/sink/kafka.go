package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/okairos/weatherd/pkg/types"
)

var _ Sink = (*Kafka)(nil)

// Kafka publishes each unit as one JSON message. Messages are keyed by
// station so a partitioned topic keeps per-station order; a uuid message id
// header lets downstream consumers deduplicate redeliveries.
type Kafka struct {
	producer sarama.SyncProducer
	brokers  []string

	// Topic per delivery kind.
	ObservationTopic string
	ArchiveTopic     string
	DailyTopic       string
}

func NewKafka(brokers []string) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Kafka{
		producer:         producer,
		brokers:          brokers,
		ObservationTopic: "weather.observations",
		ArchiveTopic:     "weather.archive",
		DailyTopic:       "weather.daily",
	}, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) publish(ctx context.Context, topic, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("message_id"), Value: []byte(uuid.NewString())},
		},
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (k *Kafka) WriteObservation(ctx context.Context, obs *types.Observation) error {
	return k.publish(ctx, k.ObservationTopic, obs.StationID, obs)
}

func (k *Kafka) WriteArchive(ctx context.Context, rec *types.ArchiveRecord) error {
	return k.publish(ctx, k.ArchiveTopic, rec.StationID, rec)
}

func (k *Kafka) WriteDaily(ctx context.Context, sum *types.DailySummary) error {
	return k.publish(ctx, k.DailyTopic, sum.StationID, sum)
}

func (k *Kafka) Ping(ctx context.Context) error {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	client, err := sarama.NewClient(k.brokers, cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer client.Close()
	if _, err := client.Topics(); err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
