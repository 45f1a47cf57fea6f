package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"credchain/pkg/platform/circuit"
)

// KafkaSink publishes audit events to a Kafka topic keyed by session so a
// session's events land in one partition, in order. A circuit breaker keeps
// broker outages from flooding the logs; the store still holds every event.
type KafkaSink struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &KafkaSink{
		client:  client,
		topic:   topic,
		breaker: circuit.New("audit-kafka", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:  logger,
	}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(event.SessionID),
		Value: payload,
	}

	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		open, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.Warn("audit kafka circuit opened", "breaker", s.breaker.Name(), "error", err)
		}
		if open && !change.Opened {
			// Circuit already open, keep quiet until it closes again.
			return nil
		}
		return fmt.Errorf("produce audit event: %w", err)
	}

	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.Info("audit kafka circuit closed", "breaker", s.breaker.Name())
	}
	return nil
}

func (s *KafkaSink) Close() error {
	s.client.Close()
	return nil
}
