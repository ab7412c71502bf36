package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ProducerConfig holds producer settings
type ProducerConfig struct {
	Brokers        []string
	ClientID       string
	ProduceTimeout time.Duration
}

// Producer publishes JSON records synchronously
type Producer struct {
	client  *kgo.Client
	timeout time.Duration
}

// NewProducer connects to the brokers and verifies the connection
func NewProducer(ctx context.Context, cfg *ProducerConfig) (*Producer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.ProduceTimeout == 0 {
		cfg.ProduceTimeout = 5 * time.Second
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &Producer{client: client, timeout: cfg.ProduceTimeout}, nil
}

// ProduceJSON encodes value and writes it to topic, keyed for per-key ordering
func (p *Producer) ProduceJSON(ctx context.Context, topic, key string, value interface{}, headers map[string]string) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", topic, err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending records and closes the client
func (p *Producer) Close() {
	if p.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
