package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/RaikyD/orders-etl-service/internal/domain"
)

type Producer struct {
	w       *kafka.Writer
	brokers []string
}

func NewProducer(brokersSTR, topic string) *Producer {
	brokers := strings.Split(brokersSTR, ",")

	return &Producer{
		brokers: brokers,
		w: &kafka.Writer{
			Addr: kafka.TCP(brokers...),
			Topic: topic,
			// hash on the message key: all rows of one source land on one
			// partition, so per-source FIFO holds and online/offline never
			// head-of-line block each other
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Async:                  false,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

func (p *Producer) Publish(ctx context.Context, msg domain.IngestionMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Source),
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "upload-id", Value: []byte(msg.UploadID)},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Ping reports the queue reachable if any broker in the list answers.
func (p *Producer) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, lastErr)
}
