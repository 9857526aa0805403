package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/RaikyD/orders-etl-service/internal/application"
	"github.com/RaikyD/orders-etl-service/internal/domain"
	"github.com/RaikyD/orders-etl-service/internal/logger"
)

type ConsumerConfig struct {
	Brokers   string
	Topic     string
	GroupID   string
	Workers   int
	BatchSize int
}

// messageSource is the slice of kafka.Reader the worker loop uses; tests
// substitute it.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type processor interface {
	Process(ctx context.Context, msg domain.IngestionMessage) error
}

var retryDelay = 300 * time.Millisecond

// StartWorkers launches the classification worker pool. Each worker owns one
// reader in the same consumer group, pulls a small batch, writes every row in
// it, and only then commits offsets. The fetch cursor never moves past an
// unwritten row: a failed write is retried in place on the same batch, so a
// crash or shutdown leads to redelivery, never loss. Redelivered rows are
// safe because sink writes are idempotent.
func StartWorkers(ctx context.Context, proc *application.Processor, cfg ConsumerConfig) []*kafka.Reader {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	brokers := strings.Split(cfg.Brokers, ",")

	logger.Info("starting workers",
		"brokers", cfg.Brokers, "topic", cfg.Topic, "group", cfg.GroupID,
		"workers", cfg.Workers, "batch", cfg.BatchSize)

	readers := make([]*kafka.Reader, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         brokers,
			GroupID:         cfg.GroupID,
			Topic:           cfg.Topic,
			MinBytes:        1,
			MaxBytes:        10e6,
			CommitInterval:  0,
			StartOffset:     kafka.FirstOffset,
			ReadLagInterval: -1,
		})
		readers = append(readers, r)
		go func(id int, r *kafka.Reader) {
			defer r.Close()
			runWorker(ctx, id, r, proc, cfg.BatchSize)
		}(i, r)
	}
	return readers
}

func runWorker(ctx context.Context, id int, src messageSource, proc processor, batchSize int) {
	for {
		batch, err := fetchBatch(ctx, src, batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("kafka fetch error", "worker", id, "err", err)
			time.Sleep(retryDelay)
			continue
		}

		if deliverBatch(ctx, id, src, proc, batch) != nil {
			return
		}
	}
}

// deliverBatch lands every message of the batch in a sink, then acknowledges
// the whole batch. On a write failure it retries from the failed position
// without fetching further; committing anything here would implicitly
// acknowledge the unwritten rows. Returns non-nil only when ctx is done.
func deliverBatch(ctx context.Context, id int, src messageSource, proc processor, batch []kafka.Message) error {
	i := 0
	for {
		for i < len(batch) {
			m := batch[i]

			var msg domain.IngestionMessage
			if err := json.Unmarshal(m.Value, &msg); err != nil {
				logger.Warn("kafka invalid json, skip",
					"worker", id, "partition", m.Partition, "offset", m.Offset, "err", err)
				i++
				continue
			}

			if err := proc.Process(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("process failed, holding batch",
					"worker", id, "partition", m.Partition, "offset", m.Offset, "err", err)
				break
			}
			i++
		}

		if i == len(batch) {
			if err := src.CommitMessages(ctx, batch...); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// at-least-once: the group redelivers after a rebalance,
				// duplicates are absorbed by the idempotent writes
				logger.Warn("kafka commit failed", "worker", id, "err", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// fetchBatch blocks for the first message, then drains up to size-1 more with
// a short deadline so a slow topic does not stall the batch.
func fetchBatch(ctx context.Context, src messageSource, size int) ([]kafka.Message, error) {
	first, err := src.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}

	for len(batch) < size {
		fctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		m, err := src.FetchMessage(fctx)
		cancel()
		if err != nil {
			break
		}
		batch = append(batch, m)
	}
	return batch, nil
}
