package application

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/RaikyD/orders-etl-service/internal/domain"
	"github.com/RaikyD/orders-etl-service/internal/logger"
	"github.com/RaikyD/orders-etl-service/internal/metrics"
	"github.com/RaikyD/orders-etl-service/internal/repository"
	"github.com/RaikyD/orders-etl-service/internal/validator"
)

const (
	writeBackoffBase = 100 * time.Millisecond
	writeBackoffCap  = 5 * time.Second
	writeMaxAttempts = 5
)

// Processor classifies one queue message and lands it in exactly one sink.
// It holds no mutable state, so any number of workers can share one instance.
type Processor struct {
	sinks repository.SinkStore
	mets  *metrics.Registry
}

func NewProcessor(sinks repository.SinkStore, mets *metrics.Registry) *Processor {
	return &Processor{sinks: sinks, mets: mets}
}

func (p *Processor) Process(ctx context.Context, msg domain.IngestionMessage) error {
	p.mets.RowsConsumed.Inc()

	row := domain.RawRow{Fields: msg.Row, Source: msg.Source, Sequence: msg.Sequence}
	out := validator.Classify(row)

	start := time.Now()
	if err := p.writeWithRetry(ctx, out); err != nil {
		return err
	}
	p.mets.SinkWriteSec.Observe(time.Since(start).Seconds())

	if out.Clean != nil {
		p.mets.RowsClean.Inc()
		logger.Info("order accepted",
			"order_id", out.Clean.OrderID, "source", out.Clean.Source, "upload_id", msg.UploadID)
	} else {
		p.mets.RowsRejected.Inc()
		logger.Warn("order rejected",
			"order_id", out.Rejected.OrderID, "source", out.Rejected.Source,
			"reason", out.Rejected.Reason, "upload_id", msg.UploadID)
	}
	return nil
}

func (p *Processor) writeWithRetry(ctx context.Context, out domain.Outcome) error {
	b := retry.WithCappedDuration(writeBackoffCap, retry.NewExponential(writeBackoffBase))
	b = retry.WithMaxRetries(writeMaxAttempts-1, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		return retry.RetryableError(p.sinks.Write(ctx, out))
	})
}
