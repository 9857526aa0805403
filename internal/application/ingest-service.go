package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/RaikyD/orders-etl-service/internal/domain"
	"github.com/RaikyD/orders-etl-service/internal/logger"
	"github.com/RaikyD/orders-etl-service/internal/metrics"
	"github.com/RaikyD/orders-etl-service/internal/parser"
)

// Publisher puts one ingestion message on the queue.
type Publisher interface {
	Publish(ctx context.Context, msg domain.IngestionMessage) error
}

const (
	publishBackoffBase = 100 * time.Millisecond
	publishBackoffCap  = 5 * time.Second
	publishMaxAttempts = 5
)

type IngestService struct {
	pub  Publisher
	mets *metrics.Registry
}

func NewIngestService(pub Publisher, mets *metrics.Registry) *IngestService {
	return &IngestService{pub: pub, mets: mets}
}

// Ingest parses the upload and publishes one message per row. It returns the
// number of rows actually published; on queue exhaustion that count is
// honest about partial publication — already-published rows are safe to
// re-upload because the downstream writes are idempotent.
func (s *IngestService) Ingest(ctx context.Context, source domain.Source, r io.Reader) (int, error) {
	uploadID := uuid.NewString()

	rr, err := parser.NewRowReader(r, source)
	if err != nil {
		return 0, err
	}

	published := 0
	for {
		row, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return published, err
		}

		msg := domain.IngestionMessage{
			Row:      row.Fields,
			Source:   source,
			UploadID: uploadID,
			Sequence: row.Sequence,
		}
		if err := s.publishWithRetry(ctx, msg); err != nil {
			logger.Warn("publish retries exhausted",
				"upload_id", uploadID, "sequence", row.Sequence, "published", published, "err", err)
			return published, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
		}
		published++
		s.mets.RowsPublished.Inc()
	}

	logger.Info("upload published", "upload_id", uploadID, "source", source, "rows", published)
	return published, nil
}

func (s *IngestService) publishWithRetry(ctx context.Context, msg domain.IngestionMessage) error {
	b := retry.WithCappedDuration(publishBackoffCap, retry.NewExponential(publishBackoffBase))
	b = retry.WithMaxRetries(publishMaxAttempts-1, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := s.pub.Publish(ctx, msg)
		if err != nil && attempt < publishMaxAttempts {
			s.mets.PublishRetries.Inc()
		}
		return retry.RetryableError(err)
	})
}
