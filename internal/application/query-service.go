package application

import (
	"context"

	"github.com/RaikyD/orders-etl-service/internal/domain"
	"github.com/RaikyD/orders-etl-service/internal/repository"
)

const defaultListLimit = 100

// QueryService reads back classified records, most recent write first.
type QueryService struct {
	sinks repository.SinkStore
}

func NewQueryService(sinks repository.SinkStore) *QueryService {
	return &QueryService{sinks: sinks}
}

func (s *QueryService) ListClean(ctx context.Context, limit int) ([]domain.CleanOrder, error) {
	return s.sinks.ListClean(ctx, clampLimit(limit))
}

func (s *QueryService) ListRejected(ctx context.Context, limit int) ([]domain.RejectedOrder, error) {
	return s.sinks.ListRejected(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
