package usecase

import (
	"context"

	"videobridge/internal/domain"
)

// RequestRegistry tracks in-flight fetch requests per session. Register,
// MarkCanceled, and Resolve may be called concurrently from multiple fetch
// tasks; implementations must not lose updates.
type RequestRegistry interface {
	Register(ctx context.Context, sessionID int64, params domain.DataRequestParameters) (domain.PendingRequest, error)
	MarkCanceled(ctx context.Context, sessionID int64, id string) bool
	Resolve(ctx context.Context, sessionID int64, id string) (domain.PendingRequest, error)
	DrainSession(ctx context.Context, sessionID int64) []domain.PendingRequest
	PendingCount(ctx context.Context, sessionID int64) int
}

// DataSink receives resolved deliveries. The engine transport implements it;
// the engine, not this layer, decides whether to discard late data for a
// canceled request.
type DataSink interface {
	DeliverData(ctx context.Context, sessionID int64, requestID string, headers map[string]string, data []byte) error
}
