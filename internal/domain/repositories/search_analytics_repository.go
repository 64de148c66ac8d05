package repositories

import (
	"context"
	"time"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
)

// SearchAnalyticsRepository persists search events and their follow-up
// interactions. Events are append-only: after creation only clicked results
// and conversion events may be added.
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	AppendClick(ctx context.Context, eventID, productID string) error
	AppendConversion(ctx context.Context, eventID string, conversion entities.ConversionEvent) error

	// ListSince returns events created at or after the given time,
	// newest first.
	ListSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error)

	// ListSuccessfulSince returns successful events created at or after the
	// given time, for similar-search recovery.
	ListSuccessfulSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error)

	// DeleteOlderThan removes events past the retention window and returns
	// the number deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
