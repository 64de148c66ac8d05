package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/repositories"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/postgres"
	apperrors "github.com/craftline/artisan-marketplace/pkg/errors"
)

const searchEventsTable = "search_events"

var searchEventColumns = []interface{}{
	"id", "query", "normalized_query", "parsed_query", "result_count",
	"user_id", "user_type", "session_id", "search_mode", "ai_confidence",
	"response_time_ms", "successful", "clicked_results", "conversion_events",
	"created_at",
}

// SearchAnalyticsAdapter implements SearchAnalyticsRepository over PostgreSQL.
type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter
func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// LogEvent persists one search event
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	parsedJSON, err := json.Marshal(event.ParsedQuery)
	if err != nil {
		return apperrors.NewInternalError("failed to encode parsed query", err)
	}
	conversionsJSON, err := json.Marshal(event.ConversionEvents)
	if err != nil {
		return apperrors.NewInternalError("failed to encode conversion events", err)
	}

	record := goqu.Record{
		"id":                event.ID,
		"query":             event.Query,
		"normalized_query":  event.NormalizedQuery,
		"parsed_query":      parsedJSON,
		"result_count":      event.ResultCount,
		"user_id":           sql.NullString{String: event.UserID, Valid: event.UserID != ""},
		"user_type":         event.UserType,
		"session_id":        sql.NullString{String: event.SessionID, Valid: event.SessionID != ""},
		"search_mode":       event.SearchMode,
		"ai_confidence":     event.AIConfidence,
		"response_time_ms":  event.ResponseTimeMs,
		"successful":        event.Successful,
		"clicked_results":   pq.Array(event.ClickedResults),
		"conversion_events": conversionsJSON,
		"created_at":        event.CreatedAt,
	}

	query, args, err := a.db.Insert(searchEventsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}

	return nil
}

// AppendClick records a clicked result on an existing event
func (a *SearchAnalyticsAdapter) AppendClick(ctx context.Context, eventID, productID string) error {
	query := `
		UPDATE search_events
		SET clicked_results = array_append(clicked_results, $2)
		WHERE id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, eventID, productID)
	if err != nil {
		return apperrors.NewInternalError("failed to append click", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to check append result", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError("search event not found")
	}

	return nil
}

// AppendConversion records a conversion event on an existing event
func (a *SearchAnalyticsAdapter) AppendConversion(ctx context.Context, eventID string, conversion entities.ConversionEvent) error {
	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now()
	}

	conversionJSON, err := json.Marshal([]entities.ConversionEvent{conversion})
	if err != nil {
		return apperrors.NewInternalError("failed to encode conversion", err)
	}

	query := `
		UPDATE search_events
		SET conversion_events = conversion_events || $2::jsonb
		WHERE id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, eventID, conversionJSON)
	if err != nil {
		return apperrors.NewInternalError("failed to append conversion", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to check append result", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError("search event not found")
	}

	return nil
}

// ListSince returns events created at or after the given time, newest first
func (a *SearchAnalyticsAdapter) ListSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error) {
	return a.list(ctx, goqu.Ex{}, since)
}

// ListSuccessfulSince returns successful events created at or after the given time
func (a *SearchAnalyticsAdapter) ListSuccessfulSince(ctx context.Context, since time.Time) ([]*entities.SearchEvent, error) {
	return a.list(ctx, goqu.Ex{"successful": true}, since)
}

func (a *SearchAnalyticsAdapter) list(ctx context.Context, filter goqu.Ex, since time.Time) ([]*entities.SearchEvent, error) {
	query, args, err := a.db.Select(searchEventColumns...).
		From(searchEventsTable).
		Where(filter, goqu.I("created_at").Gte(since)).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list search events", err)
	}
	defer rows.Close()

	var events []*entities.SearchEvent
	for rows.Next() {
		event := &entities.SearchEvent{}
		var userID, sessionID sql.NullString
		var parsedJSON, conversionsJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.Query,
			&event.NormalizedQuery,
			&parsedJSON,
			&event.ResultCount,
			&userID,
			&event.UserType,
			&sessionID,
			&event.SearchMode,
			&event.AIConfidence,
			&event.ResponseTimeMs,
			&event.Successful,
			pq.Array(&event.ClickedResults),
			&conversionsJSON,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}

		event.UserID = userID.String
		event.SessionID = sessionID.String
		if len(parsedJSON) > 0 {
			_ = json.Unmarshal(parsedJSON, &event.ParsedQuery)
		}
		if len(conversionsJSON) > 0 {
			_ = json.Unmarshal(conversionsJSON, &event.ConversionEvents)
		}

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate search events", err)
	}

	return events, nil
}

// DeleteOlderThan removes events past the retention window
func (a *SearchAnalyticsAdapter) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := a.db.Delete(searchEventsTable).
		Where(goqu.I("created_at").Lt(cutoff)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to delete search events", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to count deleted events", err)
	}

	return deleted, nil
}
