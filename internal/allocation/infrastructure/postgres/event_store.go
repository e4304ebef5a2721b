package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow/allocation-service/internal/allocation/domain"
)

// EventStore implements application.EventStore on PostgreSQL. The
// (subject_id, event_name) primary key is the idempotency guard: the
// insert succeeds only when no record exists yet for that pair.
type EventStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewEventStore(log *slog.Logger, pool *pgxpool.Pool) *EventStore {
	return &EventStore{log: log, pool: pool}
}

// RaiseEvent conditionally appends the event. A rejected guard means
// "already published" and classifies as KindDuplicateEventRaised; any
// other store failure is KindUnrecognized and safe to retry, because the
// write is conditioned on absence and cannot double-publish.
func (s *EventStore) RaiseEvent(ctx context.Context, event domain.DomainEvent) error {
	ct, err := s.pool.Exec(ctx, `
		INSERT INTO domain_events (subject_id, event_name, event_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id, event_name) DO NOTHING`,
		event.SubjectID, string(event.Name), event.Data, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NewFailure(domain.KindDuplicateEventRaised,
			errors.New("event already raised for "+event.SubjectID))
	}
	s.log.Info("event raised", "subject", event.SubjectID, "event", string(event.Name))
	return nil
}
