package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow/allocation-service/pkg/eventrelay"
)

// RelayStore implements eventrelay.Store over the domain_events table.
// Only the relay touches published_at and the lease columns; the
// allocation core writes events and never looks back.
type RelayStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRelayStore(log *slog.Logger, pool *pgxpool.Pool) *RelayStore {
	return &RelayStore{log: log, pool: pool}
}

// LockBatch claims up to limit unpublished rows for relayID. SKIP LOCKED
// keeps concurrent relays off the same rows while the transaction holds
// them; the lease keeps them off after it commits. Rows whose lease has
// lapsed are reclaimed.
func (s *RelayStore) LockBatch(ctx context.Context, relayID string, limit int, lease time.Duration) ([]eventrelay.Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, `
		SELECT subject_id, event_name, event_data, created_at
		FROM domain_events
		WHERE published_at IS NULL
		  AND (lease_until IS NULL OR lease_until < now())
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []eventrelay.Event
	for rows.Next() {
		var e eventrelay.Event
		if err := rows.Scan(&e.SubjectID, &e.Name, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	subjects := make([]string, 0, len(events))
	names := make([]string, 0, len(events))
	for _, e := range events {
		subjects = append(subjects, e.SubjectID)
		names = append(names, e.Name)
	}

	_, err = tx.Exec(ctx, `
		UPDATE domain_events AS e
		SET relay_id = $1, lease_until = now() + $2::interval
		FROM unnest($3::text[], $4::text[]) AS k(subject_id, event_name)
		WHERE e.subject_id = k.subject_id AND e.event_name = k.event_name`,
		relayID, lease.String(), subjects, names)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

// MarkPublished stamps the whole batch in one statement.
func (s *RelayStore) MarkPublished(ctx context.Context, keys []eventrelay.Key) error {
	if len(keys) == 0 {
		return nil
	}
	subjects := make([]string, 0, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		subjects = append(subjects, k.SubjectID)
		names = append(names, k.Name)
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE domain_events AS e
		SET published_at = $1, updated_at = $1
		FROM unnest($2::text[], $3::text[]) AS k(subject_id, event_name)
		WHERE e.subject_id = k.subject_id AND e.event_name = k.event_name`,
		time.Now().UTC(), subjects, names)
	return err
}
