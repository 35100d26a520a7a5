package postgres

import (
	"context"
	"fmt"
	"strings"

	"ledger-wallet/internal/core/domain"
)

// EventRepo implements ports.EventRepository on the wallet_events table.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Append(ctx context.Context, e domain.Event) error {
	query := `INSERT INTO wallet_events (seq, id, kind, account_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		int64(e.Seq), e.ID, string(e.Kind), e.AccountID, []byte(e.Payload), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", e.Seq, err)
	}
	return nil
}

// List returns matching events in sequence order.
func (r *EventRepo) List(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	var conditions []string
	var args []any
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}

	query := `SELECT seq, id, kind, account_id, payload, created_at FROM wallet_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e       domain.Event
			seq     int64
			kind    string
			payload []byte
		)
		if err := rows.Scan(&seq, &e.ID, &kind, &e.AccountID, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Seq = uint64(seq)
		e.Kind = domain.EventKind(kind)
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

func (r *EventRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM wallet_events WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete events of %s: %w", accountID, err)
	}
	return nil
}

// LastSeq returns the highest stored sequence number, or 0.
func (r *EventRepo) LastSeq(ctx context.Context) (uint64, error) {
	var last int64
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM wallet_events`).Scan(&last); err != nil {
		return 0, fmt.Errorf("last event seq: %w", err)
	}
	return uint64(last), nil
}
