package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventColumns() []string {
	return []string{"seq", "id", "kind", "account_id", "payload", "created_at"}
}

func newTestEvent(seq uint64, accountID string) domain.Event {
	return domain.Event{
		ID:        uuid.New(),
		Seq:       seq,
		Kind:      domain.EventNewTransaction,
		AccountID: accountID,
		Payload:   json.RawMessage(`{"message_id":"m1"}`),
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	e := newTestEvent(7, "acc")
	mock.ExpectExec("INSERT INTO wallet_events").
		WithArgs(int64(7), e.ID, string(e.Kind), "acc", []byte(e.Payload), e.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewEventRepo(mock).Append(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	e1, e2 := newTestEvent(1, "acc"), newTestEvent(2, "acc")
	mock.ExpectQuery(`SELECT .+ FROM wallet_events WHERE account_id = \$1 AND kind = \$2 ORDER BY seq`).
		WithArgs("acc", string(domain.EventNewTransaction)).
		WillReturnRows(pgxmock.NewRows(eventColumns()).
			AddRow(int64(1), e1.ID, string(e1.Kind), "acc", []byte(e1.Payload), e1.Timestamp).
			AddRow(int64(2), e2.ID, string(e2.Kind), "acc", []byte(e2.Payload), e2.Timestamp))

	events, err := NewEventRepo(mock).List(context.Background(),
		domain.EventFilter{AccountID: "acc", Kind: domain.EventNewTransaction})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[1].Seq)
	assert.Equal(t, e1.ID, events[0].ID)
	assert.JSONEq(t, `{"message_id":"m1"}`, string(events[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_List_Unfiltered(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM wallet_events ORDER BY seq`).
		WillReturnRows(pgxmock.NewRows(eventColumns()))

	events, err := NewEventRepo(mock).List(context.Background(), domain.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_DeleteAndLastSeq(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	mock.ExpectExec("DELETE FROM wallet_events WHERE account_id").
		WithArgs("acc").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) FROM wallet_events`).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(42)))

	require.NoError(t, repo.DeleteByAccount(context.Background(), "acc"))
	last, err := repo.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_ImplementsEventRepository(t *testing.T) {
	var _ ports.EventRepository = (*EventRepo)(nil)
}
