package service

import (
	"context"
	"fmt"
	"sync"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
)

// EventService is the append-only wallet event log. Recording always
// delivers to live subscribers; the durable append happens only when a
// repository was supplied at construction.
type EventService struct {
	repo       ports.EventRepository
	publishers []ports.EventPublisher
	broker     *Broker
	clock      clock.Clock
	log        zerolog.Logger

	mu     sync.Mutex
	seq    uint64
	events []domain.Event
}

// NewEventService builds the store and, when repo is set, replays the
// persisted log so sequence numbers continue where they stopped.
func NewEventService(
	ctx context.Context,
	repo ports.EventRepository,
	clk clock.Clock,
	log zerolog.Logger,
	publishers ...ports.EventPublisher,
) (*EventService, error) {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	s := &EventService{
		repo:       repo,
		publishers: publishers,
		broker:     NewBroker(),
		clock:      clk,
		log:        log.With().Str("component", "events").Logger(),
	}

	if repo != nil {
		events, err := repo.List(ctx, domain.EventFilter{})
		if err != nil {
			s.broker.Close()
			return nil, fmt.Errorf("replaying events: %w", err)
		}
		last, err := repo.LastSeq(ctx)
		if err != nil {
			s.broker.Close()
			return nil, fmt.Errorf("reading last event seq: %w", err)
		}
		s.events = events
		s.seq = last
		for _, e := range events {
			if e.Seq > s.seq {
				s.seq = e.Seq
			}
		}
		s.log.Debug().Int("events", len(events)).Uint64("seq", s.seq).Msg("event log replayed")
	}
	return s, nil
}

// Persistent reports whether events are durably appended.
func (s *EventService) Persistent() bool {
	return s.repo != nil
}

// Record assigns the event its id, sequence number and timestamp, appends it
// and notifies subscribers. A failed durable append is logged and does not
// stop live delivery.
func (s *EventService) Record(ctx context.Context, e domain.Event) domain.Event {
	s.mu.Lock()
	s.seq++
	e.Seq = s.seq
	e.ID = uuid.New()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock.Now().UTC()
	}
	s.events = append(s.events, e)

	if s.repo != nil {
		if err := s.repo.Append(ctx, e); err != nil {
			s.log.Error().Err(err).Uint64("seq", e.Seq).Str("kind", string(e.Kind)).Msg("failed to persist event")
		}
	}
	// Published under the lock so subscribers see events in Seq order.
	s.broker.Publish(e)
	s.mu.Unlock()

	for _, p := range s.publishers {
		if err := p.Publish(ctx, e); err != nil {
			s.log.Warn().Err(err).Uint64("seq", e.Seq).Msg("external event publish failed")
		}
	}
	return e
}

// RecordAll records events in order and returns them as recorded.
func (s *EventService) RecordAll(ctx context.Context, events []domain.Event) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		out = append(out, s.Record(ctx, e))
	}
	return out
}

// List returns the events matching filter in Seq order.
func (s *EventService) List(_ context.Context, filter domain.EventFilter) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Event
	for _, e := range s.events {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe registers a live subscriber for kinds (all kinds when empty).
func (s *EventService) Subscribe(kinds ...domain.EventKind) *Subscription {
	return s.broker.Subscribe(kinds...)
}

// Unsubscribe ends a subscription.
func (s *EventService) Unsubscribe(sub *Subscription) {
	s.broker.Unsubscribe(sub)
}

// DeleteAccount drops every event of an account.
func (s *EventService) DeleteAccount(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.DeleteByAccount(ctx, accountID); err != nil {
			return fmt.Errorf("deleting account events: %w", err)
		}
	}
	kept := s.events[:0]
	for _, e := range s.events {
		if e.AccountID != accountID {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

// Close stops live delivery.
func (s *EventService) Close() {
	s.broker.Close()
}
