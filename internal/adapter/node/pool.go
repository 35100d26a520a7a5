package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// Pool fails over across enabled nodes. Each call starts at the node that
// last answered and moves on only when a node is unreachable; answers that
// carry a verdict (not found, rejected payload) are returned as-is.
type Pool struct {
	clients   []*Client
	preferred atomic.Int32
	log       zerolog.Logger
}

// NewPool wraps clients; it needs at least one.
func NewPool(clients []*Client, log zerolog.Logger) (*Pool, error) {
	if len(clients) == 0 {
		return nil, apperror.ErrNodeConfigInvalid(errors.New("no enabled nodes"))
	}
	return &Pool{clients: clients, log: log}, nil
}

func (p *Pool) Health(ctx context.Context) error {
	return p.each(ctx, "Health", func(c *Client) error { return c.Health(ctx) })
}

func (p *Pool) FetchAddressOutputs(ctx context.Context, addr string) ([]domain.Output, error) {
	var out []domain.Output
	err := p.each(ctx, "FetchAddressOutputs", func(c *Client) (err error) {
		out, err = c.FetchAddressOutputs(ctx, addr)
		return err
	})
	return out, err
}

func (p *Pool) FetchOutput(ctx context.Context, id string) (*domain.Output, error) {
	var out *domain.Output
	err := p.each(ctx, "FetchOutput", func(c *Client) (err error) {
		out, err = c.FetchOutput(ctx, id)
		return err
	})
	return out, err
}

func (p *Pool) FetchMessage(ctx context.Context, id string) (*ports.NodeMessage, error) {
	var out *ports.NodeMessage
	err := p.each(ctx, "FetchMessage", func(c *Client) (err error) {
		out, err = c.FetchMessage(ctx, id)
		return err
	})
	return out, err
}

func (p *Pool) InclusionState(ctx context.Context, id string) (domain.ConfirmationState, error) {
	var out domain.ConfirmationState
	err := p.each(ctx, "InclusionState", func(c *Client) (err error) {
		out, err = c.InclusionState(ctx, id)
		return err
	})
	return out, err
}

// SubmitMessage fails over only when the request never reached a node. A
// node that timed out may still have accepted the message.
func (p *Pool) SubmitMessage(ctx context.Context, payload domain.Payload) (string, error) {
	var out string
	err := p.eachWhen(ctx, "SubmitMessage", undelivered, func(c *Client) (err error) {
		out, err = c.SubmitMessage(ctx, payload)
		return err
	})
	return out, err
}

func (p *Pool) PromoteMessage(ctx context.Context, id string) (string, error) {
	var out string
	err := p.each(ctx, "PromoteMessage", func(c *Client) (err error) {
		out, err = c.PromoteMessage(ctx, id)
		return err
	})
	return out, err
}

func (p *Pool) each(ctx context.Context, op string, fn func(c *Client) error) error {
	return p.eachWhen(ctx, op, func(err error) bool { return true }, fn)
}

// eachWhen moves to the next node on unreachable errors that failover also
// accepts.
func (p *Pool) eachWhen(ctx context.Context, op string, failover func(error) bool, fn func(c *Client) error) error {
	start := int(p.preferred.Load())
	var lastErr error
	for i := range p.clients {
		idx := (start + i) % len(p.clients)
		c := p.clients[idx]

		err := fn(c)
		unreachable := errors.Is(err, apperror.ErrNodeUnreachable(nil))
		if err == nil || !unreachable {
			if idx != start {
				p.preferred.Store(int32(idx))
			}
			return err
		}
		if !failover(err) {
			return err
		}
		lastErr = err
		p.log.Warn().Err(err).Str("node", c.URL()).Str("op", op).Msg("node unreachable, failing over")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// Factory builds HTTP clients and pools for node configurations.
type Factory struct {
	http *http.Client
	log  zerolog.Logger
}

// NewFactory creates a factory whose clients share one http.Client. The
// per-request deadline comes from the caller's context; timeout only bounds
// requests made without one.
func NewFactory(timeout time.Duration, log zerolog.Logger) *Factory {
	return &Factory{
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "node").Logger(),
	}
}

func (f *Factory) Client(node domain.NodeConfig) (ports.NodeClient, error) {
	return NewClient(node, f.http, f.log)
}

func (f *Factory) Pool(nodes []domain.NodeConfig) (ports.NodeClient, error) {
	enabled := domain.EnabledNodes(nodes)
	clients := make([]*Client, 0, len(enabled))
	for i, n := range enabled {
		c, err := NewClient(n, f.http, f.log)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		clients = append(clients, c)
	}
	return NewPool(clients, f.log)
}
