package nodesim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"
)

// LocalClient is a ports.NodeClient that calls a Ledger in-process. It can
// be switched offline and counts calls per method.
type LocalClient struct {
	ledger  *Ledger
	offline atomic.Bool

	mu       sync.Mutex
	calls    map[string]int
	queried  map[string]int
	failures map[string]error
}

// NewLocalClient wraps ledger.
func NewLocalClient(ledger *Ledger) *LocalClient {
	return &LocalClient{
		ledger:  ledger,
		calls:    make(map[string]int),
		queried:  make(map[string]int),
		failures: make(map[string]error),
	}
}

// SetOffline makes every call fail as unreachable.
func (c *LocalClient) SetOffline(offline bool) {
	c.offline.Store(offline)
}

// Fail makes every call of method return err. A nil err clears it.
func (c *LocalClient) Fail(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, method)
		return
	}
	c.failures[method] = err
}

// Calls returns how often method was invoked.
func (c *LocalClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Queried returns how often outputs of addr were fetched.
func (c *LocalClient) Queried(addr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queried[addr]
}

func (c *LocalClient) enter(ctx context.Context, method string) error {
	c.mu.Lock()
	c.calls[method]++
	failure := c.failures[method]
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if failure != nil {
		return failure
	}
	if c.offline.Load() {
		return apperror.ErrNodeUnreachable(errors.New("simulated node offline"))
	}
	return nil
}

func (c *LocalClient) Health(ctx context.Context) error {
	return c.enter(ctx, "Health")
}

func (c *LocalClient) FetchAddressOutputs(ctx context.Context, addr string) ([]domain.Output, error) {
	if err := c.enter(ctx, "FetchAddressOutputs"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.queried[addr]++
	c.mu.Unlock()
	return c.ledger.AddressOutputs(addr), nil
}

func (c *LocalClient) FetchOutput(ctx context.Context, id string) (*domain.Output, error) {
	if err := c.enter(ctx, "FetchOutput"); err != nil {
		return nil, err
	}
	o, err := c.ledger.Output(id)
	if errors.Is(err, ErrOutputNotFound) {
		return nil, nil
	}
	return &o, err
}

func (c *LocalClient) FetchMessage(ctx context.Context, id string) (*ports.NodeMessage, error) {
	if err := c.enter(ctx, "FetchMessage"); err != nil {
		return nil, err
	}
	m, err := c.ledger.Message(id)
	if errors.Is(err, ErrMessageNotFound) {
		return nil, nil
	}
	return &m, err
}

func (c *LocalClient) InclusionState(ctx context.Context, id string) (domain.ConfirmationState, error) {
	if err := c.enter(ctx, "InclusionState"); err != nil {
		return "", err
	}
	return c.ledger.State(id), nil
}

func (c *LocalClient) SubmitMessage(ctx context.Context, payload domain.Payload) (string, error) {
	if err := c.enter(ctx, "SubmitMessage"); err != nil {
		return "", err
	}
	id, err := c.ledger.Submit(payload)
	if err != nil {
		return "", ToAppError(err)
	}
	return id, nil
}

func (c *LocalClient) PromoteMessage(ctx context.Context, id string) (string, error) {
	if err := c.enter(ctx, "PromoteMessage"); err != nil {
		return "", err
	}
	promoted, err := c.ledger.Promote(id)
	if err != nil {
		return "", ToAppError(err)
	}
	return promoted, nil
}

// ToAppError maps ledger errors onto the wallet error taxonomy.
func ToAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMessageNotFound):
		return apperror.ErrNotFound("message")
	case errors.Is(err, ErrOutputNotFound), errors.Is(err, ErrDoubleSpend),
		errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidState):
		return apperror.ErrInvalidTransfer(err.Error())
	default:
		return apperror.InternalError(err)
	}
}

// LocalFactory hands out one LocalClient for every node configuration. It
// applies the same node validation as the HTTP factory.
type LocalFactory struct {
	client *LocalClient
}

// NewLocalFactory wraps client.
func NewLocalFactory(client *LocalClient) *LocalFactory {
	return &LocalFactory{client: client}
}

func (f *LocalFactory) Client(node domain.NodeConfig) (ports.NodeClient, error) {
	if err := node.Validate(); err != nil {
		return nil, apperror.ErrNodeConfigInvalid(err)
	}
	return f.client, nil
}

func (f *LocalFactory) Pool(nodes []domain.NodeConfig) (ports.NodeClient, error) {
	enabled := domain.EnabledNodes(nodes)
	if len(enabled) == 0 {
		return nil, apperror.ErrNodeConfigInvalid(fmt.Errorf("no enabled nodes"))
	}
	for _, n := range enabled {
		if err := n.Validate(); err != nil {
			return nil, apperror.ErrNodeConfigInvalid(err)
		}
	}
	return f.client, nil
}
