// Package node talks to ledger nodes over their JSON HTTP API.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledger-wallet/internal/adapter/http/dto"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"
	"ledger-wallet/pkg/response"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// maxResponseBytes caps how much of a node response is read.
const maxResponseBytes = 8 << 20

var errNotFound = errors.New("node: not found")

// undeliveredError marks a failure that happened before the node accepted
// the request, so sending it again cannot duplicate a write.
type undeliveredError struct {
	err error
}

func (e *undeliveredError) Error() string { return e.err.Error() }
func (e *undeliveredError) Unwrap() error { return e.err }

func undelivered(err error) bool {
	var u *undeliveredError
	return errors.As(err, &u)
}

// Client implements ports.NodeClient for one node.
type Client struct {
	baseURL string
	http    *http.Client
	auth    *domain.NodeAuth
	token   string
	expiry  time.Time // zero when the token carries no exp claim
	log     zerolog.Logger
}

// NewClient builds a client for node. The JWT, if any, is parsed without
// verification to learn its expiry; only the node can verify it.
func NewClient(node domain.NodeConfig, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	if err := node.Validate(); err != nil {
		return nil, apperror.ErrNodeConfigInvalid(err)
	}
	c := &Client{
		baseURL: strings.TrimRight(node.URL, "/"),
		http:    httpClient,
		auth:    node.Auth,
		token:   node.JWT,
		log:     log.With().Str("node", node.URL).Logger(),
	}
	if node.JWT != "" {
		claims := &jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(node.JWT, claims); err != nil {
			return nil, apperror.ErrNodeConfigInvalid(fmt.Errorf("parsing node jwt: %w", err))
		}
		if claims.ExpiresAt != nil {
			c.expiry = claims.ExpiresAt.Time
		}
	}
	return c, nil
}

// URL is the node base URL.
func (c *Client) URL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return apperror.InternalError(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return apperror.ErrNodeUnreachable(fmt.Errorf("node health returned %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) FetchAddressOutputs(ctx context.Context, addr string) ([]domain.Output, error) {
	var resp dto.AddressOutputsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/addresses/"+url.PathEscape(addr)+"/outputs", nil, &resp); err != nil {
		return nil, err
	}
	outputs := make([]domain.Output, 0, len(resp.Outputs))
	for _, o := range resp.Outputs {
		outputs = append(outputs, o.ToDomain())
	}
	return outputs, nil
}

func (c *Client) FetchOutput(ctx context.Context, id string) (*domain.Output, error) {
	var resp dto.OutputResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/outputs/"+url.PathEscape(id), nil, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o := resp.ToDomain()
	return &o, nil
}

func (c *Client) FetchMessage(ctx context.Context, id string) (*ports.NodeMessage, error) {
	var resp dto.MessageResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/messages/"+url.PathEscape(id), nil, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.ToNode(), nil
}

func (c *Client) InclusionState(ctx context.Context, id string) (domain.ConfirmationState, error) {
	var resp dto.MetadataResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/messages/"+url.PathEscape(id)+"/metadata", nil, &resp)
	if errors.Is(err, errNotFound) {
		return domain.ConfirmationUnknown, nil
	}
	if err != nil {
		return "", err
	}
	switch state := domain.ConfirmationState(resp.LedgerInclusionState); state {
	case domain.ConfirmationPending, domain.ConfirmationConfirmed, domain.ConfirmationConflicting:
		return state, nil
	default:
		return domain.ConfirmationUnknown, nil
	}
}

func (c *Client) SubmitMessage(ctx context.Context, payload domain.Payload) (string, error) {
	var resp dto.MessageIDResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", dto.SubmitMessageRequest{Payload: &payload}, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (c *Client) PromoteMessage(ctx context.Context, id string) (string, error) {
	var resp dto.MessageIDResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/messages/"+url.PathEscape(id)+"/promote", nil, &resp)
	if errors.Is(err, errNotFound) {
		return "", apperror.ErrNotFound("message")
	}
	if err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if !c.expiry.IsZero() && time.Now().After(c.expiry) {
		return apperror.ErrNodeConfigInvalid(fmt.Errorf("node jwt expired at %s", c.expiry.Format(time.RFC3339)))
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("encoding request: %w", err))
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperror.InternalError(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.auth != nil:
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.ErrNodeUnreachable(fmt.Errorf("reading response: %w", err))
	}
	env, err := response.Decode(raw)
	if err != nil && resp.StatusCode < 300 {
		return apperror.ErrNodeUnreachable(err)
	}

	switch {
	case resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := env.DecodeData(out); err != nil {
			return apperror.ErrNodeUnreachable(fmt.Errorf("decoding response data: %w", err))
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperror.ErrNodeConfigInvalid(fmt.Errorf("node rejected credentials (%d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperror.ErrNodeUnreachable(&undeliveredError{fmt.Errorf("%s %s rate limited", method, path)})
	case resp.StatusCode >= 500:
		return apperror.ErrNodeUnreachable(fmt.Errorf("%s %s returned %d %s", method, path, resp.StatusCode, env.ErrorCode))
	case env.Failed():
		return env.Err(resp.StatusCode)
	default:
		return apperror.ErrInvalidTransfer(fmt.Sprintf("node rejected request with status %d", resp.StatusCode))
	}
}

// transportError keeps caller cancellation distinguishable from an
// unreachable node.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return apperror.ErrNodeUnreachable(&undeliveredError{err})
	}
	return apperror.ErrNodeUnreachable(err)
}
