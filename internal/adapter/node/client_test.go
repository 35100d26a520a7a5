package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ledger-wallet/internal/adapter/http/handler"
	"ledger-wallet/internal/adapter/nodesim"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/service"
	"ledger-wallet/pkg/address"
	"ledger-wallet/pkg/apperror"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHRP = "atoi"

type testNode struct {
	ledger *nodesim.Ledger
	server *httptest.Server
	hits   atomic.Int32
}

func newTestNode(t *testing.T, mutate func(*handler.RouterDeps)) *testNode {
	t.Helper()
	n := &testNode{ledger: nodesim.NewLedger(testHRP, nil)}
	deps := handler.RouterDeps{Ledger: n.ledger, DevRoutes: true, Logger: zerolog.Nop()}
	if mutate != nil {
		mutate(&deps)
	}
	router := handler.SetupRouter(deps)
	n.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.hits.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(n.server.Close)
	return n
}

func testAddress(t *testing.T) string {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := address.FromPublicKey(testHRP, priv.PubKey().SerializeCompressed())
	require.NoError(t, err)
	return addr
}

func newTestClient(t *testing.T, node domain.NodeConfig) *Client {
	t.Helper()
	c, err := NewClient(node, &http.Client{Timeout: 5 * time.Second}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestClient_ReadsLedger(t *testing.T) {
	ctx := context.Background()
	n := newTestNode(t, nil)
	c := newTestClient(t, domain.NodeConfig{URL: n.server.URL + "/"})
	addr := testAddress(t)

	msgID, err := n.ledger.Faucet(addr, 42)
	require.NoError(t, err)

	require.NoError(t, c.Health(ctx))

	outs, err := c.FetchAddressOutputs(ctx, addr)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, uint64(42), outs[0].Amount)
	assert.Equal(t, msgID, outs[0].MessageID)

	out, err := c.FetchOutput(ctx, outs[0].ID)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, addr, out.Address)

	msg, err := c.FetchMessage(ctx, msgID)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, msgID, msg.ID)
	assert.Equal(t, uint64(42), msg.Payload.Essence.Total())

	state, err := c.InclusionState(ctx, msgID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmationConfirmed, state)

	promo, err := c.PromoteMessage(ctx, msgID)
	require.NoError(t, err)
	assert.NotEmpty(t, promo)
}

func TestClient_NotFoundAndRejections(t *testing.T) {
	ctx := context.Background()
	n := newTestNode(t, nil)
	c := newTestClient(t, domain.NodeConfig{URL: n.server.URL})
	unknown := strings.Repeat("0", 64)

	msg, err := c.FetchMessage(ctx, unknown)
	require.NoError(t, err)
	assert.Nil(t, msg)

	out, err := c.FetchOutput(ctx, unknown+":0")
	require.NoError(t, err)
	assert.Nil(t, out)

	state, err := c.InclusionState(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, domain.ConfirmationUnknown, state)

	_, err = c.PromoteMessage(ctx, unknown)
	assert.ErrorIs(t, err, apperror.ErrNotFound("message"))

	_, err = c.SubmitMessage(ctx, domain.Payload{Kind: domain.PayloadTransaction})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransfer(""))
	assert.Equal(t, "XFER_002", apperror.CodeOf(err))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		code        string
		undelivered bool
	}{
		{"server error", http.StatusInternalServerError, `{"error_code":"SYS_001","message":"boom"}`, "NODE_001", false},
		{"rate limited", http.StatusTooManyRequests, `{"error_code":"API_002"}`, "NODE_001", true},
		{"unauthorized", http.StatusUnauthorized, `{"error_code":"API_001"}`, "NODE_002", false},
		{"node verdict", http.StatusBadRequest, `{"error_code":"XFER_002","message":"double spend"}`, "XFER_002", false},
		{"bare client error", http.StatusConflict, ``, "XFER_002", false},
		{"garbage body", http.StatusOK, `<html>`, "NODE_001", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := newTestClient(t, domain.NodeConfig{URL: srv.URL})
			_, err := c.SubmitMessage(context.Background(), domain.Payload{Kind: domain.PayloadIndexation})
			assert.Equal(t, tc.code, apperror.CodeOf(err), "err=%v", err)
			assert.Equal(t, tc.undelivered, undelivered(err))
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, domain.NodeConfig{URL: url})
	_, err := c.FetchAddressOutputs(context.Background(), "x")
	assert.ErrorIs(t, err, apperror.ErrNodeUnreachable(nil))
	assert.True(t, undelivered(err), "refused connections never reached the node")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.FetchAddressOutputs(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_BasicAuth(t *testing.T) {
	ctx := context.Background()
	n := newTestNode(t, func(d *handler.RouterDeps) {
		d.BasicAuth = &domain.NodeAuth{Username: "wallet", Password: "pw"}
	})
	addr := testAddress(t)

	anon := newTestClient(t, domain.NodeConfig{URL: n.server.URL})
	_, err := anon.FetchAddressOutputs(ctx, addr)
	assert.ErrorIs(t, err, apperror.ErrNodeConfigInvalid(nil))

	authed := newTestClient(t, domain.NodeConfig{URL: n.server.URL, Auth: &domain.NodeAuth{Username: "wallet", Password: "pw"}})
	_, err = authed.FetchAddressOutputs(ctx, addr)
	assert.NoError(t, err)
}

func TestClient_BearerAuth(t *testing.T) {
	ctx := context.Background()
	tokens := service.NewJWTTokenService("node-secret", time.Hour, "ledger-nodesim")
	n := newTestNode(t, func(d *handler.RouterDeps) { d.TokenSvc = tokens })
	addr := testAddress(t)

	token, _, err := tokens.Generate("wallet-1")
	require.NoError(t, err)

	c := newTestClient(t, domain.NodeConfig{URL: n.server.URL, JWT: token})
	_, err = c.FetchAddressOutputs(ctx, addr)
	assert.NoError(t, err)

	forged, _, err := service.NewJWTTokenService("other-secret", time.Hour, "ledger-nodesim").Generate("wallet-1")
	require.NoError(t, err)
	bad := newTestClient(t, domain.NodeConfig{URL: n.server.URL, JWT: forged})
	_, err = bad.FetchAddressOutputs(ctx, addr)
	assert.ErrorIs(t, err, apperror.ErrNodeConfigInvalid(nil))
}

func TestClient_ExpiredTokenNeverSent(t *testing.T) {
	n := newTestNode(t, nil)
	claims := jwt.RegisteredClaims{
		Subject:   "wallet-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s"))
	require.NoError(t, err)

	c := newTestClient(t, domain.NodeConfig{URL: n.server.URL, JWT: token})
	_, err = c.FetchAddressOutputs(context.Background(), "x")

	assert.ErrorIs(t, err, apperror.ErrNodeConfigInvalid(nil))
	assert.Zero(t, n.hits.Load())
}

func TestNewClient_Invalid(t *testing.T) {
	_, err := NewClient(domain.NodeConfig{URL: "localhost:14265"}, http.DefaultClient, zerolog.Nop())
	assert.ErrorIs(t, err, apperror.ErrNodeConfigInvalid(nil))

	_, err = NewClient(domain.NodeConfig{URL: "http://node", JWT: "not-a-jwt"}, http.DefaultClient, zerolog.Nop())
	assert.ErrorIs(t, err, apperror.ErrNodeConfigInvalid(nil))
}
