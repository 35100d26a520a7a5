package handler

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledger-wallet/internal/adapter/http/dto"
	"ledger-wallet/internal/adapter/nodesim"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/internal/core/ports/mocks"
	"ledger-wallet/pkg/address"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testHRP = "atoi"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	RequestID string          `json:"request_id"`
}

type apiTest struct {
	t      *testing.T
	ledger *nodesim.Ledger
	router *gin.Engine
}

func newAPITest(t *testing.T, mutate func(*RouterDeps)) *apiTest {
	ledger := nodesim.NewLedger(testHRP, nil)
	deps := RouterDeps{Ledger: ledger, DevRoutes: true, Logger: zerolog.Nop()}
	if mutate != nil {
		mutate(&deps)
	}
	return &apiTest{t: t, ledger: ledger, router: SetupRouter(deps)}
}

func (a *apiTest) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func newKeyAddress(t *testing.T) (*btcec.PrivateKey, string) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := address.FromPublicKey(testHRP, priv.PubKey().SerializeCompressed())
	require.NoError(t, err)
	return priv, addr
}

// --- Node API ---

func TestFaucetAndReadBack(t *testing.T) {
	api := newAPITest(t, nil)
	_, addr := newKeyAddress(t)

	w, env := api.do(http.MethodPost, "/api/v1/dev/faucet", dto.FaucetRequest{Address: "  " + addr + " ", Amount: 250})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.MessageIDResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, env.RequestID)

	w, env = api.do(http.MethodGet, "/api/v1/addresses/"+addr+"/outputs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var outs dto.AddressOutputsResponse
	require.NoError(t, json.Unmarshal(env.Data, &outs))
	require.Len(t, outs.Outputs, 1)
	assert.Equal(t, uint64(250), outs.Outputs[0].Amount)
	assert.Equal(t, created.MessageID, outs.Outputs[0].MessageID)

	w, env = api.do(http.MethodGet, "/api/v1/outputs/"+outs.Outputs[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out dto.OutputResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, addr, out.Address)

	w, env = api.do(http.MethodGet, "/api/v1/messages/"+created.MessageID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msg dto.MessageResponse
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, domain.PayloadTransaction, msg.Payload.Kind)

	w, env = api.do(http.MethodGet, "/api/v1/messages/"+created.MessageID+"/metadata", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var meta dto.MetadataResponse
	require.NoError(t, json.Unmarshal(env.Data, &meta))
	assert.Equal(t, "CONFIRMED", meta.LedgerInclusionState)
}

func TestSubmitMessage(t *testing.T) {
	api := newAPITest(t, nil)
	priv, from := newKeyAddress(t)
	_, to := newKeyAddress(t)
	_, err := api.ledger.Faucet(from, 100)
	require.NoError(t, err)

	out := api.ledger.AddressOutputs(from)[0]
	essence := &domain.Essence{
		Inputs:  []domain.Input{{OutputID: out.ID, Address: from, Amount: 100}},
		Outputs: []domain.EssenceOutput{{Address: to, Amount: 100}},
	}
	hash, err := essence.SigningHash()
	require.NoError(t, err)
	payload := domain.Payload{
		Kind:    domain.PayloadTransaction,
		Essence: essence,
		Unlocks: []domain.Unlock{{
			PublicKey: hex.EncodeToString(priv.PubKey().SerializeCompressed()),
			Signature: hex.EncodeToString(ecdsa.Sign(priv, hash).Serialize()),
		}},
	}

	w, env := api.do(http.MethodPost, "/api/v1/messages", dto.SubmitMessageRequest{Payload: &payload})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.MessageIDResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, uint64(100), api.ledger.Balance(to))

	// The input is now spent.
	w, env = api.do(http.MethodPost, "/api/v1/messages", dto.SubmitMessageRequest{Payload: &payload})
	assert.Equal(t, http.StatusCreated, w.Code, "resubmission reattaches")

	w, env = api.do(http.MethodPost, "/api/v1/messages/"+created.MessageID+"/promote", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env = api.do(http.MethodPost, "/api/v1/dev/messages/"+created.MessageID+"/state", dto.SetStateRequest{State: "CONFIRMED"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ConfirmationConfirmed, api.ledger.State(created.MessageID))
}

func TestNodeAPIErrors(t *testing.T) {
	api := newAPITest(t, nil)
	_, addr := newKeyAddress(t)
	unknownID := strings.Repeat("0", 64)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"bad address", http.MethodGet, "/api/v1/addresses/nope/outputs", nil, http.StatusBadRequest, "VAL_001"},
		{"wrong network", http.MethodGet, "/api/v1/addresses/" + strings.Replace(addr, "atoi", "iota", 1) + "/outputs", nil, http.StatusBadRequest, "VAL_001"},
		{"malformed message id", http.MethodGet, "/api/v1/messages/xyz", nil, http.StatusBadRequest, "VAL_001"},
		{"unknown message", http.MethodGet, "/api/v1/messages/" + unknownID, nil, http.StatusNotFound, "ACC_001"},
		{"unknown metadata", http.MethodGet, "/api/v1/messages/" + unknownID + "/metadata", nil, http.StatusNotFound, "ACC_001"},
		{"unknown output", http.MethodGet, "/api/v1/outputs/" + unknownID + ":0", nil, http.StatusNotFound, "ACC_001"},
		{"malformed output id", http.MethodGet, "/api/v1/outputs/" + unknownID, nil, http.StatusBadRequest, "VAL_001"},
		{"missing payload", http.MethodPost, "/api/v1/messages", map[string]string{}, http.StatusBadRequest, "VAL_001"},
		{"invalid payload", http.MethodPost, "/api/v1/messages", dto.SubmitMessageRequest{Payload: &domain.Payload{Kind: domain.PayloadTransaction}}, http.StatusBadRequest, "XFER_002"},
		{"promote unknown", http.MethodPost, "/api/v1/messages/" + unknownID + "/promote", nil, http.StatusNotFound, "ACC_001"},
		{"faucet zero", http.MethodPost, "/api/v1/dev/faucet", dto.FaucetRequest{Address: addr}, http.StatusBadRequest, "VAL_001"},
		{"faucet bad address", http.MethodPost, "/api/v1/dev/faucet", dto.FaucetRequest{Address: "nope", Amount: 1}, http.StatusBadRequest, "XFER_002"},
		{"bad state", http.MethodPost, "/api/v1/dev/messages/" + unknownID + "/state", dto.SetStateRequest{State: "DONE"}, http.StatusBadRequest, "VAL_001"},
		{"state unknown message", http.MethodPost, "/api/v1/dev/messages/" + unknownID + "/state", dto.SetStateRequest{State: "PENDING"}, http.StatusNotFound, "ACC_001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, env := api.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, env.ErrorCode)
		})
	}
}

func TestDevRoutesDisabled(t *testing.T) {
	api := newAPITest(t, func(d *RouterDeps) { d.DevRoutes = false })
	_, addr := newKeyAddress(t)

	w, _ := api.do(http.MethodPost, "/api/v1/dev/faucet", dto.FaucetRequest{Address: addr, Amount: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBasicAuthRequired(t *testing.T) {
	api := newAPITest(t, func(d *RouterDeps) {
		d.BasicAuth = &domain.NodeAuth{Username: "node", Password: "pw"}
	})
	_, addr := newKeyAddress(t)
	path := "/api/v1/addresses/" + addr + "/outputs"

	w, env := api.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "API_001", env.ErrorCode)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.SetBasicAuth("node", "pw")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public.
	w, _ = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)

	healthy := mocks.NewMockHealthChecker(ctrl)
	healthy.EXPECT().Ping(gomock.Any()).Return(nil)
	healthy.EXPECT().Name().Return("storage").AnyTimes()

	broken := mocks.NewMockHealthChecker(ctrl)
	broken.EXPECT().Ping(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	broken.EXPECT().Name().Return("redis").AnyTimes()

	api := newAPITest(t, func(d *RouterDeps) { d.HealthCheckers = []ports.HealthChecker{healthy, broken} })
	w, _ := api.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status       string `json:"status"`
		Dependencies map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Dependencies["storage"].Status)
	assert.Equal(t, "connection refused", body.Dependencies["redis"].Error)
}

// --- Swagger ---

func TestSwaggerSpec_Embedded(t *testing.T) {
	api := newAPITest(t, nil)
	w, _ := api.do(http.MethodGet, "/swagger/spec", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/messages/{id}/promote")
}

func TestSwaggerDocs(t *testing.T) {
	r := gin.New()
	registerDocs(r, "/docs", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "url: '/docs/spec'")
	assert.Contains(t, w.Body.String(), "Ledger Node API Docs")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/spec", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "no document registered")
}
