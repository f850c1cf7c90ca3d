package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solpump/custodian/custody"
	"github.com/solpump/custodian/internal/api"
	"github.com/solpump/custodian/internal/cache"
	"github.com/solpump/custodian/internal/client"
	"github.com/solpump/custodian/internal/crypto"
	"github.com/solpump/custodian/internal/handler"
	"github.com/solpump/custodian/internal/model"
	"github.com/solpump/custodian/internal/store"
)

const (
	testKeyHex      = "d7a8f3b2e1c9d8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b3"
	testBurnAddress = "1nc1nerator11111111111111111111111111111111"
)

type fakeLedger struct {
	balance   uint64
	submitErr error
	txHash    string
}

func (l *fakeLedger) BalanceLamports(context.Context, string) (uint64, error) {
	return l.balance, nil
}

func (l *fakeLedger) SubmitMemoPayment(context.Context, solana.PrivateKey, solana.PublicKey, uint64, []byte) (string, error) {
	if l.submitErr != nil {
		return "", l.submitErr
	}
	return l.txHash, nil
}

type fakeRates struct{ rate string }

func (r *fakeRates) GetSOLtoUSDRate() (string, error) { return r.rate, nil }

func newTestServer(t *testing.T, ledger *fakeLedger) (*httptest.Server, *custody.Service) {
	t.Helper()

	key, err := crypto.ParseKey(testKeyHex)
	require.NoError(t, err)

	svc := custody.NewService(store.NewMemoryStore(), cache.New(zap.NewNop()), key, zap.NewNop())
	issuer, err := custody.NewIssuer(svc, ledger, testBurnAddress, "0.01", 30*time.Second, zap.NewNop())
	require.NoError(t, err)

	walletHandler := handler.NewWalletHandler(svc, issuer, ledger, &fakeRates{rate: "150.00"}, zap.NewNop())
	server := httptest.NewServer(api.SetupRouter(walletHandler))
	t.Cleanup(server.Close)
	return server, svc
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func TestView_NotFound(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{})

	resp, body := doJSON(t, http.MethodGet, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, "not_found", errResp.Code)
}

func TestCreateAndView(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{balance: 1_500_000_000})

	resp, body := doJSON(t, http.MethodPost, server.URL+"/wallet/42", model.CreateWalletRequest{Name: "main"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created model.CreateWalletResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.True(t, created.Success)
	require.NotEmpty(t, created.Address)
	require.NotEmpty(t, created.Seed, "seed is returned exactly once at creation")

	resp, body = doJSON(t, http.MethodGet, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view model.WalletViewResponse
	require.NoError(t, json.Unmarshal(body, &view))
	require.Equal(t, created.Address, view.Address)
	require.Equal(t, "main", view.Name)
	require.Equal(t, "1.500000000", view.Balance, "view reports the live ledger balance")
	require.Equal(t, "225.00", view.USDValue)
	require.NotEmpty(t, view.QR)
	require.NotContains(t, string(body), created.Seed, "no secret material on the view")
}

func TestCreate_Duplicate(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{})

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, "already_exists", errResp.Code)
}

func TestRecover_InvalidSeed(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{})

	resp, body := doJSON(t, http.MethodPost, server.URL+"/wallet/42/recover",
		model.RecoverWalletRequest{Seed: "definitely not a seed"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, "invalid_seed", errResp.Code)
}

func TestDeleteThenViewNotFound(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{})

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSwitchActive_OutOfRange(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{})

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/wallet/42/active", model.SwitchActiveRequest{Index: 5})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, "index_out_of_range", errResp.Code)
}

func TestCreateToken(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{balance: 1_000_000_000, txHash: "sig123"})

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/wallet/42/create-token",
		model.TokenPayload{Name: "Moon Token", Symbol: "MOON"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created model.CreateTokenResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.True(t, created.Success)
	require.Equal(t, "sig123", created.TxHash)
}

func TestCreateToken_EngineFailure(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{
		balance:   1_000_000_000,
		submitErr: &client.TxFailedError{Code: "InstructionError"},
	})

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/wallet/42/create-token",
		model.TokenPayload{Name: "Moon Token", Symbol: "MOON"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, "transaction_failed", errResp.Code)
	require.Contains(t, errResp.Error, "InstructionError")
}

func TestCreateToken_Timeout(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{
		balance:   1_000_000_000,
		submitErr: client.ErrNetworkTimeout,
	})

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/wallet/42/create-token",
		model.TokenPayload{Name: "Moon Token", Symbol: "MOON"})
	require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	var errResp model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, "network_timeout", errResp.Code)
}

func TestCreateToken_MissingFields(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{balance: 1_000_000_000})

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/wallet/42/create-token", model.TokenPayload{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTestConnection(t *testing.T) {
	server, _ := newTestServer(t, &fakeLedger{})

	resp, body := doJSON(t, http.MethodGet, server.URL+"/wallet/42/test-connection", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var probe model.TestConnectionResponse
	require.NoError(t, json.Unmarshal(body, &probe))
	require.False(t, probe.Success)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/wallet/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, server.URL+"/wallet/42/test-connection", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &probe))
	require.True(t, probe.Success)
	require.NotNil(t, probe.Wallet)
	require.NotEmpty(t, probe.Wallet.Address)
}
