package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/solpump/custodian/custody"
	"github.com/solpump/custodian/internal/client"
	"github.com/solpump/custodian/internal/common"
	"github.com/solpump/custodian/internal/model"
)

// Balances is the live-balance lookup the handler needs from the ledger.
type Balances interface {
	BalanceLamports(ctx context.Context, address string) (uint64, error)
}

// RateSource supplies the SOL/USD rate used to decorate the wallet view.
type RateSource interface {
	GetSOLtoUSDRate() (string, error)
}

// WalletHandler serves the custody wire boundary consumed by the bot layer.
// All state-changing logic lives in the custody service and issuer; handlers
// stay thin adapters.
type WalletHandler struct {
	svc    *custody.Service
	issuer *custody.Issuer
	ledger Balances
	rates  RateSource
	log    *zap.Logger
}

// NewWalletHandler wires the handler.
func NewWalletHandler(svc *custody.Service, issuer *custody.Issuer, ledger Balances, rates RateSource, log *zap.Logger) *WalletHandler {
	return &WalletHandler{
		svc:    svc,
		issuer: issuer,
		ledger: ledger,
		rates:  rates,
		log:    log,
	}
}

// View handles GET /wallet/{userId}
// @Summary      Get active wallet
// @Description  Returns the user's active wallet address, balance and name
// @Tags         wallet
// @Produce      json
// @Param        userId  path      string  true  "User identity"
// @Success      200     {object}  model.WalletViewResponse
// @Failure      404     {object}  model.ErrorResponse
// @Router       /wallet/{userId} [get]
func (h *WalletHandler) View(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	record, err := h.svc.Record(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	active := record.ActiveWallet()
	if active == nil {
		h.writeError(w, custody.ErrNoWallet)
		return
	}

	resp := model.WalletViewResponse{
		Address: active.Address,
		Balance: active.Balance,
		Name:    active.Name,
	}

	// Live balance when the ledger answers; the stored value otherwise.
	if lamports, err := h.ledger.BalanceLamports(r.Context(), active.Address); err == nil {
		resp.Balance = common.LamportsToSOL(lamports)
		h.svc.RefreshBalance(r.Context(), userID, resp.Balance)
	}

	if qr, err := addressQRCode(active.Address); err == nil {
		resp.QR = qr
	}

	if rate, err := h.rates.GetSOLtoUSDRate(); err == nil {
		resp.USDValue = usdValue(resp.Balance, rate)
	}

	writeJSON(w, http.StatusOK, resp)
}

// TestConnection handles GET /wallet/{userId}/test-connection
// @Summary      Check wallet connection
// @Description  Reports whether a wallet exists for the user
// @Tags         wallet
// @Produce      json
// @Param        userId  path      string  true  "User identity"
// @Success      200     {object}  model.TestConnectionResponse
// @Router       /wallet/{userId}/test-connection [get]
func (h *WalletHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	record, err := h.svc.Record(r.Context(), userID)
	if err != nil {
		if errors.Is(err, custody.ErrNoWallet) {
			writeJSON(w, http.StatusNotFound, model.TestConnectionResponse{
				Success: false,
				Message: "No wallet found",
			})
			return
		}
		h.writeError(w, err)
		return
	}

	active := record.ActiveWallet()
	writeJSON(w, http.StatusOK, model.TestConnectionResponse{
		Success: true,
		Wallet: &model.WalletViewResponse{
			Address: active.Address,
			Balance: active.Balance,
			Name:    active.Name,
		},
	})
}

// Create handles POST /wallet/{userId}
// @Summary      Create wallet
// @Description  Generates and persists a new encrypted wallet for the user
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        userId   path      string                     true   "User identity"
// @Param        request  body      model.CreateWalletRequest  false  "Optional wallet name"
// @Success      200      {object}  model.CreateWalletResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /wallet/{userId} [post]
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var req model.CreateWalletRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}
	}

	entry, seed, err := h.svc.CreateWallet(r.Context(), userID, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CreateWalletResponse{
		Success: true,
		Address: entry.Address,
		Name:    entry.Name,
		Seed:    seed,
	})
}

// Recover handles POST /wallet/{userId}/recover
// @Summary      Recover wallet from seed
// @Description  Derives the keypair from a seed and persists it for the user
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        userId   path      string                      true  "User identity"
// @Param        request  body      model.RecoverWalletRequest  true  "Seed and optional name"
// @Success      200      {object}  model.CreateWalletResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /wallet/{userId}/recover [post]
func (h *WalletHandler) Recover(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var req model.RecoverWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	entry, err := h.svc.RecoverWallet(r.Context(), userID, req.Seed, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CreateWalletResponse{
		Success: true,
		Address: entry.Address,
		Name:    entry.Name,
	})
}

// Delete handles DELETE /wallet/{userId}
// @Summary      Delete wallet
// @Description  Removes the user's wallet record and cached material
// @Tags         wallet
// @Produce      json
// @Param        userId  path      string  true  "User identity"
// @Success      200     {object}  model.DeleteWalletResponse
// @Failure      404     {object}  model.ErrorResponse
// @Router       /wallet/{userId} [delete]
func (h *WalletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	if err := h.svc.DeleteWallet(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteWalletResponse{
		Success: true,
		Message: "Wallet deleted",
	})
}

// SwitchActive handles POST /wallet/{userId}/active
// @Summary      Switch active wallet
// @Description  Points the user's active wallet at another entry
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        userId   path      string                     true  "User identity"
// @Param        request  body      model.SwitchActiveRequest  true  "Wallet index"
// @Success      200      {object}  model.DeleteWalletResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /wallet/{userId}/active [post]
func (h *WalletHandler) SwitchActive(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var req model.SwitchActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.svc.SwitchActiveWallet(r.Context(), userID, req.Index); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteWalletResponse{
		Success: true,
		Message: "Active wallet switched",
	})
}

// CreateToken handles POST /wallet/{userId}/create-token
// @Summary      Create token
// @Description  Signs and submits the token-creation burn payment from the user's active wallet
// @Tags         token
// @Accept       json
// @Produce      json
// @Param        userId   path      string              true  "User identity"
// @Param        request  body      model.TokenPayload  true  "Token creation intent"
// @Success      200      {object}  model.CreateTokenResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /wallet/{userId}/create-token [post]
func (h *WalletHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var payload model.TokenPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if payload.Name == "" || payload.Symbol == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "token name and symbol are required")
		return
	}

	txHash, err := h.issuer.SubmitTokenCreation(r.Context(), userID, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CreateTokenResponse{
		Success: true,
		TxHash:  txHash,
	})
}

// writeError maps service/issuer errors to stable wire error kinds. Messages
// never contain secret material.
func (h *WalletHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, custody.ErrNoWallet):
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Wallet not found")
	case errors.Is(err, custody.ErrAlreadyExists):
		writeErrorResponse(w, http.StatusConflict, "already_exists", "User already has a wallet")
	case errors.Is(err, custody.ErrInvalidSeed):
		writeErrorResponse(w, http.StatusBadRequest, "invalid_seed", "Seed could not be parsed")
	case errors.Is(err, custody.ErrIndexOutOfRange):
		writeErrorResponse(w, http.StatusBadRequest, "index_out_of_range", "Wallet index out of range")
	case errors.Is(err, client.ErrNetworkTimeout):
		writeErrorResponse(w, http.StatusGatewayTimeout, "network_timeout",
			"Ledger did not respond in time; check transaction status before retrying")
	default:
		if txErr, ok := client.IsTxFailed(err); ok {
			writeErrorResponse(w, http.StatusBadGateway, "transaction_failed", txErr.Error())
			return
		}
		h.log.Error("request failed", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "internal", "Server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message, Code: code})
}

// addressQRCode renders the address as a base64 PNG QR code.
func addressQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", err
	}
	png, err := qr.PNG(256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// usdValue multiplies a SOL balance by the rate for display only; float
// precision is acceptable here and nowhere else.
func usdValue(balance, rate string) string {
	balanceFloat, err := strconv.ParseFloat(balance, 64)
	if err != nil {
		return ""
	}
	rateFloat, err := strconv.ParseFloat(rate, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(balanceFloat*rateFloat, 'f', 2, 64)
}
