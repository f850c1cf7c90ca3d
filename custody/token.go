package custody

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/solpump/custodian/internal/client"
	"github.com/solpump/custodian/internal/common"
	"github.com/solpump/custodian/internal/model"
)

const (
	// MemoTypeTokenCreation tags the burn payment as a token-creation intent.
	MemoTypeTokenCreation = "Token Creation"

	// networkFeeLamports is the base network fee for a single-signer
	// transaction, checked on top of the burn amount.
	networkFeeLamports = 5000
)

// Ledger is the slice of the RPC client the issuer needs; tests substitute a
// fake, production wires *client.SolanaClient.
type Ledger interface {
	BalanceLamports(ctx context.Context, address string) (uint64, error)
	SubmitMemoPayment(ctx context.Context, signer solana.PrivateKey, to solana.PublicKey, lamports uint64, memo []byte) (string, error)
}

// Issuer builds, signs and submits token-creation burn payments from a
// user's active wallet. Submissions are financially irreversible; the caller
// (bot layer) is responsible for explicit user confirmation.
type Issuer struct {
	svc         *Service
	ledger      Ledger
	burnAddress solana.PublicKey
	feeLamports uint64
	timeout     time.Duration
	log         *zap.Logger
}

// NewIssuer validates the burn address and fee amount once at startup.
func NewIssuer(svc *Service, ledger Ledger, burnAddress, feeSOL string, timeout time.Duration, log *zap.Logger) (*Issuer, error) {
	burn, err := solana.PublicKeyFromBase58(burnAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid burn address: %w", err)
	}

	feeLamports, err := common.SOLToLamports(feeSOL)
	if err != nil {
		return nil, fmt.Errorf("invalid token creation fee %q: %w", feeSOL, err)
	}
	if feeLamports == 0 {
		return nil, fmt.Errorf("token creation fee must be positive")
	}

	return &Issuer{
		svc:         svc,
		ledger:      ledger,
		burnAddress: burn,
		feeLamports: feeLamports,
		timeout:     timeout,
		log:         log,
	}, nil
}

// SubmitTokenCreation signs and submits the burn payment carrying the token
// payload memo from the user's active wallet, then waits for finality.
// Success means the ledger finalized the transaction with its success result;
// anything else comes back as *client.TxFailedError or ErrNetworkTimeout.
// No automatic retry: each call is a fresh transaction.
func (i *Issuer) SubmitTokenCreation(ctx context.Context, userID string, payload model.TokenPayload) (string, error) {
	wallet, err := i.svc.ActiveWallet(ctx, userID)
	if err != nil {
		return "", err
	}

	privateKeyBytes, err := base58.Decode(wallet.PrivateKey)
	if err != nil || len(privateKeyBytes) != 64 {
		return "", fmt.Errorf("invalid private key material for user")
	}
	defer clear(privateKeyBytes)
	signer := solana.PrivateKey(privateKeyBytes)

	if signer.PublicKey().String() != wallet.Address {
		return "", fmt.Errorf("private key does not match wallet address")
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	// Balance check always goes to the live ledger; cached balances are
	// advisory and must never gate a spend.
	balance, err := i.ledger.BalanceLamports(ctx, wallet.Address)
	if err != nil {
		return "", fmt.Errorf("failed to check balance: %w", err)
	}
	required := i.feeLamports + networkFeeLamports
	if balance < required {
		return "", &client.TxFailedError{
			Code: "insufficient_funds",
			Message: fmt.Sprintf("balance %s SOL is below the required %s SOL",
				common.LamportsToSOL(balance), common.LamportsToSOL(required)),
		}
	}

	memo, err := buildTokenMemo(payload)
	if err != nil {
		return "", err
	}

	txHash, err := i.ledger.SubmitMemoPayment(ctx, signer, i.burnAddress, i.feeLamports, memo)
	if err != nil {
		return "", err
	}

	i.log.Info("token creation submitted",
		zap.String("userId", userID),
		zap.String("address", wallet.Address),
		zap.String("txHash", txHash))

	return txHash, nil
}

// buildTokenMemo serializes the token payload into the hex-encoded memo pair
// carried by the transaction.
func buildTokenMemo(payload model.TokenPayload) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize token payload: %w", err)
	}

	memo, err := json.Marshal(struct {
		MemoType string `json:"memo_type"`
		MemoData string `json:"memo_data"`
	}{
		MemoType: hex.EncodeToString([]byte(MemoTypeTokenCreation)),
		MemoData: hex.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize memo: %w", err)
	}
	return memo, nil
}
