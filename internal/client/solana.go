package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// confirmPollInterval is how often submitted transactions are re-checked
// while waiting for finality.
const confirmPollInterval = 2 * time.Second

// ErrNetworkTimeout means the ledger did not answer (or the transaction did
// not finalize) within the deadline. The transaction MUST NOT be assumed
// failed or successful; callers re-check out-of-band before retrying.
var ErrNetworkTimeout = errors.New("ledger network timeout")

// TxFailedError reports a transaction the ledger rejected or finalized with a
// non-success engine result.
type TxFailedError struct {
	Code    string
	Message string
}

func (e *TxFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transaction failed: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("transaction failed: %s", e.Code)
}

// IsTxFailed extracts a TxFailedError from an error chain.
func IsTxFailed(err error) (*TxFailedError, bool) {
	var txErr *TxFailedError
	if errors.As(err, &txErr) {
		return txErr, true
	}
	return nil, false
}

// SolanaClient is a client for working with Solana RPC
type SolanaClient struct {
	rpcClient *rpc.Client
	rpcURL    string
}

// NewSolanaClient creates a new Solana client for the given RPC endpoint.
func NewSolanaClient(rpcURL string) *SolanaClient {
	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		rpcURL:    rpcURL,
	}
}

// BalanceLamports gets the live lamport balance for an address.
func (c *SolanaClient) BalanceLamports(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid Solana address: %w", err)
	}

	balance, err := c.rpcClient.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, ErrNetworkTimeout
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// SubmitMemoPayment builds a lamport transfer from the signer to the given
// destination carrying memo bytes, signs it, submits it, and waits until the
// network finalizes it. A fresh blockhash is fetched per call, so every
// attempt is a distinct transaction; nothing is retried here.
//
// Returns the transaction signature on success. A non-success engine result
// surfaces as *TxFailedError, a deadline as ErrNetworkTimeout.
func (c *SolanaClient) SubmitMemoPayment(
	ctx context.Context,
	signer solana.PrivateKey,
	to solana.PublicKey,
	lamports uint64,
	memo []byte,
) (string, error) {
	from := signer.PublicKey()

	// Auto-fill network-dependent fields: the blockhash bounds the
	// transaction's validity window and orders it on the ledger.
	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrNetworkTimeout
		}
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	transferInstruction := system.NewTransferInstruction(
		lamports,
		from,
		to,
	).Build()

	memoInstruction := solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.Meta(from).SIGNER()},
		memo,
	)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInstruction, memoInstruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if from.Equals(key) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false, // let the node simulate before accepting
			PreflightCommitment: rpc.CommitmentFinalized,
		},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrNetworkTimeout
		}
		// Preflight rejections carry the engine result; surface them as a
		// failed transaction, never as success.
		return "", &TxFailedError{Code: "preflight", Message: err.Error()}
	}

	if err := c.waitForFinality(ctx, sig); err != nil {
		return "", err
	}

	return sig.String(), nil
}

// waitForFinality polls the signature status until the transaction is
// finalized, fails, or the context expires.
func (c *SolanaClient) waitForFinality(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrNetworkTimeout
			}
			return fmt.Errorf("failed to get signature status: %w", err)
		}

		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return &TxFailedError{Code: fmt.Sprintf("%v", status.Err)}
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ErrNetworkTimeout
		case <-ticker.C:
		}
	}
}
