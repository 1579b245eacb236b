package solana

import (
	"context"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/datanexus/datanexus-go/metrics"
	"github.com/datanexus/datanexus-go/x402"
)

// ErrNoSigner means a payment was requested but no signing identity is
// configured. Callers are expected to turn this into a structured
// failure, not a crash.
var ErrNoSigner = fmt.Errorf("no signing identity configured")

// TransferError means transaction submission failed on every attempt.
type TransferError struct {
	Attempts int
	Last     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to send transaction after %d attempts: %v", e.Attempts, e.Last)
}

func (e *TransferError) Unwrap() error { return e.Last }

const (
	// defaultSubmitRetries bounds re-submission after the initial
	// attempt; backoff before retry n is n×2 seconds.
	defaultSubmitRetries = 3

	defaultConfirmTimeout  = 30 * time.Second
	defaultConfirmInterval = 2 * time.Second
)

// Payer settles payment requirements with SPL TransferChecked transfers.
// It implements x402.Payer.
type Payer struct {
	signer   *Signer
	api      rpcAPI
	mint     solana.PublicKey
	decimals uint8

	retries         int
	confirmTimeout  time.Duration
	confirmInterval time.Duration

	sleep   func(time.Duration)
	log     *zap.Logger
	metrics metrics.Recorder
}

// PayerOption configures a Payer.
type PayerOption func(*Payer)

// WithMint overrides the token mint (default devnet USDC).
func WithMint(mint solana.PublicKey, decimals uint8) PayerOption {
	return func(p *Payer) {
		p.mint = mint
		p.decimals = decimals
	}
}

// WithPayerLogger sets the structured logger.
func WithPayerLogger(log *zap.Logger) PayerOption {
	return func(p *Payer) { p.log = log }
}

// WithPayerMetrics sets the metrics recorder.
func WithPayerMetrics(rec metrics.Recorder) PayerOption {
	return func(p *Payer) { p.metrics = rec }
}

// WithConfirmWindow overrides confirmation polling budget.
func WithConfirmWindow(timeout, interval time.Duration) PayerOption {
	return func(p *Payer) {
		p.confirmTimeout = timeout
		p.confirmInterval = interval
	}
}

// NewPayer creates a payment executor over an established RPC connection.
func NewPayer(signer *Signer, client *Client, opts ...PayerOption) (*Payer, error) {
	if client == nil {
		return nil, fmt.Errorf("rpc client is required")
	}

	p := &Payer{
		signer:          signer,
		api:             client.api,
		mint:            solana.MustPublicKeyFromBase58(USDCMintDevnet),
		decimals:        USDCDecimals,
		retries:         defaultSubmitRetries,
		confirmTimeout:  defaultConfirmTimeout,
		confirmInterval: defaultConfirmInterval,
		sleep:           time.Sleep,
		log:             zap.NewNop(),
		metrics:         metrics.NoopRecorder{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Pay converts the requirement amount to base units, builds a single
// TransferChecked instruction to the recipient's associated token
// account, submits it with bounded retries, and polls for confirmation.
//
// The returned signature is valid even when Confirmed is false: a
// confirmation failure is logged, not fatal, because the chain may
// confirm after the client stopped waiting. There is no rollback; token
// transfers are irreversible once submitted.
func (p *Payer) Pay(ctx context.Context, req *x402.PaymentRequirement) (*x402.TransferResult, error) {
	if p.signer == nil {
		return nil, ErrNoSigner
	}

	amount, err := ToBaseUnits(req.Amount, int32(p.decimals))
	if err != nil {
		return nil, err
	}

	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", req.Recipient, err)
	}

	owner := p.signer.PublicKey()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(owner, p.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}

	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, p.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination token account: %w", err)
	}

	if err := p.verifyMint(ctx); err != nil {
		return nil, err
	}

	p.log.Info("sending token transfer",
		zap.String("from", owner.String()),
		zap.String("to", recipient.String()),
		zap.Uint64("base_units", amount),
		zap.String("mint", p.mint.String()))

	start := time.Now()
	sig, err := p.submit(ctx, sourceATA, destATA, owner, amount)
	p.metrics.ObserveLatency(metrics.TransferLatency, time.Since(start), map[string]string{"endpoint": "transfer"})
	if err != nil {
		p.metrics.IncCounter(metrics.TransfersFailed, map[string]string{"outcome": "submit_failed"})
		return nil, err
	}
	p.metrics.IncCounter(metrics.TransfersSent, map[string]string{"outcome": "submitted"})

	confirmed := p.confirm(ctx, sig)

	return &x402.TransferResult{Signature: sig.String(), Confirmed: confirmed}, nil
}

// verifyMint cross-checks the configured decimals against the mint
// account. An RPC failure only logs; the checked transfer instruction
// re-verifies on chain anyway.
func (p *Payer) verifyMint(ctx context.Context) error {
	info, err := p.api.GetAccountInfo(ctx, p.mint)
	if err != nil || info == nil || info.Value == nil {
		p.log.Warn("could not fetch mint account, skipping decimals check", zap.Error(err))
		return nil
	}

	owner := info.Value.Owner
	if !owner.Equals(solana.TokenProgramID) && !owner.Equals(solana.Token2022ProgramID) {
		return fmt.Errorf("mint %s was not created by a known token program", p.mint)
	}

	var mint token.Mint
	if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&mint); err != nil {
		p.log.Warn("could not decode mint account, skipping decimals check", zap.Error(err))
		return nil
	}

	if mint.Decimals != p.decimals {
		return fmt.Errorf("mint %s has %d decimals, configured %d", p.mint, mint.Decimals, p.decimals)
	}

	return nil
}

// submit builds, signs and sends the transfer, retrying on failure. Each
// attempt rebuilds the transaction with a fresh blockhash.
func (p *Payer) submit(ctx context.Context, source, dest, owner solana.PublicKey, amount uint64) (solana.Signature, error) {
	var lastErr error

	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			p.log.Info("retrying transaction submission",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff))
			p.sleep(backoff)
		}

		p.metrics.IncCounter(metrics.TransferAttempts, map[string]string{"outcome": "attempt"})

		sig, err := p.submitOnce(ctx, source, dest, owner, amount)
		if err == nil {
			return sig, nil
		}

		lastErr = err
		p.log.Warn("transaction submission failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return solana.Signature{}, &TransferError{Attempts: p.retries + 1, Last: lastErr}
}

func (p *Payer) submitOnce(ctx context.Context, source, dest, owner solana.PublicKey, amount uint64) (solana.Signature, error) {
	blockhash, err := p.api.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	transferIx, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(amount).
		SetDecimals(p.decimals).
		SetSourceAccount(source).
		SetMintAccount(p.mint).
		SetDestinationAccount(dest).
		SetOwnerAccount(owner).
		ValidateAndBuild()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transfer instruction: %w", err)
	}

	tx, err := solana.NewTransactionBuilder().
		AddInstruction(transferIx).
		SetRecentBlockHash(blockhash.Value.Blockhash).
		SetFeePayer(owner).
		Build()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	if err := p.signer.Sign(tx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := p.api.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig, nil
}

// confirm polls signature status until the transaction is confirmed or
// the polling budget runs out. Best-effort only.
func (p *Payer) confirm(ctx context.Context, sig solana.Signature) bool {
	attempts := int(p.confirmTimeout / p.confirmInterval)
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		p.sleep(p.confirmInterval)

		statuses, err := p.api.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			p.log.Warn("confirmation poll failed", zap.String("signature", sig.String()), zap.Error(err))
			continue
		}
		if len(statuses.Value) == 0 || statuses.Value[0] == nil {
			continue
		}

		status := statuses.Value[0]
		if status.Err != nil {
			p.log.Warn("transaction failed on chain",
				zap.String("signature", sig.String()),
				zap.Any("err", status.Err))
			return false
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			p.log.Info("transaction confirmed", zap.String("signature", sig.String()))
			return true
		}
	}

	p.log.Warn("transaction not confirmed before timeout, it may still land",
		zap.String("signature", sig.String()))
	return false
}
