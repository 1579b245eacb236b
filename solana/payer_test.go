package solana

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/datanexus/datanexus-go/x402"
)

type fakeRPC struct {
	sendErrs  []error // consumed one per send attempt; nil entry means success
	sendCalls int
	sig       solana.Signature

	statuses  []*rpc.SignatureStatusesResult
	statusIdx int
	statusErr error

	account    *rpc.GetAccountInfoResult
	accountErr error
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            solana.Hash{1},
			LastValidBlockHeight: 100,
		},
	}, nil
}

func (f *fakeRPC) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return f.account, f.accountErr
}

func (f *fakeRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	defer func() { f.sendCalls++ }()
	if f.sendCalls < len(f.sendErrs) && f.sendErrs[f.sendCalls] != nil {
		return solana.Signature{}, f.sendErrs[f.sendCalls]
	}
	return f.sig, nil
}

func (f *fakeRPC) GetSignatureStatuses(ctx context.Context, search bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	var status *rpc.SignatureStatusesResult
	if f.statusIdx < len(f.statuses) {
		status = f.statuses[f.statusIdx]
		f.statusIdx++
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}, nil
}

func confirmedStatus() []*rpc.SignatureStatusesResult {
	return []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}}
}

func newTestPayer(t *testing.T, api rpcAPI) (*Payer, *[]time.Duration) {
	t.Helper()

	signer, err := LoadSigner(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	p, err := NewPayer(signer, &Client{api: api, url: "fake"},
		WithConfirmWindow(6*time.Second, 2*time.Second))
	require.NoError(t, err)

	slept := &[]time.Duration{}
	p.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return p, slept
}

func testRequirement(t *testing.T, amount string) *x402.PaymentRequirement {
	t.Helper()

	d, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	return &x402.PaymentRequirement{
		Amount:    d,
		Currency:  "USDC",
		Recipient: solana.NewWallet().PublicKey().String(),
		Network:   "solana-devnet",
	}
}

func TestPayFirstAttemptSucceeds(t *testing.T) {
	api := &fakeRPC{sig: solana.Signature{7}, statuses: confirmedStatus()}
	p, _ := newTestPayer(t, api)

	result, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.NoError(t, err)
	require.Equal(t, 1, api.sendCalls)
	require.Equal(t, api.sig.String(), result.Signature)
	require.True(t, result.Confirmed)
}

func TestPayRetriesWithBackoff(t *testing.T) {
	api := &fakeRPC{
		sig:      solana.Signature{7},
		sendErrs: []error{errors.New("blockhash expired"), errors.New("node behind"), nil},
		statuses: confirmedStatus(),
	}
	p, slept := newTestPayer(t, api)

	result, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.NoError(t, err)
	require.Equal(t, 3, api.sendCalls)
	require.True(t, result.Confirmed)

	// Two backoffs before the retries, then one confirmation poll.
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 2 * time.Second}, *slept)
}

func TestPayGivesUpAfterAllRetries(t *testing.T) {
	sendErr := errors.New("node unavailable")
	api := &fakeRPC{sendErrs: []error{sendErr, sendErr, sendErr, sendErr}}
	p, slept := newTestPayer(t, api)

	_, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.Error(t, err)

	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	require.Equal(t, 4, transferErr.Attempts)
	require.ErrorIs(t, err, sendErr)

	require.Equal(t, 4, api.sendCalls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}, *slept)
}

func TestPayConfirmationTimeoutIsNotFatal(t *testing.T) {
	api := &fakeRPC{sig: solana.Signature{7}, statusErr: errors.New("rpc timeout")}
	p, _ := newTestPayer(t, api)

	result, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.NoError(t, err)
	require.NotEmpty(t, result.Signature)
	require.False(t, result.Confirmed)
}

func TestPayOnChainFailureReportsUnconfirmed(t *testing.T) {
	api := &fakeRPC{
		sig: solana.Signature{7},
		statuses: []*rpc.SignatureStatusesResult{
			{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		},
	}
	p, _ := newTestPayer(t, api)

	result, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.NoError(t, err)
	require.False(t, result.Confirmed)
}

func TestPayWithoutSigner(t *testing.T) {
	p, err := NewPayer(nil, &Client{api: &fakeRPC{}, url: "fake"})
	require.NoError(t, err)

	_, err = p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.ErrorIs(t, err, ErrNoSigner)
}

func TestPayRejectsInvalidAmount(t *testing.T) {
	api := &fakeRPC{}
	p, _ := newTestPayer(t, api)

	req := testRequirement(t, "0.10")
	req.Amount = decimal.Zero
	_, err := p.Pay(context.Background(), req)
	require.Error(t, err)
	require.Zero(t, api.sendCalls)
}

func TestPayRejectsInvalidRecipient(t *testing.T) {
	p, _ := newTestPayer(t, &fakeRPC{})

	req := testRequirement(t, "0.10")
	req.Recipient = "not-an-address"
	_, err := p.Pay(context.Background(), req)
	require.Error(t, err)
}

func mintAccount(t *testing.T, decimals uint8, owner solana.PublicKey) *rpc.GetAccountInfoResult {
	t.Helper()

	mint := token.Mint{Decimals: decimals, IsInitialized: true}
	buf := new(bytes.Buffer)
	require.NoError(t, mint.MarshalWithEncoder(bin.NewBinEncoder(buf)))

	return &rpc.GetAccountInfoResult{Value: &rpc.Account{
		Owner: owner,
		Data:  rpc.DataBytesOrJSONFromBytes(buf.Bytes()),
	}}
}

func TestPayVerifiesMintDecimals(t *testing.T) {
	api := &fakeRPC{
		sig:      solana.Signature{7},
		account:  mintAccount(t, 9, solana.TokenProgramID),
		statuses: confirmedStatus(),
	}
	p, _ := newTestPayer(t, api)

	_, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decimals")
	require.Zero(t, api.sendCalls)
}

func TestPayRejectsForeignMintOwner(t *testing.T) {
	api := &fakeRPC{account: mintAccount(t, USDCDecimals, solana.NewWallet().PublicKey())}
	p, _ := newTestPayer(t, api)

	_, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.Error(t, err)
	require.Zero(t, api.sendCalls)
}

func TestPaySkipsMintCheckWhenFetchFails(t *testing.T) {
	api := &fakeRPC{
		sig:        solana.Signature{7},
		accountErr: errors.New("rpc unavailable"),
		statuses:   confirmedStatus(),
	}
	p, _ := newTestPayer(t, api)

	result, err := p.Pay(context.Background(), testRequirement(t, "0.10"))
	require.NoError(t, err)
	require.True(t, result.Confirmed)
}
