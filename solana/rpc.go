package solana

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// DevnetRPCURL is the default endpoint when none is configured.
const DevnetRPCURL = rpc.DevNet_RPC

// backupRPCURLs is tried in order when the primary endpoint does not
// answer a blockhash probe.
var backupRPCURLs = []string{
	"https://api.devnet.solana.com",
	"https://rpc.ankr.com/solana_devnet",
	"https://solana-devnet-rpc.allthatnode.com",
}

// ConnectivityError means no configured RPC endpoint answered.
type ConnectivityError struct {
	Endpoints []string
	Last      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("no reachable Solana RPC endpoint (tried %d): %v", len(e.Endpoints), e.Last)
}

func (e *ConnectivityError) Unwrap() error { return e.Last }

// rpcAPI is the slice of the RPC client the payer needs. *rpc.Client
// satisfies it; tests substitute a fake.
type rpcAPI interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Client is an RPC connection whose endpoint answered a blockhash probe
// at construction time.
type Client struct {
	api rpcAPI
	url string
}

// URL reports the endpoint that was adopted.
func (c *Client) URL() string { return c.url }

// Dial connects to the primary RPC endpoint, falling back through the
// fixed backup list. Endpoint selection happens once here, not per call.
func Dial(ctx context.Context, primary string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if primary == "" {
		primary = DevnetRPCURL
	}

	tried := []string{primary}
	client := rpc.New(primary)
	_, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err == nil {
		log.Info("connected to Solana RPC", zap.String("url", primary))
		return &Client{api: client, url: primary}, nil
	}

	log.Warn("primary RPC endpoint failed", zap.String("url", primary), zap.Error(err))

	for _, backup := range backupRPCURLs {
		if backup == primary {
			continue
		}
		tried = append(tried, backup)
		client = rpc.New(backup)
		if _, probeErr := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized); probeErr == nil {
			log.Info("connected to backup Solana RPC", zap.String("url", backup))
			return &Client{api: client, url: backup}, nil
		} else {
			log.Warn("backup RPC endpoint failed", zap.String("url", backup), zap.Error(probeErr))
			err = probeErr
		}
	}

	return nil, &ConnectivityError{Endpoints: tried, Last: err}
}
