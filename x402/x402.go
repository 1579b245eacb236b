// Package x402 implements the client half of the pay-per-request
// convention used by the DataNexus agent API: detecting HTTP 402
// responses, extracting the payment parameters they carry, settling the
// payment through a Payer, and retrying the original request with the
// transaction signature as proof.
package x402

import (
	"context"

	"github.com/shopspring/decimal"
)

// Header names used by the DataNexus API for payment negotiation.
const (
	HeaderAmount      = "x-payment-amount"
	HeaderCurrency    = "x-payment-currency"
	HeaderRecipient   = "x-payment-recipient"
	HeaderNetwork     = "x-payment-network"
	HeaderFacilitator = "x-payment-facilitator"

	// HeaderProof carries the settled transaction signature on the
	// retried request.
	HeaderProof = "x-payment-token"
)

// PaymentRequirement holds the parameters extracted from a 402 response.
// It is consumed exactly once to build a transfer. Fields other than
// Amount and Recipient are informational and may be empty.
type PaymentRequirement struct {
	Amount      decimal.Decimal
	Currency    string
	Recipient   string
	Network     string
	Facilitator string
}

// TransferResult is the artifact of a settled payment. The signature is
// valid proof even when Confirmed is false: confirmation polling is
// best-effort and the chain may confirm after the client gave up waiting.
type TransferResult struct {
	Signature string
	Confirmed bool
}

// Payer settles a payment requirement on chain. Implementations own the
// signing identity; Pay blocks until the transaction is submitted (or
// submission retries are exhausted).
type Payer interface {
	Pay(ctx context.Context, req *PaymentRequirement) (*TransferResult, error)
}
