package x402

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// flexString tolerates both string and number JSON encodings; the server
// is not consistent about which it sends for amounts.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// paymentBody is the JSON fallback shape: servers that omit the payment
// headers embed the same field set in the error envelope.
type paymentBody struct {
	Payment struct {
		Amount      flexString `json:"amount"`
		Currency    string     `json:"currency"`
		Recipient   string     `json:"recipient"`
		Network     string     `json:"network"`
		Facilitator string     `json:"facilitator"`
	} `json:"payment"`
}

// ParseRequirement extracts payment parameters from a 402 response.
// Headers win; the JSON body is consulted only when the amount header is
// absent. Missing optional fields are left zero-valued; only a present
// but unparsable amount is an error.
func ParseRequirement(header http.Header, body []byte) (*PaymentRequirement, error) {
	req := &PaymentRequirement{
		Currency:    header.Get(HeaderCurrency),
		Recipient:   header.Get(HeaderRecipient),
		Network:     header.Get(HeaderNetwork),
		Facilitator: header.Get(HeaderFacilitator),
	}

	amountText := header.Get(HeaderAmount)

	if amountText == "" && len(body) > 0 {
		var pb paymentBody
		if err := json.Unmarshal(body, &pb); err == nil {
			amountText = string(pb.Payment.Amount)
			if req.Currency == "" {
				req.Currency = pb.Payment.Currency
			}
			if req.Recipient == "" {
				req.Recipient = pb.Payment.Recipient
			}
			if req.Network == "" {
				req.Network = pb.Payment.Network
			}
			if req.Facilitator == "" {
				req.Facilitator = pb.Payment.Facilitator
			}
		}
	}

	if amountText != "" {
		amount, err := decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("invalid payment amount %q: %w", amountText, err)
		}
		req.Amount = amount
	}

	if req.Currency == "" {
		req.Currency = "USDC"
	}

	return req, nil
}
