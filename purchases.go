package datanexus

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GetPurchases fetches the agent's purchase history.
func (c *Client) GetPurchases(ctx context.Context, page, limit int) (*PurchasesResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var result PurchasesResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/purchases", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PurchaseDataset records a settled payment against a dataset.
func (c *Client) PurchaseDataset(ctx context.Context, id string, req PurchaseRequest) (*Order, error) {
	switch req.PaymentMethod {
	case "solana":
		if req.PaymentTxHash == "" {
			return nil, &APIError{Code: ErrCodeInvalidRequest, Message: "paymentTxHash is required for solana payment"}
		}
	case "x402":
		if req.X402Token == "" {
			return nil, &APIError{Code: ErrCodeInvalidRequest, Message: "x402Token is required for x402 payment"}
		}
	default:
		return nil, &APIError{Code: ErrCodeInvalidRequest, Message: fmt.Sprintf("invalid payment method %q, use solana or x402", req.PaymentMethod)}
	}

	var order Order
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent/datasets/"+url.PathEscape(id)+"/purchase", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateX402Payment opens a payment request for a product.
func (c *Client) CreateX402Payment(ctx context.Context, productID string, amount float64) (*X402Payment, error) {
	body := map[string]any{"productId": productID, "amount": amount}

	var payment X402Payment
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent/x402/create-payment", nil, body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// VerifyX402Payment asks the server to verify a payment token.
func (c *Client) VerifyX402Payment(ctx context.Context, paymentID, token string) (*X402Verification, error) {
	body := map[string]any{"paymentId": paymentID, "x402Token": token}

	var verification X402Verification
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent/x402/verify-payment", nil, body, &verification); err != nil {
		return nil, err
	}
	return &verification, nil
}
