package datanexus

import (
	"encoding/json"

	"github.com/datanexus/datanexus-go/x402"
)

// envelope is the response wrapper every agent API endpoint uses:
// {success, data, error:{code,message}}.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error,omitempty"`
}

// Dataset is a marketplace listing. The server owns the schema; only the
// fields the client reads are typed here.
type Dataset struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Purchases   int     `json:"purchases,omitempty"`
	Views       int     `json:"views,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// Pagination echoes the server's paging info.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages,omitempty"`
}

// SearchResult is the payload of GET /api/agent/datasets.
type SearchResult struct {
	Datasets   []Dataset  `json:"datasets"`
	Pagination Pagination `json:"pagination"`
}

// Preview is the free first-rows sample of a dataset.
type Preview struct {
	TotalRows   int             `json:"totalRows"`
	PreviewRows int             `json:"previewRows"`
	Columns     []string        `json:"columns"`
	Rows        json.RawMessage `json:"rows,omitempty"`
}

// Purchase is one entry of the agent's purchase history.
type Purchase struct {
	ID            string  `json:"id"`
	DatasetName   string  `json:"datasetName,omitempty"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	PaymentTxHash string  `json:"paymentTxHash,omitempty"`
	Signature     string  `json:"signature,omitempty"`
	DownloadCount int     `json:"downloadCount,omitempty"`
	Product       *struct {
		Name string `json:"name"`
	} `json:"product,omitempty"`
}

// PurchasesResult is the payload of GET /api/agent/purchases.
type PurchasesResult struct {
	Purchases  []Purchase `json:"purchases"`
	Pagination Pagination `json:"pagination"`
}

// PurchaseRequest records a completed payment against a dataset.
// PaymentMethod is "solana" (requires PaymentTxHash) or "x402" (requires
// X402Token).
type PurchaseRequest struct {
	PaymentMethod string `json:"paymentMethod"`
	PaymentTxHash string `json:"paymentTxHash,omitempty"`
	X402Token     string `json:"x402Token,omitempty"`
}

// Order is the payload returned by a purchase.
type Order struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Amount float64 `json:"amount,omitempty"`
}

// AnalysisRequest configures a verifiable-inference run over a dataset.
type AnalysisRequest struct {
	Prompt       string  `json:"prompt" validate:"required"`
	Model        string  `json:"model" validate:"required"`
	AnalysisType string  `json:"analysisType" validate:"omitempty,oneof=general sentiment trading-signals prediction"`
	MaxTokens    int     `json:"maxTokens" validate:"omitempty,gt=0"`
	Temperature  float64 `json:"temperature" validate:"gte=0,lte=1"`
}

// DownloadResult is the structured outcome of DownloadDataset. A 402 with
// no signing identity is reported here (Success=false, Payment set), not
// as an error.
type DownloadResult struct {
	Success    bool
	Path       string
	Size       int64
	StatusCode int
	Error      string
	Payment    *x402.PaymentRequirement
}

// AnalysisResult is the structured outcome of AnalyzeDataset.
type AnalysisResult struct {
	Success    bool
	Verified   bool
	TokensUsed int64
	TxHash     string
	Analysis   json.RawMessage
	StatusCode int
	Error      string
	Payment    *x402.PaymentRequirement
}

// X402Payment is the payload of POST /api/agent/x402/create-payment.
type X402Payment struct {
	PaymentID string  `json:"paymentId"`
	URL       string  `json:"x402Url,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Status    string  `json:"status,omitempty"`
}

// X402Verification is the payload of POST /api/agent/x402/verify-payment.
type X402Verification struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status,omitempty"`
}
