package datanexus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/datanexus/datanexus-go/x402"
)

// SearchOptions filters and pages a dataset search. Zero values are
// omitted from the query; nil price bounds mean unbounded.
type SearchOptions struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string // price, views, purchases, createdAt
	Order    string // asc, desc
	Page     int
	Limit    int // max 100
}

func (o SearchOptions) values() url.Values {
	q := url.Values{}
	if o.Query != "" {
		q.Set("q", o.Query)
	}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	if o.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*o.MinPrice, 'f', -1, 64))
	}
	if o.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*o.MaxPrice, 'f', -1, 64))
	}
	sortBy := o.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	q.Set("sortBy", sortBy)
	order := o.Order
	if order == "" {
		order = "desc"
	}
	q.Set("order", order)
	page := o.Page
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	limit := o.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// SearchDatasets searches the marketplace.
func (c *Client) SearchDatasets(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	var result SearchResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/datasets", opts.values(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDataset fetches one dataset's details.
func (c *Client) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	var dataset Dataset
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/datasets/"+url.PathEscape(id), nil, nil, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// PreviewDataset fetches the free first-rows preview.
func (c *Client) PreviewDataset(ctx context.Context, id string) (*Preview, error) {
	var preview Preview
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/datasets/"+url.PathEscape(id)+"/preview", nil, nil, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// DownloadDataset downloads a dataset to outputPath, paying on a 402 when
// a payment executor is configured. Without one, a 402 becomes a
// structured failure carrying the parsed payment parameters, not an
// error, and no retry is attempted. Downloaded bytes are written
// verbatim.
func (c *Client) DownloadDataset(ctx context.Context, id, outputPath string) (*DownloadResult, error) {
	resp, err := c.request(ctx, http.MethodGet, "/api/agent/datasets/"+url.PathEscape(id)+"/download", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if err := os.WriteFile(outputPath, body, 0o644); err != nil {
			return nil, fmt.Errorf("failed to save dataset: %w", err)
		}
		return &DownloadResult{
			Success:    true,
			Path:       outputPath,
			Size:       int64(len(body)),
			StatusCode: resp.StatusCode,
		}, nil

	case http.StatusPaymentRequired:
		// Only reachable without a payer; the transport settles 402s
		// when one is configured.
		requirement, perr := x402.ParseRequirement(resp.Header, body)
		if perr != nil {
			requirement = nil
		}
		return &DownloadResult{
			Success:    false,
			StatusCode: resp.StatusCode,
			Error:      "payment required and no signing identity configured",
			Payment:    requirement,
		}, nil

	default:
		apiErr := decodeError(resp.StatusCode, body)
		return &DownloadResult{
			Success:    false,
			StatusCode: resp.StatusCode,
			Error:      apiErr.Error(),
		}, nil
	}
}

// analysisData is the server payload of a completed analysis.
type analysisData struct {
	Analysis   json.RawMessage `json:"analysis"`
	Verified   bool            `json:"verified"`
	TokensUsed int64           `json:"tokensUsed"`
	TxHash     string          `json:"txHash,omitempty"`
}

// AnalyzeDataset runs verifiable AI inference over a dataset, paying on a
// 402 when a payment executor is configured. Defaults: model gpt-4, type
// general, 2000 max tokens, temperature 0.7.
func (c *Client) AnalyzeDataset(ctx context.Context, id string, req AnalysisRequest) (*AnalysisResult, error) {
	if req.Model == "" {
		req.Model = "gpt-4"
	}
	if req.AnalysisType == "" {
		req.AnalysisType = "general"
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 2000
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}

	if err := c.validate.Struct(req); err != nil {
		return nil, &APIError{Code: ErrCodeInvalidRequest, Message: err.Error()}
	}

	resp, err := c.request(ctx, http.MethodPost, "/api/agent/datasets/"+url.PathEscape(id)+"/analyze", nil, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, &APIError{Code: ErrCodeInvalidResponse, Message: err.Error(), Status: resp.StatusCode}
		}
		var data analysisData
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				return nil, &APIError{Code: ErrCodeInvalidResponse, Message: err.Error(), Status: resp.StatusCode}
			}
		}
		return &AnalysisResult{
			Success:    true,
			Verified:   data.Verified,
			TokensUsed: data.TokensUsed,
			TxHash:     data.TxHash,
			Analysis:   data.Analysis,
			StatusCode: resp.StatusCode,
		}, nil

	case http.StatusPaymentRequired:
		requirement, perr := x402.ParseRequirement(resp.Header, body)
		if perr != nil {
			requirement = nil
		}
		return &AnalysisResult{
			Success:    false,
			StatusCode: resp.StatusCode,
			Error:      "payment required and no signing identity configured",
			Payment:    requirement,
		}, nil

	default:
		apiErr := decodeError(resp.StatusCode, body)
		return &AnalysisResult{
			Success:    false,
			StatusCode: resp.StatusCode,
			Error:      apiErr.Error(),
		}, nil
	}
}
