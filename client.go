// Package datanexus is a Go client for the DataNexus dataset-marketplace
// agent API. Paid endpoints follow a pay-per-request convention: the
// server answers 402 with payment parameters, the client settles the
// payment on Solana and retries the request with the transaction
// signature as proof.
package datanexus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datanexus/datanexus-go/metrics"
	"github.com/datanexus/datanexus-go/solana"
	"github.com/datanexus/datanexus-go/x402"
)

// Client talks to the DataNexus agent API. It owns its HTTP client and,
// when configured, the signing identity used for payments; neither is
// shared across instances.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	payer    x402.Payer
	log      *zap.Logger
	metrics  metrics.Recorder
	validate *validator.Validate
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient supplies the underlying HTTP client. Its transport is
// wrapped with payment handling.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPayer sets the payment executor used to settle 402 responses.
func WithPayer(p x402.Payer) Option {
	return func(c *Client) { c.payer = p }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Client) { c.metrics = rec }
}

// New creates a client for the given API key and base URL.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		log:      zap.NewNop(),
		metrics:  metrics.NoopRecorder{},
		validate: validator.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{}
	}

	transport := x402.NewTransport(c.http.Transport, c.payer, c.log)
	transport.Metrics = c.metrics
	c.http.Transport = transport

	return c, nil
}

// NewFromConfig builds a client from environment configuration. When a
// signing key is present it dials the Solana RPC (with endpoint
// fallback) and wires a payment executor; connectivity failure there is
// fatal, per the fail-fast policy for RPC selection.
func NewFromConfig(ctx context.Context, cfg *Config, log *zap.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts = append([]Option{WithLogger(log)}, opts...)

	if cfg.SolanaPrivateKey != "" {
		signer, err := solana.LoadSigner(cfg.SolanaPrivateKey)
		if err != nil {
			return nil, err
		}

		conn, err := solana.Dial(ctx, cfg.SolanaRPCURL, log)
		if err != nil {
			return nil, err
		}

		payer, err := solana.NewPayer(signer, conn, solana.WithPayerLogger(log))
		if err != nil {
			return nil, err
		}

		log.Info("payment executor ready", zap.String("wallet", signer.PublicKey().String()))
		opts = append(opts, WithPayer(payer))
	}

	return New(cfg.APIKey, cfg.BaseURL, opts...)
}

// HasPayer reports whether a signing identity is configured.
func (c *Client) HasPayer() bool { return c.payer != nil }

// request issues an authenticated API request and returns the raw
// response. The payment transport has already run by the time the
// response surfaces here.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveLatency(metrics.APILatency, time.Since(start), map[string]string{"endpoint": path})
	if err != nil {
		c.metrics.IncCounter(metrics.APIRequests, map[string]string{"endpoint": path, "outcome": "error"})
		return nil, err
	}
	c.metrics.IncCounter(metrics.APIRequests, map[string]string{"endpoint": path, "outcome": strconv.Itoa(resp.StatusCode)})

	return resp, nil
}

// doJSON issues a request and decodes the success envelope into out.
// Non-2xx responses become *APIError with the server's code and message
// when the envelope carries them.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.request(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &APIError{Code: ErrCodeInvalidResponse, Message: err.Error(), Status: resp.StatusCode}
	}
	if !env.Success {
		if env.Error != nil {
			env.Error.Status = resp.StatusCode
			return env.Error
		}
		return NewAPIError(resp.StatusCode, "request was not successful")
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Code: ErrCodeInvalidResponse, Message: err.Error(), Status: resp.StatusCode}
		}
	}

	return nil
}

// decodeError turns an error response body into an *APIError, falling
// back to the status text when the envelope is absent or malformed.
func decodeError(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		env.Error.Status = status
		if env.Error.Code == "" {
			env.Error.Code = NewAPIError(status, "").Code
		}
		return env.Error
	}
	return NewAPIError(status, http.StatusText(status))
}
