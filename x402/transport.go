package x402

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/datanexus/datanexus-go/metrics"
)

// ProofRejectedError reports a second 402 on the request retried with a
// payment proof. It is terminal: the transport never pays twice for the
// same request.
type ProofRejectedError struct {
	Signature string
	Status    int
	Body      []byte
}

func (e *ProofRejectedError) Error() string {
	return fmt.Sprintf("payment proof %s rejected: server answered %d again", e.Signature, e.Status)
}

// Transport is an http.RoundTripper that settles 402 responses through a
// Payer and retries the original request once with the transaction
// signature in the proof header.
//
// With a nil Payer the 402 response is returned untouched, so callers can
// turn it into a structured "payment required, no identity" outcome
// instead of an error.
type Transport struct {
	Base    http.RoundTripper
	Payer   Payer
	Log     *zap.Logger
	Metrics metrics.Recorder
}

// NewTransport wraps base (http.DefaultTransport when nil) with payment
// handling.
func NewTransport(base http.RoundTripper, payer Payer, log *zap.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{Base: base, Payer: payer, Log: log, Metrics: metrics.NoopRecorder{}}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	t.recorder().IncCounter(metrics.PaymentsRequired, map[string]string{"endpoint": req.URL.Path})

	if t.Payer == nil {
		t.Log.Info("payment required but no signing identity configured",
			zap.String("url", req.URL.String()))
		return resp, nil
	}

	// Body may carry the fallback field set; buffer it so the parsed 402
	// can still be returned on failure paths.
	var body []byte
	if resp.Body != nil {
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read 402 response body: %w", err)
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}

	requirement, err := ParseRequirement(resp.Header, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payment requirement: %w", err)
	}

	t.Log.Info("payment required",
		zap.String("amount", requirement.Amount.String()),
		zap.String("currency", requirement.Currency),
		zap.String("recipient", requirement.Recipient),
		zap.String("network", requirement.Network))

	result, err := t.Payer.Pay(req.Context(), requirement)
	if err != nil {
		return nil, err
	}

	t.Log.Info("payment settled, retrying with proof",
		zap.String("signature", result.Signature),
		zap.Bool("confirmed", result.Confirmed))

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		retry.Body, err = req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to replay request body: %w", err)
		}
	}
	retry.Header.Set(HeaderProof, result.Signature)

	retryResp, err := t.Base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}

	if retryResp.StatusCode == http.StatusPaymentRequired {
		var retryBody []byte
		if retryResp.Body != nil {
			retryBody, _ = io.ReadAll(retryResp.Body)
			retryResp.Body.Close()
		}
		return nil, &ProofRejectedError{
			Signature: result.Signature,
			Status:    retryResp.StatusCode,
			Body:      retryBody,
		}
	}

	return retryResp, nil
}

func (t *Transport) recorder() metrics.Recorder {
	if t.Metrics == nil {
		return metrics.NoopRecorder{}
	}
	return t.Metrics
}
