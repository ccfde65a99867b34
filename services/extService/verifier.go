package extService

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"wagerBot/services/common"
)

// VerificationRequest is what the proof judge needs to decide a wager.
type VerificationRequest struct {
	ProofURL    string `json:"proof_url"`
	Task        string `json:"task"`
	Consequence string `json:"consequence"`
}

// VerificationResult is the judge's verdict.
type VerificationResult struct {
	Passed     bool   `json:"passed"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

func (r VerificationResult) Validate() error {
	if r.Confidence < 0 || r.Confidence > 100 {
		return common.Reject(common.ErrInvalidConfidence, "Confidence must be between 0 and 100, got %d.", r.Confidence)
	}
	return nil
}

// Unverified is the result used when the judge cannot be reached.
func Unverified(reason string) VerificationResult {
	return VerificationResult{Passed: false, Confidence: 0, Reasoning: reason}
}

type Verifier interface {
	Verify(ctx context.Context, req VerificationRequest) (VerificationResult, error)
}

type HTTPOptions struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

func newHTTPClient(opts HTTPOptions) *httpclient.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	retrier := heimdall.NewRetrier(heimdall.NewConstantBackoff(opts.Backoff, opts.Backoff/2))
	return httpclient.NewClient(
		httpclient.WithHTTPTimeout(opts.Timeout),
		httpclient.WithRetryCount(opts.Retries),
		httpclient.WithRetrier(retrier),
	)
}

// postJSON sends body to url and decodes a 2xx JSON response into out.
func postJSON(ctx context.Context, client *httpclient.Client, url string, token string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type HTTPVerifier struct {
	client *httpclient.Client
	url    string
	token  string
}

func NewHTTPVerifier(url string, token string, opts HTTPOptions) *HTTPVerifier {
	return &HTTPVerifier{client: newHTTPClient(opts), url: url, token: token}
}

func (v *HTTPVerifier) Verify(ctx context.Context, req VerificationRequest) (VerificationResult, error) {
	var wire struct {
		Passed     *bool   `json:"passed"`
		Confidence *int    `json:"confidence"`
		Reasoning  *string `json:"reasoning"`
	}
	if err := postJSON(ctx, v.client, v.url, v.token, req, &wire); err != nil {
		return VerificationResult{}, fmt.Errorf("error calling verifier: %w", err)
	}
	if wire.Passed == nil || wire.Confidence == nil {
		return VerificationResult{}, errors.New("verifier response missing passed or confidence")
	}

	result := VerificationResult{Passed: *wire.Passed, Confidence: *wire.Confidence}
	if wire.Reasoning != nil {
		result.Reasoning = *wire.Reasoning
	}
	if err := result.Validate(); err != nil {
		return VerificationResult{}, err
	}
	return result, nil
}

// UnavailableVerifier is used when no judge is configured.
type UnavailableVerifier struct{}

func (UnavailableVerifier) Verify(ctx context.Context, req VerificationRequest) (VerificationResult, error) {
	return VerificationResult{}, errors.New("no verifier configured")
}
