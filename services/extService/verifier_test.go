package extService

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wagerBot/services/common"
)

var testOpts = HTTPOptions{Timeout: 2 * time.Second, Retries: 1, Backoff: 10 * time.Millisecond}

func TestHTTPVerifier(t *testing.T) {
	t.Run("Decodes the verdict", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer secret" {
				t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
			}
			var req VerificationRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
			if req.ProofURL != "https://cdn.example/proof.png" || req.Task != "run 5k" {
				t.Errorf("Unexpected request: %+v", req)
			}
			w.Write([]byte(`{"passed": true, "confidence": 85, "reasoning": "Shows a finished run."}`))
		}))
		defer server.Close()

		verifier := NewHTTPVerifier(server.URL, "secret", testOpts)
		result, err := verifier.Verify(context.Background(), VerificationRequest{ProofURL: "https://cdn.example/proof.png", Task: "run 5k", Consequence: "donuts"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !result.Passed || result.Confidence != 85 || result.Reasoning != "Shows a finished run." {
			t.Errorf("Unexpected result: %+v", result)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing confidence", `{"passed": true}`},
		{"missing passed", `{"confidence": 90}`},
		{"not json", `I think so`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPVerifier(server.URL, "", testOpts).Verify(context.Background(), VerificationRequest{})
			if err == nil {
				t.Error("Expected an error")
			}
		})
	}

	t.Run("Out of range confidence", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"passed": true, "confidence": 150}`))
		}))
		defer server.Close()

		_, err := NewHTTPVerifier(server.URL, "", testOpts).Verify(context.Background(), VerificationRequest{})
		if !errors.Is(err, common.ErrInvalidConfidence) {
			t.Errorf("Expected ErrInvalidConfidence, got %v", err)
		}
	})

	t.Run("Server error is retried then reported", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewHTTPVerifier(server.URL, "", testOpts).Verify(context.Background(), VerificationRequest{})
		if err == nil {
			t.Error("Expected an error")
		}
		if atomic.LoadInt32(&hits) < 2 {
			t.Errorf("Expected a retry, got %d calls", hits)
		}
	})
}

func TestVerificationResultValidate(t *testing.T) {
	for _, c := range []int{-1, 101} {
		if err := (VerificationResult{Confidence: c}).Validate(); !errors.Is(err, common.ErrInvalidConfidence) {
			t.Errorf("Expected confidence %d rejected, got %v", c, err)
		}
	}
	for _, c := range []int{0, 70, 100} {
		if err := (VerificationResult{Confidence: c}).Validate(); err != nil {
			t.Errorf("Expected confidence %d accepted, got %v", c, err)
		}
	}
}

func TestUnavailableVerifier(t *testing.T) {
	if _, err := (UnavailableVerifier{}).Verify(context.Background(), VerificationRequest{}); err == nil {
		t.Error("Expected an error")
	}
	result := Unverified("down")
	if result.Passed || result.Confidence != 0 {
		t.Errorf("Expected a failed zero-confidence result, got %+v", result)
	}
}
