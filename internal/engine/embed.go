package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"golang.org/x/time/rate"
)

// EmbeddingProvider turns texts into dense vectors. Implementations must be
// safe for concurrent use. Callers treat the provider as best-effort: when
// Available reports false or Embed errors, they fall back to lexical paths.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Available() bool
}

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint.
// Requests are rate-limited and retried with backoff.
type HTTPEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	hc      *http.Client
	limiter *rate.Limiter
}

// NewHTTPEmbedder builds a provider from engine config.
// Returns nil when no API base is configured, which callers treat as unavailable.
func NewHTTPEmbedder() *HTTPEmbedder {
	if cfg.EmbedAPIBase == "" {
		return nil
	}
	rps := cfg.EmbedRPS
	if rps <= 0 {
		rps = 2
	}
	return &HTTPEmbedder{
		baseURL: cfg.EmbedAPIBase,
		apiKey:  cfg.EmbedAPIKey,
		model:   cfg.EmbedModel,
		hc:      cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Available reports whether the provider can serve requests.
func (e *HTTPEmbedder) Available() bool {
	return e != nil && e.baseURL != ""
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed requests vectors for texts in one call, preserving input order.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if !e.Available() {
		return nil, fmt.Errorf("embed: provider not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	IncrEmbedCalls()
	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal: %w", err)
	}

	out, err := RetryDo(ctx, DefaultRetryConfig, func() (*embedResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if e.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+e.apiKey)
		}
		resp, err := e.hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if IsRetryableStatus(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			return nil, &httpStatusError{StatusCode: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("embed: status %d: %s", resp.StatusCode, Truncate(string(b), 200))
		}
		var er embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return nil, fmt.Errorf("embed: decode: %w", err)
		}
		return &er, nil
	})
	if err != nil {
		IncrEmbedErrors()
		return nil, err
	}
	if len(out.Data) != len(texts) {
		IncrEmbedErrors()
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(out.Data), len(texts))
	}

	vecs := make([][]float64, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// Cosine computes cosine similarity between two vectors.
// Mismatched lengths or zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
