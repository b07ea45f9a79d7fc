// Package introspect is the out-of-scope "HTTP/GraphQL introspection
// transport" collaborator (spec §1): it fetches SDL from a running
// subgraph endpoint. The core only depends on the Runner interface and the
// dialect-discovery shape described in spec §4.H; the HTTP mechanics here
// are a thin, real implementation so the watcher has something to drive in
// tests.
package introspect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Runner fetches a subgraph's current SDL.
type Runner interface {
	Run(ctx context.Context) (sdl string, err error)
	Endpoint() string
}

// Dialect distinguishes the two introspection queries a subgraph endpoint
// might answer: the federation `_service { sdl }` field (Subgraph), or
// GraphQL's standard `__schema` introspection, printed back to SDL by the
// caller (Graph). The watcher starts in an unknown-dialect state and the
// first successful fetch pins one concretely (spec §4.H).
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectSubgraph
	DialectGraph
)

// HTTPRunner fetches SDL with the federation `_service { sdl }` query and
// records DialectSubgraph after the first success. It does not fall back
// to standard `__schema` introspection: no code path sets DialectGraph, and
// a runner whose dialect is DialectGraph fails every Run.
type HTTPRunner struct {
	Endpoint_ string
	Client    *http.Client
	Headers   map[string]string

	dialect Dialect
}

// NewHTTPRunner creates a runner in the unknown-dialect state.
func NewHTTPRunner(endpoint string, client *http.Client, headers map[string]string) *HTTPRunner {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRunner{Endpoint_: endpoint, Client: client, Headers: headers}
}

// Endpoint implements Runner.
func (r *HTTPRunner) Endpoint() string { return r.Endpoint_ }

// Dialect reports which introspection dialect this runner has settled on,
// DialectUnknown until the first successful Run.
func (r *HTTPRunner) Dialect() Dialect { return r.dialect }

type serviceSDLResponse struct {
	Data struct {
		Service struct {
			SDL string `json:"sdl"`
		} `json:"_service"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Run fetches the subgraph's SDL. On the first call it tries the
// federation `_service { sdl }` query; once that succeeds the dialect is
// pinned to DialectSubgraph and subsequent calls skip straight to it.
func (r *HTTPRunner) Run(ctx context.Context) (string, error) {
	if r.dialect == DialectGraph {
		return "", fmt.Errorf("introspect %s: standard __schema introspection is not supported for SDL export, use a federation-aware subgraph", r.Endpoint_)
	}

	sdl, err := r.fetchServiceSDL(ctx)
	if err != nil {
		return "", err
	}
	r.dialect = DialectSubgraph
	return sdl, nil
}

func (r *HTTPRunner) fetchServiceSDL(ctx context.Context) (string, error) {
	body := []byte(`{"query":"{_service{sdl}}"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint_, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("introspection request to %s failed: %w", r.Endpoint_, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("introspection request to %s returned status %d", r.Endpoint_, resp.StatusCode)
	}

	var parsed serviceSDLResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode introspection response from %s: %w", r.Endpoint_, err)
	}
	if len(parsed.Errors) > 0 {
		return "", fmt.Errorf("introspection errors from %s: %s", r.Endpoint_, parsed.Errors[0].Message)
	}
	if parsed.Data.Service.SDL == "" {
		return "", fmt.Errorf("empty SDL returned from %s", r.Endpoint_)
	}
	return parsed.Data.Service.SDL, nil
}
