package introspect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunFetchesServiceSDL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"_service": map[string]any{"sdl": "type Query { hello: String }"},
			},
		})
	}))
	defer srv.Close()

	runner := NewHTTPRunner(srv.URL, nil, nil)
	sdl, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sdl != "type Query { hello: String }" {
		t.Fatalf("unexpected sdl: %q", sdl)
	}
	if runner.Dialect() != DialectSubgraph {
		t.Fatalf("expected dialect to pin to DialectSubgraph, got %v", runner.Dialect())
	}
}

func TestRunSurfacesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "no such field _service"}},
		})
	}))
	defer srv.Close()

	runner := NewHTTPRunner(srv.URL, nil, nil)
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected an error when the endpoint reports GraphQL errors")
	}
}

func TestRunSendsCustomHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"_service": map[string]any{"sdl": "type Query { x: ID }"}},
		})
	}))
	defer srv.Close()

	runner := NewHTTPRunner(srv.URL, nil, map[string]string{"Authorization": "Bearer token"})
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("expected custom header to be sent, got %q", gotAuth)
	}
}

func TestRunReturnsErrorOnceGraphDialectPinned(t *testing.T) {
	runner := &HTTPRunner{Endpoint_: "http://unused/", Client: http.DefaultClient, dialect: DialectGraph}
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected an error once the dialect has pinned to DialectGraph")
	}
}
