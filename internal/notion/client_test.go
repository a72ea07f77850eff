package notion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"notion-mcp/internal/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	t.Setenv(TokenEnv, "secret-token")
	cfg := config.Config{BaseURL: baseURL, NotionVersion: config.DefaultNotionVersion, Timeout: 10 * time.Second}
	client, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewMissingToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	_, err := New(config.Config{BaseURL: config.DefaultBaseURL}, zap.NewNop())
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestSearchOmitsAbsentFields(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"object":"list","results":[],"has_more":false,"next_cursor":null}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, err := client.Search(context.Background(), SearchParams{Query: "hello"}); err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(gotBody) != 1 {
		t.Fatalf("expected body with only the query field, got %v", gotBody)
	}
	if gotBody["query"] != "hello" {
		t.Fatalf("unexpected query value: %v", gotBody["query"])
	}
	if gotHeader.Get("Authorization") != "Bearer secret-token" {
		t.Fatalf("unexpected Authorization header: %q", gotHeader.Get("Authorization"))
	}
	if gotHeader.Get("Notion-Version") != config.DefaultNotionVersion {
		t.Fatalf("unexpected Notion-Version header: %q", gotHeader.Get("Notion-Version"))
	}
	if gotHeader.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected Content-Type header: %q", gotHeader.Get("Content-Type"))
	}
}

func TestThrottleRetryHonorsRetryAfter(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"page-1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	start := time.Now()
	raw, err := client.GetPage(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 2*time.Second {
		t.Fatalf("returned after %v, expected a wait of at least 2s", elapsed)
	}
	if hits != 2 {
		t.Fatalf("server saw %d requests, want 2", hits)
	}
	if string(raw) != `{"id":"page-1"}` {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestThrottleRetryDefaultDelay(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"block-1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	start := time.Now()
	if _, err := client.GetBlock(context.Background(), "block-1"); err != nil {
		t.Fatalf("get block: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("returned after %v, expected the default 1s backoff", elapsed)
	}
	if hits != 2 {
		t.Fatalf("server saw %d requests, want 2", hits)
	}
}

func TestAPIErrorNotRetried(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not_found"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetPage(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status code: %d", apiErr.StatusCode)
	}
	msg := err.Error()
	if !strings.Contains(msg, "404") || !strings.Contains(msg, "not_found") {
		t.Fatalf("error message missing status or body: %q", msg)
	}
	if hits != 1 {
		t.Fatalf("server saw %d requests, want 1", hits)
	}
}

func TestGetBlockChildrenPaginationParams(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"object":"list","results":[],"has_more":false,"next_cursor":null}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, err := client.GetBlockChildren(context.Background(), "block-1", "cursor-1", 50); err != nil {
		t.Fatalf("get block children: %v", err)
	}
	if gotPath != "/blocks/block-1/children" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotQuery != "page_size=50&start_cursor=cursor-1" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}

	if _, err := client.ListUsers(context.Background(), "", 0); err != nil {
		t.Fatalf("list users: %v", err)
	}
	if gotPath != "/users" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotQuery != "" {
		t.Fatalf("expected no query parameters, got %q", gotQuery)
	}
}

func TestUpdatePageOmitsAbsentArchived(t *testing.T) {
	var gotMethod string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"page-1"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	params := UpdatePageParams{Properties: json.RawMessage(`{"Name":{"title":[]}}`)}
	if _, err := client.UpdatePage(context.Background(), "page-1", params); err != nil {
		t.Fatalf("update page: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("unexpected method: %q", gotMethod)
	}
	if _, ok := gotBody["archived"]; ok {
		t.Fatalf("archived should be absent when not provided: %v", gotBody)
	}
	if _, ok := gotBody["properties"]; !ok {
		t.Fatalf("expected properties in body: %v", gotBody)
	}
}
