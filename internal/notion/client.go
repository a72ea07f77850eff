// Package notion is the single point of outbound communication with the
// Notion API. The client enforces a sliding-window cap on outbound request
// rate and absorbs throttling responses via automatic retry; every tool
// handler funnels through it.
package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"notion-mcp/internal/config"
)

// TokenEnv names the environment variable holding the integration token.
const TokenEnv = "NOTION_TOKEN"

// ErrMissingToken is returned by New when the token environment variable is
// unset or blank.
var ErrMissingToken = errors.New(TokenEnv + " is not set")

// APIError is a non-success, non-throttling response from the API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api error: %s: %s", e.Status, e.Body)
}

// Client issues rate-limited requests against the Notion API.
type Client struct {
	http    *retryablehttp.Client
	limiter *rateLimiter
	logger  *zap.Logger
	baseURL string
	version string
	token   string
}

// New constructs a Client. It reads the integration token from the
// environment and fails before any network activity when it is absent.
func New(cfg config.Config, logger *zap.Logger) (*Client, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnv))
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		limiter: newRateLimiter(),
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		version: cfg.NotionVersion,
		token:   token,
	}

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = nil
	httpClient.HTTPClient.Timeout = cfg.Timeout
	// Throttling is retried until it resolves; everything else is surfaced
	// to the caller on the first response.
	httpClient.RetryMax = math.MaxInt32
	httpClient.CheckRetry = checkThrottle
	httpClient.Backoff = throttleBackoff
	// Every attempt, including 429 retries, passes admission control.
	httpClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			c.logger.Debug("retrying throttled request",
				zap.String("url", req.URL.Path),
				zap.Int("attempt", attempt))
		}
		_ = c.limiter.wait(req.Context())
	}
	c.http = httpClient

	return c, nil
}

// checkThrottle retries only on HTTP 429. Transport errors and all other
// statuses are returned to the caller unchanged.
func checkThrottle(_ context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil || resp == nil {
		return false, err
	}
	return resp.StatusCode == http.StatusTooManyRequests, nil
}

// throttleBackoff honors the server-supplied Retry-After delay, defaulting
// to one second when absent or unparseable.
func throttleBackoff(_, _ time.Duration, _ int, resp *http.Response) time.Duration {
	if resp != nil {
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return time.Second
}

// do issues one logical request and returns the raw response body. body may
// be nil for requests without a payload.
func (c *Client) do(ctx context.Context, method, path string, body any, query url.Values) (json.RawMessage, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody any
	hasBody := body != nil
	if hasBody {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := uuid.NewString()
	start := time.Now()
	c.logger.Debug("notion request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Debug("notion response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Body read failures are swallowed; the status alone is enough
		// to report the error.
		raw, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return json.RawMessage(raw), nil
}

// doList issues a request whose response uses the paginated list envelope.
func (c *Client) doList(ctx context.Context, method, path string, body any, query url.Values) (*ListResponse, error) {
	raw, err := c.do(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}
	var list ListResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	return &list, nil
}

// pageQuery builds the pagination query parameters shared by the GET listing
// endpoints. Unset values are left out entirely.
func pageQuery(startCursor string, pageSize int) url.Values {
	query := url.Values{}
	if startCursor != "" {
		query.Set("start_cursor", startCursor)
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	return query
}

// Search finds pages and databases whose titles match the query.
func (c *Client) Search(ctx context.Context, params SearchParams) (*ListResponse, error) {
	return c.doList(ctx, http.MethodPost, "/search", params, nil)
}

// GetDatabase retrieves a database object by ID.
func (c *Client) GetDatabase(ctx context.Context, databaseID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, nil)
}

// QueryDatabase returns the pages in a database, optionally filtered and
// sorted.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, params QueryDatabaseParams) (*ListResponse, error) {
	return c.doList(ctx, http.MethodPost, "/databases/"+databaseID+"/query", params, nil)
}

// CreateDatabase creates a database under a parent page.
func (c *Client) CreateDatabase(ctx context.Context, params CreateDatabaseParams) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/databases", params, nil)
}

// CreatePage creates a page under a page or database parent.
func (c *Client) CreatePage(ctx context.Context, params CreatePageParams) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/pages", params, nil)
}

// GetPage retrieves a page object by ID.
func (c *Client) GetPage(ctx context.Context, pageID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, nil)
}

// UpdatePage updates page properties or archives the page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, params UpdatePageParams) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, params, nil)
}

// GetBlock retrieves a block object by ID.
func (c *Client) GetBlock(ctx context.Context, blockID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/blocks/"+blockID, nil, nil)
}

// GetBlockChildren lists the child blocks of a block or page.
func (c *Client) GetBlockChildren(ctx context.Context, blockID string, startCursor string, pageSize int) (*ListResponse, error) {
	return c.doList(ctx, http.MethodGet, "/blocks/"+blockID+"/children", nil, pageQuery(startCursor, pageSize))
}

// AppendBlockChildren appends child blocks to a block or page.
func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children json.RawMessage) (json.RawMessage, error) {
	body := map[string]json.RawMessage{"children": children}
	return c.do(ctx, http.MethodPatch, "/blocks/"+blockID+"/children", body, nil)
}

// DeleteBlock moves a block to the trash. Notion models this as archival, so
// the archived block object is returned.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, "/blocks/"+blockID, nil, nil)
}

// ListUsers lists the users in the workspace.
func (c *Client) ListUsers(ctx context.Context, startCursor string, pageSize int) (*ListResponse, error) {
	return c.doList(ctx, http.MethodGet, "/users", nil, pageQuery(startCursor, pageSize))
}

// GetUser retrieves a user object by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/users/"+userID, nil, nil)
}
