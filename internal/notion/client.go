package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Default API settings.
const (
	// DefaultBaseURL is the public Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com/v1"

	// DefaultVersion is the Notion-Version header the response shapes in this
	// package were written against.
	DefaultVersion = "2022-06-28"

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first backoff delay; it doubles per retry.
	DefaultRetryBaseDelay = 1 * time.Second

	// maxRetryAfter caps the server-provided Retry-After delay.
	maxRetryAfter = 120 * time.Second

	// maxErrorBodyBytes limits how much of an error body is read for diagnostics.
	maxErrorBodyBytes = 64 * 1024
)

// Client is a minimal Notion API client.
//
// It is safe for concurrent use; all state is immutable after construction.
type Client struct {
	// http is the client with the auth transport installed.
	http *http.Client

	// baseURL is the API root without a trailing slash.
	baseURL string

	// maxRetries bounds retries of transient failures.
	maxRetries int

	// retryBaseDelay is the first backoff delay.
	retryBaseDelay time.Duration

	// logger for structured logging.
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientSettings)

// clientSettings collects options before the Client is assembled.
type clientSettings struct {
	baseURL        string
	version        string
	userAgent      string
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// WithBaseURL overrides the API root (used by tests and API gateways).
func WithBaseURL(baseURL string) ClientOption {
	return func(s *clientSettings) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithVersion overrides the Notion-Version header.
func WithVersion(version string) ClientOption {
	return func(s *clientSettings) {
		s.version = version
	}
}

// WithUserAgent sets the User-Agent header sent to the API.
func WithUserAgent(ua string) ClientOption {
	return func(s *clientSettings) {
		s.userAgent = ua
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
// Zero disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(s *clientSettings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryBaseDelay sets the first backoff delay.
func WithRetryBaseDelay(d time.Duration) ClientOption {
	return func(s *clientSettings) {
		s.retryBaseDelay = d
	}
}

// WithClientLogger sets a custom logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(s *clientSettings) {
		s.logger = logger
	}
}

// NewClient creates a Notion API client on top of base.
// base is not modified; its transport is wrapped in a copy.
func NewClient(base *http.Client, token string, opts ...ClientOption) *Client {
	s := clientSettings{
		baseURL:        DefaultBaseURL,
		version:        DefaultVersion,
		maxRetries:     DefaultMaxRetries,
		retryBaseDelay: DefaultRetryBaseDelay,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	if base == nil {
		base = &http.Client{}
	}
	authed := *base
	authed.Transport = &authTransport{
		base:    base.Transport,
		token:   token,
		version: s.version,
		agent:   s.userAgent,
	}

	return &Client{
		http:           &authed,
		baseURL:        s.baseURL,
		maxRetries:     s.maxRetries,
		retryBaseDelay: s.retryBaseDelay,
		logger:         s.logger,
	}
}

// Page is one page of a paginated collection.
type Page struct {
	// Items are the nodes in response order.
	Items []Node

	// NextCursor is empty when the collection is exhausted.
	NextCursor string
}

// ListPage requests a single page of coll starting at cursor.
// An empty cursor requests the first page.
func (c *Client) ListPage(ctx context.Context, coll Collection, pageSize int, cursor string) (*Page, error) {
	if coll.ID == "" {
		return nil, ErrEmptyID
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, ErrInvalidPageSize
	}

	var (
		method string
		path   string
		query  url.Values
		body   []byte
	)

	switch coll.Kind {
	case KindDatabaseRows:
		method = http.MethodPost
		path = "/databases/" + url.PathEscape(coll.ID) + "/query"
		payload := map[string]any{"page_size": pageSize}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query: %w", err)
		}
	default:
		method = http.MethodGet
		path = "/blocks/" + url.PathEscape(coll.ID) + "/children"
		query = url.Values{}
		query.Set("page_size", strconv.Itoa(pageSize))
		if cursor != "" {
			query.Set("start_cursor", cursor)
		}
	}

	var resp listResponse
	if err := c.do(ctx, method, path, query, body, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, &RemoteError{
			Op:      method + " " + path,
			Message: "response has no results member",
			Err:     ErrMalformedResponse,
		}
	}

	page := &Page{Items: *resp.Results}
	if resp.NextCursor != nil && *resp.NextCursor != "" {
		page.NextCursor = *resp.NextCursor
	}
	// The cursor decides; has_more is only checked for consistency.
	if (page.NextCursor != "") != resp.HasMore {
		c.logger.Debug("has_more disagrees with next_cursor",
			"op", method+" "+path,
			"has_more", resp.HasMore,
			"next_cursor", page.NextCursor,
		)
	}
	return page, nil
}

// PageProperty reads one property of a page by name or id.
func (c *Client) PageProperty(ctx context.Context, pageID, property string) (*Property, error) {
	if pageID == "" {
		return nil, ErrEmptyID
	}
	path := "/pages/" + url.PathEscape(pageID) + "/properties/" + url.PathEscape(property)

	var prop Property
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &prop); err != nil {
		return nil, err
	}
	return &prop, nil
}

// do performs a request with retries and decodes a JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	op := method + " " + path

	resp, err := c.doWithRetry(ctx, op, func() (*http.Request, error) {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		return http.NewRequestWithContext(ctx, method, target, r)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newRemoteError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    err.Error(),
			Err:        ErrMalformedResponse,
		}
	}
	return nil
}

// doWithRetry executes a request with exponential backoff on transient errors.
// newRequest is called per attempt so request bodies can be replayed.
// A returned response is owned by the caller.
func (c *Client) doWithRetry(ctx context.Context, op string, newRequest func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := newRequest()
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &TransportError{Op: op, Err: err}
			if !isRetryableError(err) || attempt == c.maxRetries {
				return nil, lastErr
			}
			if err := c.wait(ctx, op, attempt, nil); err != nil {
				return nil, err
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == c.maxRetries {
			return resp, nil
		}

		if err := c.wait(ctx, op, attempt, resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body.Close()
	}

	return nil, lastErr
}

// wait sleeps for the backoff of the given attempt, or the server-provided
// Retry-After when it is present and sane.
func (c *Client) wait(ctx context.Context, op string, attempt int, resp *http.Response) error {
	delay := c.retryBaseDelay * time.Duration(1<<attempt)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				delay = min(time.Duration(secs)*time.Second, maxRetryAfter)
			}
		}
	}

	c.logger.Debug("retrying request",
		"op", op,
		"attempt", attempt+1,
		"status", status,
		"delay", delay,
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newRemoteError reads a Notion error body into a RemoteError.
func newRemoteError(op string, resp *http.Response) *RemoteError {
	rerr := &RemoteError{Op: op, StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return rerr
	}

	var body apiError
	if json.Unmarshal(data, &body) == nil && body.Object == "error" {
		rerr.Code = body.Code
		rerr.Message = body.Message
		return rerr
	}
	rerr.Message = strings.TrimSpace(string(data))
	return rerr
}

// isRetryableStatus reports whether a status code is worth retrying.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isRetryableError reports whether a transport error is worth retrying.
// Only timeouts and connection-level failures are transient. An unsupported
// scheme or a bad certificate fails the same way on every attempt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Do executes an arbitrary request through the retry loop without the API
// credentials. It is used for file downloads, which are served from
// pre-signed storage URLs that reject foreign Authorization headers.
//
// The caller owns the returned response body.
func Do(ctx context.Context, client *http.Client, rawURL string, maxRetries int, baseDelay time.Duration, logger *slog.Logger) (*http.Response, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http:           client,
		maxRetries:     maxRetries,
		retryBaseDelay: baseDelay,
		logger:         logger,
	}
	return c.doWithRetry(ctx, http.MethodGet+" "+rawURL, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
}
