package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Backend is the remote side of sync. It is implemented by *Client and by
// fakes in tests.
type Backend interface {
	FetchRecord(ctx context.Context, userID string) (*SyncRecord, error)
	UpsertRecord(ctx context.Context, record SyncRecord) error
	ReplayMutation(ctx context.Context, userID string, m Mutation) error
	Ping(ctx context.Context) error
}

// Ensure Client implements Backend at compile time.
var _ Backend = (*Client)(nil)

// ErrNotFound is returned by FetchRecord when the user has no record yet.
var ErrNotFound = errors.New("sync record not found")

// Client talks to the sync backend over HTTP.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultBackendURL     = "127.0.0.1:7488"
	defaultUserAgent      = "reformer/0.1"
	defaultRequestTimeout = 15 * time.Second
)

// NewClient builds a Client for baseURL. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// FetchRecord retrieves userID's record. It returns ErrNotFound when the
// backend has none.
func (c *Client) FetchRecord(ctx context.Context, userID string) (*SyncRecord, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id required")
	}
	var payload SyncRecord
	if err := c.do(ctx, http.MethodGet, recordPath(userID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UpsertRecord inserts or replaces the record keyed by record.UserID.
func (c *Client) UpsertRecord(ctx context.Context, record SyncRecord) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("user id required")
	}
	return c.do(ctx, http.MethodPut, recordPath(record.UserID), record, nil)
}

// ReplayMutation sends one queued change for userID.
func (c *Client) ReplayMutation(ctx context.Context, userID string, m Mutation) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id required")
	}
	return c.do(ctx, http.MethodPost, recordPath(userID)+"/mutations", m, nil)
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func recordPath(userID string) string {
	return "/api/sync/" + url.PathEscape(userID)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	if escaped := strings.Contains(path, "%"); escaped {
		rel = &url.URL{Path: mustUnescape(path), RawPath: path}
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet && path != "/healthz" {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s %s returned status %d", method, path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mustUnescape(path string) string {
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	return unescaped
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBackendURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
