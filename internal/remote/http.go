// ABOUTME: HTTP implementation of the remote store Client interface
// ABOUTME: JSON request/response over a base URL with a bounded timeout

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every remote call. Expiry surfaces as an ordinary
// transient failure; there is no separate cancellation token.
const DefaultTimeout = 10 * time.Second

// HTTPClient implements Client against a JSON HTTP API.
type HTTPClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// BaseURL is the remote store root, e.g. https://api.example.com
	BaseURL string

	// AuthToken, when set, is sent as a bearer token on every request.
	AuthToken string

	// Timeout bounds each request. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// NewHTTPClient creates a remote store client.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		authToken:  opts.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "remote"),
	}
}

// CreateConversation creates a remote conversation and returns it with the
// server-assigned identifier.
func (c *HTTPClient) CreateConversation(ctx context.Context, conv *Conversation) (*Conversation, error) {
	var created Conversation
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", nil, conv, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetConversationsByUser lists a page of the user's conversations.
func (c *HTTPClient) GetConversationsByUser(ctx context.Context, userID string, pageSize int, token string) (*ConversationPage, error) {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("limit", strconv.Itoa(pageSize))
	}
	if token != "" {
		q.Set("token", token)
	}

	var page ConversationPage
	path := "/v1/users/" + url.PathEscape(userID) + "/conversations"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateConversation applies a partial update to a conversation.
func (c *HTTPClient) UpdateConversation(ctx context.Context, id, userID string, patch *ConversationPatch) error {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	path := "/v1/conversations/" + url.PathEscape(id)
	return c.do(ctx, http.MethodPatch, path, q, patch, nil)
}

// CreateMessage appends a message to its conversation. The write is an
// idempotent upsert keyed by the message identifier.
func (c *HTTPClient) CreateMessage(ctx context.Context, msg *Message) (*Message, error) {
	var created Message
	path := "/v1/conversations/" + url.PathEscape(msg.ConversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, nil, msg, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetMessagesByConversation lists a page of a conversation's messages.
func (c *HTTPClient) GetMessagesByConversation(ctx context.Context, conversationID string, pageSize int, token string) (*MessagePage, error) {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("limit", strconv.Itoa(pageSize))
	}
	if token != "" {
		q.Set("token", token)
	}

	var page MessagePage
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateAnalyticsRecord appends a telemetry record.
func (c *HTTPClient) CreateAnalyticsRecord(ctx context.Context, rec *AnalyticsRecord) error {
	return c.do(ctx, http.MethodPost, "/v1/analytics", nil, rec, nil)
}

// HealthCheck reports remote store health.
func (c *HTTPClient) HealthCheck(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/v1/health", nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// do performs one JSON request and classifies the outcome.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500:
		return &TransientError{Op: op, Status: resp.StatusCode}
	default:
		return fmt.Errorf("remote: %s: unexpected status %d", op, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
