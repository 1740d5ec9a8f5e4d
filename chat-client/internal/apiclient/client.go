// Package apiclient talks to api-service over HTTP. It backs the session's
// message store, the identity resolver's store and the realtime credential
// source.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/weiawesome/campus-live/chat-client/internal/identity"
	"github.com/weiawesome/campus-live/chat-client/internal/realtime"
	"github.com/weiawesome/campus-live/chat-client/internal/session"
	"github.com/weiawesome/campus-live/pkg/response"
)

var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx answer from api-service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api-service returned status %d", e.Status)
	}
	return fmt.Sprintf("api-service returned status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Account is the logged-in account.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

type authResponse struct {
	User         Account `json:"user"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
}

type messageDTO struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// RegisterRequest creates an account. A blank DisplayName gets a generated one.
type RegisterRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// Client is an api-service client holding the login state.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	account *Account
}

// New creates a client for baseURL, e.g. http://localhost:8080.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Register creates an account and logs in as it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, false, &resp); err != nil {
		return nil, err
	}
	return c.remember(resp), nil
}

// Login authenticates and keeps the tokens for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Account, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, false, &resp); err != nil {
		return nil, err
	}
	return c.remember(resp), nil
}

func (c *Client) remember(resp authResponse) *Account {
	account := resp.User
	account.AccessToken = resp.AccessToken
	account.RefreshToken = resp.RefreshToken

	c.mu.Lock()
	c.account = &account
	c.mu.Unlock()

	cp := account
	return &cp
}

// Account returns the logged-in account, or nil.
func (c *Client) Account() *Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.account == nil {
		return nil
	}
	cp := *c.account
	return &cp
}

// ListRecentMessages implements session.MessageStore.
func (c *Client) ListRecentMessages(ctx context.Context, room string, limit int) ([]session.StoredMessage, error) {
	path := fmt.Sprintf("/api/v1/rooms/%s/messages?limit=%s", url.PathEscape(room), strconv.Itoa(limit))
	var resp struct {
		Messages []messageDTO `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}
	return lo.Map(resp.Messages, func(m messageDTO, _ int) session.StoredMessage {
		return session.StoredMessage(m)
	}), nil
}

// CreateMessage implements session.MessageStore. The author is the
// logged-in account; msg.AuthorID is informational.
func (c *Client) CreateMessage(ctx context.Context, room string, msg session.NewMessage) (*session.CreatedMessage, error) {
	body := map[string]string{"text": msg.Text, "author_name": msg.AuthorName}
	var resp struct {
		ID          string `json:"id"`
		CreatedAtMs int64  `json:"created_at_ms"`
	}
	path := fmt.Sprintf("/api/v1/rooms/%s/messages", url.PathEscape(room))
	if err := c.do(ctx, http.MethodPost, path, body, true, &resp); err != nil {
		return nil, err
	}
	return &session.CreatedMessage{ID: resp.ID, CreatedAtMs: resp.CreatedAtMs}, nil
}

// FindDisplayName implements identity.Store.
func (c *Client) FindDisplayName(ctx context.Context, accountID string) (string, error) {
	path := "/api/v1/users/display-name?account=" + url.QueryEscape(accountID)
	var resp struct {
		DisplayName string `json:"display_name"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, true, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return "", identity.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return resp.DisplayName, nil
}

// Credential implements realtime.CredentialSource by requesting a realtime
// token for the logged-in account.
func (c *Client) Credential(ctx context.Context) (*realtime.Credential, error) {
	var resp struct {
		Token     string `json:"token"`
		ClientID  string `json:"client_id"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/realtime/token", nil, true, &resp); err != nil {
		return nil, fmt.Errorf("failed to get realtime token: %w", err)
	}
	return &realtime.Credential{
		Token:     resp.Token,
		ClientID:  resp.ClientID,
		ExpiresAt: time.Unix(resp.ExpiresAt, 0),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, auth bool, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		account := c.Account()
		if account == nil {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call api-service: %w", err)
	}
	defer resp.Body.Close()

	var envelope response.RawResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
