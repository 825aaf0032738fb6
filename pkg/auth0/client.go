package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ranlab/bizdir-backend/pkg/logger"
)

// Client talks to the Auth0 authentication and management APIs.
type Client struct {
	config     Config
	httpClient *http.Client

	mu          sync.Mutex
	adminToken  string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewClient creates a new Auth0 client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.timeout()},
		now:        time.Now,
	}, nil
}

// UserInfo resolves the caller's access token. authorization is forwarded
// verbatim as the Authorization header.
func (c *Client) UserInfo(ctx context.Context, authorization string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.baseURL()+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authorization)

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, ErrInvalidCredential
	case status != http.StatusOK:
		return nil, upstreamError(status, body)
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal userinfo response: %w", err)
	}
	if info.Sub == "" {
		return nil, ErrInvalidCredential
	}
	return &info, nil
}

// GetUser fetches a user by full Auth0 id, e.g. "auth0|abc".
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	body, err := c.doManagement(ctx, http.MethodGet, "/api/v2/users/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user response: %w", err)
	}
	return &user, nil
}

// ListUsers returns one page of users, page numbering starts at 0.
func (c *Client) ListUsers(ctx context.Context, page, perPage int) ([]User, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	body, err := c.doManagement(ctx, http.MethodGet, "/api/v2/users", query, nil)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal users response: %w", err)
	}
	return users, nil
}

// UpdateUser patches a user and returns the stored result.
func (c *Client) UpdateUser(ctx context.Context, userID string, update UserUpdate) (*User, error) {
	body, err := c.doManagement(ctx, http.MethodPatch, "/api/v2/users/"+url.PathEscape(userID), nil, update)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user response: %w", err)
	}
	return &user, nil
}

// doManagement calls the management API with the cached admin token. A 401
// refreshes the token and retries exactly once.
func (c *Client) doManagement(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		if reqBody, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := c.config.baseURL() + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.managementToken(ctx, attempt > 0)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		status, body, err := c.do(req)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusUnauthorized:
			logger.Warn("Management token rejected", logger.Fields{
				"path":    path,
				"attempt": attempt + 1,
			})
			continue
		case status == http.StatusNotFound:
			return nil, ErrUserNotFound
		case status < 200 || status >= 300:
			return nil, upstreamError(status, body)
		}
		return body, nil
	}
	return nil, ErrUnauthorized
}

// managementToken returns the cached admin token, fetching a new one when
// forced or when the cached one is about to expire.
func (c *Client) managementToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.adminToken != "" && c.now().Before(c.tokenExpiry) {
		return c.adminToken, nil
	}

	reqBody, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Audience:     c.config.audience(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.baseURL()+"/oauth/token", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if status != http.StatusOK {
		return "", upstreamError(status, body)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	c.adminToken = tok.AccessToken
	// renew a minute early
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)

	logger.Debug("Management token refreshed", logger.Fields{
		"expires_in": tok.ExpiresIn,
	})
	return c.adminToken, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func upstreamError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return fmt.Errorf("%w: unexpected status code %d", ErrUpstream, status)
	}
	return fmt.Errorf("%w: status %d: %s", ErrUpstream, status, errResp.Message)
}
