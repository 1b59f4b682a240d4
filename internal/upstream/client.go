package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"o2d-dashboard/internal/models"

	"go.uber.org/zap"
)

// ErrMalformedResponse 上游返回缺少 success 标志或 data 对象
var ErrMalformedResponse = errors.New("malformed upstream response")

// envelope 上游统一响应格式 { success, data, error }
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client 上游 API 客户端（auth 与 dashboard 两个基地址）
type Client struct {
	apiBaseURL  string
	authBaseURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(apiBaseURL, authBaseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		apiBaseURL:  apiBaseURL,
		authBaseURL: authBaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// LoginResult 登录成功后上游返回的 user + token
type LoginResult struct {
	User  models.Identity `json:"user"`
	Token string          `json:"token"`
}

// Login calls the upstream auth endpoint. The transport details stay here;
// callers only consume the identity, raw access field and token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})

	data, err := c.postJSON(ctx, c.authBaseURL+"/auth/login", body)
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.User.Username == "" || result.Token == "" {
		return nil, ErrMalformedResponse
	}
	return &result, nil
}

// Logout notifies the upstream. Best-effort: the caller clears the session
// regardless of the outcome.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBaseURL+"/auth/logout", nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

// dashboardPayload 上游 /dashboard/summary 的 data 部分
type dashboardPayload struct {
	Summary models.DashboardSummary `json:"summary"`
	Filters models.FilterVocabulary `json:"filters"`
	Rows    []models.RawDispatchRow `json:"rows"`
}

// FetchDashboard implements dashboard.Fetcher over the upstream HTTP API.
// The payload must carry a truthy success flag and a data object; anything
// else is treated as a failed fetch.
func (c *Client) FetchDashboard(ctx context.Context) (*models.DashboardSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/dashboard/summary", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dashboard fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashboard fetch failed: HTTP %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !env.Success || len(env.Data) == 0 {
		return nil, ErrMalformedResponse
	}

	var payload dashboardPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.logger.Debug("Fetched dashboard snapshot from upstream",
		zap.Int("rows", len(payload.Rows)),
	)

	return &models.DashboardSnapshot{
		Summary:   payload.Summary,
		Filters:   payload.Filters,
		Rows:      models.NormalizeRows(payload.Rows),
		FetchedAt: time.Now(),
	}, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !env.Success || len(env.Data) == 0 {
		if env.Error != "" {
			return nil, fmt.Errorf("upstream error: %s", env.Error)
		}
		return nil, ErrMalformedResponse
	}
	return env.Data, nil
}
