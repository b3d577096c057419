package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"motorsporthub/config"
	"motorsporthub/models"
)

// AuthClient talks to the platform's GoTrue-compatible auth API.
type AuthClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *Metrics
	now        func() time.Time
}

func NewAuthClient(cfg *config.GatewayConfig, logger zerolog.Logger, m *Metrics) *AuthClient {
	client := &AuthClient{
		baseURL: cfg.URL + "/auth/v1",
		apiKey:  cfg.AnonKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}

	logger.Info().
		Str("base_url", client.baseURL).
		Msg("Auth client initialized")

	return client
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SendOneTimeLink asks the platform to email a one-time sign-in link to email.
func (c *AuthClient) SendOneTimeLink(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	body := map[string]any{
		"email":       email,
		"create_user": true,
	}
	return c.do(ctx, "otp", http.MethodPost, "/otp", query, "", body, nil)
}

// VerifyOTP exchanges the token hash from a one-time link for a session.
func (c *AuthClient) VerifyOTP(ctx context.Context, tokenHash, kind string) (*models.Session, error) {
	var resp sessionResponse
	body := map[string]string{
		"type":       kind,
		"token_hash": tokenHash,
	}
	if err := c.do(ctx, "verify", http.MethodPost, "/verify", nil, "", body, &resp); err != nil {
		return nil, err
	}
	return c.session(resp)
}

// Refresh trades a refresh token for a new session.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	var resp sessionResponse
	query := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, "refresh", http.MethodPost, "/token", query, "", body, &resp); err != nil {
		return nil, err
	}
	return c.session(resp)
}

// SignOut revokes the session behind accessToken.
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, "logout", http.MethodPost, "/logout", nil, accessToken, nil, nil)
}

func (c *AuthClient) session(resp sessionResponse) (*models.Session, error) {
	if resp.AccessToken == "" {
		return nil, &Error{Op: "session", Message: "gateway returned no access token"}
	}
	expiresAt := time.Unix(resp.ExpiresAt, 0)
	if resp.ExpiresAt == 0 {
		expiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return &models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresAt,
		User: models.Identity{
			ID:    resp.User.ID,
			Email: resp.User.Email,
		},
	}, nil
}

func (c *AuthClient) do(ctx context.Context, op, method, path string, query url.Values, bearer string, in, out any) (err error) {
	defer c.metrics.observe("auth", op, time.Now(), &err)

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Msg("Auth request failed")
		return &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := e.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("op", op).
			Str("message", msg).
			Msg("Unexpected status code from auth API")
		return &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: "invalid response from gateway", Err: err}
	}
	return nil
}
