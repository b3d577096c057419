package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorsporthub/config"
)

var timeZero time.Time

func newTestAuthClient(t *testing.T, h http.HandlerFunc) (*AuthClient, *Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := NewMetrics(NewRegistry())
	c := NewAuthClient(&config.GatewayConfig{
		URL:     srv.URL,
		AnonKey: "anon-key",
		Timeout: 2 * time.Second,
	}, zerolog.Nop(), m)
	return c, m
}

func TestSendOneTimeLink(t *testing.T) {
	var got map[string]any
	c, m := newTestAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/otp", r.URL.Path)
		assert.Equal(t, "http://localhost:8000/auth/confirm", r.URL.Query().Get("redirect_to"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	err := c.SendOneTimeLink(context.Background(), "op@example.com", "http://localhost:8000/auth/confirm")
	require.NoError(t, err)
	assert.Equal(t, "op@example.com", got["email"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("auth", "otp", "ok")))
}

func TestSendOneTimeLinkError(t *testing.T) {
	c, m := newTestAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"error_code":"validation_failed","msg":"Unable to validate email address: invalid format"}`))
	})

	err := c.SendOneTimeLink(context.Background(), "nope", "")
	require.Error(t, err)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusUnprocessableEntity, gwErr.Status)
	assert.Equal(t, "Unable to validate email address: invalid format", gwErr.Error())
	assert.True(t, IsGatewayError(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("auth", "otp", "error")))
}

func TestVerifyOTP(t *testing.T) {
	c, _ := newTestAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/verify", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hash-123", body["token_hash"])
		assert.Equal(t, "email", body["type"])
		_, _ = w.Write([]byte(`{
			"access_token": "at",
			"token_type": "bearer",
			"expires_in": 3600,
			"expires_at": 1767225600,
			"refresh_token": "rt",
			"user": {"id": "u-1", "email": "op@example.com"}
		}`))
	})

	s, err := c.VerifyOTP(context.Background(), "hash-123", "email")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, time.Unix(1767225600, 0), s.ExpiresAt)
	assert.Equal(t, "op@example.com", s.User.Email)
	assert.Equal(t, "u-1", s.User.ID)
}

func TestRefreshUsesExpiresIn(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c, _ := newTestAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"at2","expires_in":60,"refresh_token":"rt2","user":{"id":"u-1","email":"op@example.com"}}`))
	})
	c.now = func() time.Time { return now }

	s, err := c.Refresh(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), s.ExpiresAt)
	assert.Equal(t, "rt2", s.RefreshToken)
}

func TestSignOutSendsBearer(t *testing.T) {
	c, _ := newTestAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.SignOut(context.Background(), "at"))
}

func TestVerifyOTPWithoutToken(t *testing.T) {
	c, _ := newTestAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.VerifyOTP(context.Background(), "hash", "email")
	require.Error(t, err)
	assert.True(t, IsGatewayError(err))
}
