package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"motorsporthub/gateway"
	"motorsporthub/models"
)

// AuthGateway is the part of the gateway's auth API that creates and ends sessions.
type AuthGateway interface {
	VerifyOTP(ctx context.Context, tokenHash, kind string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Verifier checks an access token locally.
type Verifier interface {
	Verify(token string) (models.Identity, time.Time, error)
}

// Sessions keeps the session of every browser: it persists them, refreshes
// them through the gateway and announces every change on its broker.
type Sessions struct {
	gateway  AuthGateway
	verifier Verifier
	store    SessionStore
	broker   *Broker
	logger   zerolog.Logger
}

func NewSessions(gw AuthGateway, verifier Verifier, store SessionStore, logger zerolog.Logger) *Sessions {
	return &Sessions{
		gateway:  gw,
		verifier: verifier,
		store:    store,
		broker:   NewBroker(),
		logger:   logger,
	}
}

// OnSessionChange subscribes fn to session changes of the browser key.
func (s *Sessions) OnSessionChange(key string, fn func(Event)) *Subscription {
	return s.broker.Subscribe(key, fn)
}

// GetSession returns the persisted session of key, or nil when there is none.
// An expired access token is refreshed first.
func (s *Sessions) GetSession(ctx context.Context, key string) (*models.Session, error) {
	sess, err := s.store.Load(ctx, key)
	if err != nil || sess == nil {
		return nil, err
	}

	identity, _, err := s.verifier.Verify(sess.AccessToken)
	switch {
	case err == nil:
		sess.User.Email = identity.Email
		if identity.ID != "" {
			sess.User.ID = identity.ID
		}
		return sess, nil
	case errors.Is(err, gateway.ErrTokenExpired):
		return s.refresh(ctx, key, sess)
	default:
		s.forget(ctx, key)
		return nil, err
	}
}

// SignIn exchanges a one-time link for a session of key.
func (s *Sessions) SignIn(ctx context.Context, key, tokenHash, kind string) (*models.Session, error) {
	sess, err := s.gateway.VerifyOTP(ctx, tokenHash, kind)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, key, sess); err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", sess.User.Email).Msg("signed in")
	s.broker.Publish(Event{Kind: EventSignedIn, Key: key, Session: sess})
	return sess, nil
}

// Refresh renews the session of key. A failed renewal signs the browser out.
func (s *Sessions) Refresh(ctx context.Context, key string) (*models.Session, error) {
	sess, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	return s.refresh(ctx, key, sess)
}

func (s *Sessions) refresh(ctx context.Context, key string, old *models.Session) (*models.Session, error) {
	sess, err := s.gateway.Refresh(ctx, old.RefreshToken)
	if err != nil {
		s.forget(ctx, key)
		s.broker.Publish(Event{Kind: EventSignedOut, Key: key})
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	if err := s.store.Save(ctx, key, sess); err != nil {
		return nil, err
	}

	s.broker.Publish(Event{Kind: EventTokenRefreshed, Key: key, Session: sess})
	return sess, nil
}

// SignOut ends the session of key. The gateway call is best-effort; the local
// session is always dropped.
func (s *Sessions) SignOut(ctx context.Context, key string) error {
	sess, err := s.store.Load(ctx, key)
	if err != nil {
		return err
	}
	if sess != nil {
		if err := s.gateway.SignOut(ctx, sess.AccessToken); err != nil {
			s.logger.Warn().Err(err).Msg("gateway sign out failed")
		}
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}

	s.broker.Publish(Event{Kind: EventSignedOut, Key: key})
	return nil
}

func (s *Sessions) forget(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to drop persisted session")
	}
}
