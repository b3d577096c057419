package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"motorsporthub/gateway"
	"motorsporthub/models"
)

type fakeGateway struct {
	mu        sync.Mutex
	verify    func(tokenHash, kind string) (*models.Session, error)
	refresh   func(refreshToken string) (*models.Session, error)
	signOuts  []string
	signOutFn func(accessToken string) error
}

func (g *fakeGateway) VerifyOTP(_ context.Context, tokenHash, kind string) (*models.Session, error) {
	if g.verify == nil {
		return nil, errors.New("not configured")
	}
	return g.verify(tokenHash, kind)
}

func (g *fakeGateway) Refresh(_ context.Context, refreshToken string) (*models.Session, error) {
	if g.refresh == nil {
		return nil, &gateway.Error{Op: "refresh", Status: 400, Message: "Invalid Refresh Token"}
	}
	return g.refresh(refreshToken)
}

func (g *fakeGateway) SignOut(_ context.Context, accessToken string) error {
	g.mu.Lock()
	g.signOuts = append(g.signOuts, accessToken)
	g.mu.Unlock()
	if g.signOutFn != nil {
		return g.signOutFn(accessToken)
	}
	return nil
}

type tokenResult struct {
	identity models.Identity
	err      error
}

// fakeVerifier accepts the tokens it knows about.
type fakeVerifier map[string]tokenResult

func (v fakeVerifier) Verify(token string) (models.Identity, time.Time, error) {
	r, ok := v[token]
	if !ok {
		return models.Identity{}, time.Time{}, errors.New("token is malformed")
	}
	return r.identity, time.Time{}, r.err
}

type memStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	loadErr  error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]models.Session)}
}

func (m *memStore) Load(_ context.Context, key string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	s, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) Save(_ context.Context, key string, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = *s
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[key]
	return ok
}

// blockingSource is a Source whose GetSession waits for release.
type blockingSource struct {
	broker  *Broker
	release chan struct{}
	session *models.Session
	err     error
}

func newBlockingSource() *blockingSource {
	return &blockingSource{broker: NewBroker(), release: make(chan struct{})}
}

func (s *blockingSource) GetSession(ctx context.Context, _ string) (*models.Session, error) {
	select {
	case <-s.release:
		return s.session, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *blockingSource) OnSessionChange(key string, fn func(Event)) *Subscription {
	return s.broker.Subscribe(key, fn)
}

type fakeSender struct {
	mu      sync.Mutex
	calls   []string
	err     error
	block   chan struct{}
	started chan struct{}
}

func (s *fakeSender) SendOneTimeLink(_ context.Context, email, _ string) error {
	s.mu.Lock()
	s.calls = append(s.calls, email)
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		<-s.block
	}
	return s.err
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func operatorSession(token string) *models.Session {
	return &models.Session{
		AccessToken:  token,
		RefreshToken: "refresh-" + token,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         models.Identity{ID: "u-1", Email: "reesmonty6@gmail.com"},
	}
}
