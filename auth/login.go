package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rif/cache2go"
	"github.com/rs/zerolog"
)

const (
	MessageLinkSent   = "Check your email for the login link!"
	MessageLinkFailed = "Error sending login link. Please try again."
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrLoginPending  = errors.New("a login link request is already in progress")
)

// LinkSender asks the gateway to email a one-time sign-in link.
type LinkSender interface {
	SendOneTimeLink(ctx context.Context, email, redirectTo string) error
}

// LoginState is what the login form shows for one browser.
type LoginState struct {
	Loading bool
	Message string
	Failed  bool
}

// LoginFlow requests one-time login links and remembers the outcome per browser.
type LoginFlow struct {
	sender     LinkSender
	redirectTo string
	logger     zerolog.Logger

	mu     sync.Mutex
	states *cache2go.Cache
}

func NewLoginFlow(sender LinkSender, redirectTo string, logger zerolog.Logger) *LoginFlow {
	return &LoginFlow{
		sender:     sender,
		redirectTo: redirectTo,
		logger:     logger,
		states:     cache2go.New(1000, 60*time.Minute),
	}
}

// State returns the login form state of the browser key.
func (f *LoginFlow) State(key string) LoginState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(key)
}

// Take returns the state of key and forgets its message, so an outcome is
// shown once. A request in flight is kept.
func (f *LoginFlow) Take(key string) LoginState {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.get(key)
	if !st.Loading {
		f.states.Delete(key)
	}
	return st
}

// SetMessage records a message for key without a request, e.g. after a failed link exchange.
func (f *LoginFlow) SetMessage(key, message string, failed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states.Set(key, LoginState{Message: message, Failed: failed})
}

// RequestLoginLink sends a one-time link to email on behalf of the browser key.
// The gateway's error detail is logged but never put into the state.
func (f *LoginFlow) RequestLoginLink(ctx context.Context, key, email string) (LoginState, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return f.State(key), ErrEmailRequired
	}

	f.mu.Lock()
	if f.get(key).Loading {
		st := f.get(key)
		f.mu.Unlock()
		return st, ErrLoginPending
	}
	f.states.Set(key, LoginState{Loading: true})
	f.mu.Unlock()

	st := LoginState{Message: MessageLinkSent}
	if err := f.sender.SendOneTimeLink(ctx, email, f.redirectTo); err != nil {
		f.logger.Error().Err(err).Msg("failed to send login link")
		st = LoginState{Message: MessageLinkFailed, Failed: true}
	} else {
		f.logger.Info().Msg("login link sent")
	}

	f.mu.Lock()
	f.states.Set(key, st)
	f.mu.Unlock()
	return st, nil
}

func (f *LoginFlow) get(key string) LoginState {
	if v, ok := f.states.Get(key); ok {
		if st, ok := v.(LoginState); ok {
			return st
		}
	}
	return LoginState{}
}
