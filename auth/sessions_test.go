package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorsporthub/gateway"
	"motorsporthub/models"
)

func newTestSessions(gw *fakeGateway, v fakeVerifier, store *memStore) *Sessions {
	return NewSessions(gw, v, store, zerolog.Nop())
}

func TestSignInPersistsAndPublishes(t *testing.T) {
	gw := &fakeGateway{verify: func(tokenHash, kind string) (*models.Session, error) {
		assert.Equal(t, "hash", tokenHash)
		assert.Equal(t, "magiclink", kind)
		return operatorSession("at-1"), nil
	}}
	store := newMemStore()
	s := newTestSessions(gw, fakeVerifier{}, store)

	var events []Event
	sub := s.OnSessionChange("k", func(ev Event) { events = append(events, ev) })
	defer sub.Close()

	sess, err := s.SignIn(context.Background(), "k", "hash", "magiclink")
	require.NoError(t, err)
	assert.Equal(t, "at-1", sess.AccessToken)
	assert.True(t, store.has("k"))

	require.Len(t, events, 1)
	assert.Equal(t, EventSignedIn, events[0].Kind)
	assert.Equal(t, "at-1", events[0].Session.AccessToken)
}

func TestSignInFailureStoresNothing(t *testing.T) {
	gw := &fakeGateway{verify: func(string, string) (*models.Session, error) {
		return nil, &gateway.Error{Op: "verify", Status: 403, Message: "Email link is invalid or has expired"}
	}}
	store := newMemStore()
	s := newTestSessions(gw, fakeVerifier{}, store)

	_, err := s.SignIn(context.Background(), "k", "hash", "email")
	require.Error(t, err)
	assert.True(t, gateway.IsGatewayError(err))
	assert.False(t, store.has("k"))
}

func TestGetSessionNone(t *testing.T) {
	s := newTestSessions(&fakeGateway{}, fakeVerifier{}, newMemStore())

	sess, err := s.GetSession(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetSessionValid(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), "k", operatorSession("at-1")))
	v := fakeVerifier{"at-1": {identity: models.Identity{ID: "u-9", Email: "reesmonty6@gmail.com"}}}
	s := newTestSessions(&fakeGateway{}, v, store)

	sess, err := s.GetSession(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u-9", sess.User.ID)
	assert.Equal(t, "reesmonty6@gmail.com", sess.User.Email)
}

func TestGetSessionRefreshesExpiredToken(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), "k", operatorSession("old")))
	v := fakeVerifier{"old": {err: gateway.ErrTokenExpired}}
	gw := &fakeGateway{refresh: func(refreshToken string) (*models.Session, error) {
		assert.Equal(t, "refresh-old", refreshToken)
		return operatorSession("new"), nil
	}}
	s := newTestSessions(gw, v, store)

	var kinds []EventKind
	s.OnSessionChange("k", func(ev Event) { kinds = append(kinds, ev.Kind) })

	sess, err := s.GetSession(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "new", sess.AccessToken)
	assert.Equal(t, []EventKind{EventTokenRefreshed}, kinds)

	stored, err := store.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AccessToken)
}

func TestGetSessionFailedRefreshSignsOut(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), "k", operatorSession("old")))
	v := fakeVerifier{"old": {err: gateway.ErrTokenExpired}}
	s := newTestSessions(&fakeGateway{}, v, store)

	var kinds []EventKind
	s.OnSessionChange("k", func(ev Event) { kinds = append(kinds, ev.Kind) })

	sess, err := s.GetSession(context.Background(), "k")
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.False(t, store.has("k"))
	assert.Equal(t, []EventKind{EventSignedOut}, kinds)
}

func TestGetSessionInvalidTokenIsForgotten(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), "k", operatorSession("forged")))
	s := newTestSessions(&fakeGateway{}, fakeVerifier{}, store)

	sess, err := s.GetSession(context.Background(), "k")
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.False(t, store.has("k"))
}

func TestGetSessionStoreError(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("disk I/O error")
	s := newTestSessions(&fakeGateway{}, fakeVerifier{}, store)

	_, err := s.GetSession(context.Background(), "k")
	assert.EqualError(t, err, "disk I/O error")
}

func TestRefreshWithoutSession(t *testing.T) {
	s := newTestSessions(&fakeGateway{}, fakeVerifier{}, newMemStore())

	sess, err := s.Refresh(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSignOut(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save(context.Background(), "k", operatorSession("at-1")))
	gw := &fakeGateway{signOutFn: func(string) error { return errors.New("network down") }}
	s := newTestSessions(gw, fakeVerifier{}, store)

	var events []Event
	s.OnSessionChange("k", func(ev Event) { events = append(events, ev) })

	require.NoError(t, s.SignOut(context.Background(), "k"))
	assert.Equal(t, []string{"at-1"}, gw.signOuts)
	assert.False(t, store.has("k"))
	require.Len(t, events, 1)
	assert.Equal(t, EventSignedOut, events[0].Kind)
	assert.Nil(t, events[0].Session)
}

func TestSignInThenHolderSeesSession(t *testing.T) {
	gw := &fakeGateway{verify: func(string, string) (*models.Session, error) {
		return operatorSession("at-1"), nil
	}}
	s := newTestSessions(gw, fakeVerifier{"at-1": {identity: models.Identity{Email: "reesmonty6@gmail.com"}}}, newMemStore())
	r := NewRegistry(s, time.Minute, zerolog.Nop())
	defer r.Close()

	h := r.Acquire("k")
	waitReady(t, h)
	assert.Nil(t, h.Current())

	_, err := s.SignIn(context.Background(), "k", "hash", "email")
	require.NoError(t, err)
	require.NotNil(t, h.Current())
	assert.Equal(t, "at-1", h.Current().AccessToken)

	require.NoError(t, s.SignOut(context.Background(), "k"))
	assert.Nil(t, h.Current())
}
