package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
)

type memStore struct {
	state   *State
	saves   int
	clears  int
	loadErr error
}

func (m *memStore) SaveSession(_ context.Context, s State) error {
	m.saves++
	m.state = &s
	return nil
}

func (m *memStore) LoadSession(context.Context) (State, error) {
	if m.loadErr != nil {
		return State{}, m.loadErr
	}
	if m.state == nil {
		return State{}, ErrNoSession
	}
	return *m.state, nil
}

func (m *memStore) ClearSession(context.Context) error {
	m.clears++
	m.state = nil
	return nil
}

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestLoginReadsClaimsAndPersists(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := New(store)

	token := makeToken(t, map[string]any{"person_id": 4, "username": "anna", "email": "a@example.com", "role": "ROLE_USER"})
	require.NoError(t, s.Login(ctx, token, core.User{}))

	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, token, s.Token())
	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, core.User{PersonID: 4, Username: "anna", Email: "a@example.com", Role: "ROLE_USER"}, u)
	require.NotNil(t, store.state)
	assert.Equal(t, token, store.state.Token)
}

func TestLoginRejectsEmptyAndMalformedTokens(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.Login(context.Background(), "", core.User{}), ErrEmptyToken)
	assert.ErrorIs(t, s.Login(context.Background(), "not-a-jwt", core.User{}), ErrMalformedToken)
	assert.False(t, s.IsAuthenticated())
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := New(store)
	require.NoError(t, s.Login(ctx, "a.b.c", core.User{Username: "anna"}))

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	assert.Nil(t, store.state)
	assert.Equal(t, 1, store.clears)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := New(store)
	assert.ErrorIs(t, s.UpdateUser(ctx, core.User{Username: "x"}), ErrNoSession)

	require.NoError(t, s.Login(ctx, "a.b.c", core.User{Username: "anna"}))
	require.NoError(t, s.UpdateUser(ctx, core.User{Username: "anna2"}))
	u, _ := s.User()
	assert.Equal(t, "anna2", u.Username)
	assert.Equal(t, "anna2", store.state.User.Username)
	assert.Equal(t, "a.b.c", store.state.Token)
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nothing stored", func(t *testing.T) {
		s := New(&memStore{})
		require.NoError(t, s.Hydrate(ctx))
		assert.False(t, s.IsAuthenticated())
	})

	t.Run("valid token", func(t *testing.T) {
		token := makeToken(t, map[string]any{"username": "anna", "exp": now.Add(time.Hour).Unix()})
		store := &memStore{state: &State{Token: token, User: core.User{Username: "anna"}}}
		s := New(store)
		s.now = func() time.Time { return now }

		require.NoError(t, s.Hydrate(ctx))
		assert.True(t, s.IsAuthenticated())
		assert.Equal(t, token, s.Token())
	})

	t.Run("expired token is cleared", func(t *testing.T) {
		token := makeToken(t, map[string]any{"username": "anna", "exp": now.Add(-time.Minute).Unix()})
		store := &memStore{state: &State{Token: token}}
		s := New(store)
		s.now = func() time.Time { return now }

		assert.ErrorIs(t, s.Hydrate(ctx), ErrTokenExpired)
		assert.False(t, s.IsAuthenticated())
		assert.Nil(t, store.state)
	})

	t.Run("load failure", func(t *testing.T) {
		boom := errors.New("disk gone")
		s := New(&memStore{loadErr: boom})
		assert.ErrorIs(t, s.Hydrate(ctx), boom)
	})
}

func TestExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"no exp", makeToken(t, map[string]any{"username": "a"}), false},
		{"future", makeToken(t, map[string]any{"exp": now.Unix() + 1}), false},
		{"exactly now", makeToken(t, map[string]any{"exp": now.Unix()}), true},
		{"past", makeToken(t, map[string]any{"exp": now.Unix() - 1}), true},
		{"unknown alg", "eyJhbGciOiJYWVoifQ." + base64.RawURLEncoding.EncodeToString([]byte(`{"username":"a"}`)) + ".sig", false},
		{"bad header", "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"username":"a"}`)) + ".c", true},
		{"two parts", "a.b", true},
		{"bad base64", "a.!!!.c", true},
		{"not json", "a." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".c", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Expired(tc.token, now); got != tc.want {
				t.Fatalf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token := makeToken(t, map[string]any{
		"person_id": 9,
		"username":  "anna",
		"email":     "a@example.com",
		"role":      "ROLE_USER",
		"provider":  "google",
		"sub":       "anna",
		"exp":       exp.Unix(),
	})

	c, err := DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, core.User{PersonID: 9, Username: "anna", Email: "a@example.com", Role: "ROLE_USER", Provider: "google"}, c.User)
	assert.True(t, exp.Equal(c.ExpiresAt), "ExpiresAt = %v", c.ExpiresAt)

	_, err = DecodeClaims("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)
}
