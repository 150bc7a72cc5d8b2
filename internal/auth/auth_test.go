package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	return &Config{
		Credentials: Credentials{Usernames: map[string]User{
			"jsmith": {Email: "jsmith@example.com", Name: "John Smith", Password: hash},
		}},
		Cookie: CookieConfig{Name: "budget_session", Key: "signing-key", ExpiryDays: 30},
	}
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(testConfig(t))
	require.NoError(t, err)
	return a
}

func TestParseConfig(t *testing.T) {
	hash, err := HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	data := []byte(`
credentials:
  usernames:
    jsmith:
      email: jsmith@example.com
      name: John Smith
      password: "` + hash + `"
cookie:
  name: budget_session
  key: some-signing-key
  expiry_days: 30
preauthorized:
  emails:
    - melsby@example.com
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	require.Equal(t, "John Smith", cfg.Credentials.Usernames["jsmith"].Name)
	require.Equal(t, 30*24*time.Hour, cfg.Cookie.Expiry())
	require.Equal(t, []string{"melsby@example.com"}, cfg.Preauthorized.Emails)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no users", "cookie: {name: c, key: k, expiry_days: 1}", "at least one user is required"},
		{"plain password", "credentials: {usernames: {a: {password: plain}}}\ncookie: {name: c, key: k, expiry_days: 1}", "not a bcrypt hash"},
		{"missing cookie key", "cookie: {name: c, expiry_days: 1}", "cookie key is required"},
		{"zero expiry", "cookie: {name: c, key: k}", "expiry_days must be positive"},
		{"bad yaml", "credentials: [", "parse auth config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "auth.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("", bcrypt.MinCost)
	require.Error(t, err)

	hash, err := HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestLoginAndVerify(t *testing.T) {
	a := newTestAuthenticator(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	s, token, err := a.Login("jsmith", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "jsmith", s.Username)
	require.Equal(t, "John Smith", s.Name)
	require.NotEmpty(t, s.ID)
	require.Equal(t, fixed.Add(30*24*time.Hour), s.ExpiresAt)

	got, err := a.Verify(token)
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, s.Username, got.Username)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
}

func TestLogin_Rejected(t *testing.T) {
	a := newTestAuthenticator(t)

	_, _, err := a.Login("jsmith", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Login("nobody", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerify_Rejected(t *testing.T) {
	a := newTestAuthenticator(t)
	_, token, err := a.Login("jsmith", "s3cret")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := a.Verify("not-a-token")
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		later := time.Now().Add(31 * 24 * time.Hour)
		a.now = func() time.Time { return later }
		defer func() { a.now = time.Now }()
		_, err := a.Verify(token)
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("other key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Cookie.Key = "different"
		other, err := NewAuthenticator(cfg)
		require.NoError(t, err)
		_, err = other.Verify(token)
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("removed user", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "ghost",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := tok.SignedString([]byte("signing-key"))
		require.NoError(t, err)
		_, err = a.Verify(signed)
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "jsmith",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = a.Verify(signed)
		require.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	s, token, err := a.Login("jsmith", "s3cret")
	require.NoError(t, err)

	var seen Session
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) { r.AddCookie(a.SessionCookie(token, s, false)) }, http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusNoContent},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Session{}
			req := httptest.NewRequest(http.MethodGet, "/api/periods", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.Equal(t, "jsmith", seen.Username)
			} else {
				require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestClearCookie(t *testing.T) {
	a := newTestAuthenticator(t)
	c := a.ClearCookie(true)
	require.Equal(t, "budget_session", c.Name)
	require.Equal(t, -1, c.MaxAge)
	require.True(t, c.Secure)
}
