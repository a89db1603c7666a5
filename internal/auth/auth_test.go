// ABOUTME: Tests for auth providers
// ABOUTME: Covers anonymous, static, and credentials-file token handling

package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestAnonymous(t *testing.T) {
	p := Anonymous()
	assert.False(t, p.IsAuthenticated())
	_, ok := p.UserID()
	assert.False(t, ok)
}

func TestStaticUser(t *testing.T) {
	p := StaticUser("user-1")
	assert.True(t, p.IsAuthenticated())
	id, ok := p.UserID()
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}

func TestStaticUser_EmptyIsAnonymous(t *testing.T) {
	assert.False(t, StaticUser("").IsAuthenticated())
}

func TestFileProvider_MissingFile(t *testing.T) {
	p := NewFileProvider(filepath.Join(t.TempDir(), "nope.toml"))
	assert.False(t, p.IsAuthenticated())
}

func TestFileProvider_TokenSubject(t *testing.T) {
	token := signedToken(t, "user-42", time.Hour)
	path := writeCredentials(t, "token = \""+token+"\"\n")

	p := NewFileProvider(path)
	id, ok := p.UserID()
	require.True(t, ok)
	assert.Equal(t, "user-42", id)
}

func TestFileProvider_ExplicitUserIDWins(t *testing.T) {
	token := signedToken(t, "user-42", time.Hour)
	path := writeCredentials(t, "token = \""+token+"\"\nuser_id = \"override\"\n")

	p := NewFileProvider(path)
	id, ok := p.UserID()
	require.True(t, ok)
	assert.Equal(t, "override", id)
}

func TestFileProvider_ExpiredToken(t *testing.T) {
	token := signedToken(t, "user-42", time.Hour)
	path := writeCredentials(t, "token = \""+token+"\"\n")

	p := NewFileProvider(path)
	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	assert.False(t, p.IsAuthenticated())
}

func TestFileProvider_GarbageToken(t *testing.T) {
	path := writeCredentials(t, "token = \"not-a-jwt\"\n")
	p := NewFileProvider(path)
	assert.False(t, p.IsAuthenticated())
}

func TestFileProvider_GarbageFile(t *testing.T) {
	path := writeCredentials(t, "= = = nonsense [ [")
	p := NewFileProvider(path)
	assert.False(t, p.IsAuthenticated())
}

func TestFileProvider_UserIDOnly(t *testing.T) {
	path := writeCredentials(t, "user_id = \"local-user\"\n")
	p := NewFileProvider(path)
	id, ok := p.UserID()
	require.True(t, ok)
	assert.Equal(t, "local-user", id)
}

func TestFileProvider_Token(t *testing.T) {
	token := signedToken(t, "user-42", time.Hour)
	path := writeCredentials(t, "token = \""+token+"\"\n")

	p := NewFileProvider(path)
	assert.Equal(t, token, p.Token())
}

func TestFileProvider_TokenEmptyWhenUnconfigured(t *testing.T) {
	path := writeCredentials(t, "user_id = \"local-user\"\n")
	p := NewFileProvider(path)
	assert.Empty(t, p.Token())
}
