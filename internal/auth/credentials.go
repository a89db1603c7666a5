// ABOUTME: Credentials-file Provider backed by a TOML file with a JWT
// ABOUTME: Expired or unparseable tokens degrade to not-authenticated

package auth

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the on-disk credentials file layout.
type Credentials struct {
	// Token is a JWT issued by the auth service. The user id is taken from
	// its "sub" claim.
	Token string `toml:"token"`

	// UserID overrides the token subject when set. Useful for deployments
	// without a token-issuing service.
	UserID string `toml:"user_id"`
}

// FileProvider reads credentials from a TOML file once and answers auth
// questions from the parsed result. Token expiry is evaluated on every call
// so a session naturally de-authenticates when its token lapses.
type FileProvider struct {
	mu     sync.RWMutex
	userID string
	token  string
	expiry time.Time // zero means no expiry
	logger *slog.Logger
	now    func() time.Time
}

// NewFileProvider loads the credentials file at path. A missing or
// unreadable file yields an unauthenticated provider, never an error.
func NewFileProvider(path string) *FileProvider {
	p := &FileProvider{
		logger: slog.Default().With("component", "auth"),
		now:    time.Now,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Warn("reading credentials file", "path", path, "error", err)
		}
		return p
	}

	var creds Credentials
	if err := toml.Unmarshal(raw, &creds); err != nil {
		p.logger.Warn("parsing credentials file", "path", path, "error", err)
		return p
	}

	p.apply(creds)
	return p
}

// apply resolves the credentials into a user id and expiry.
func (p *FileProvider) apply(creds Credentials) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if creds.UserID != "" {
		p.userID = creds.UserID
	}
	if creds.Token == "" {
		return
	}
	p.token = creds.Token

	// The token is verified server-side; locally we only need the subject
	// and the expiry, so an unverified parse is sufficient.
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(creds.Token, claims); err != nil {
		p.logger.Warn("unparseable auth token, treating as unauthenticated", "error", err)
		p.userID = ""
		return
	}

	if p.userID == "" {
		if sub, ok := claims["sub"].(string); ok {
			p.userID = sub
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		p.expiry = exp.Time
	}
}

// IsAuthenticated reports whether a non-expired identity is present.
func (p *FileProvider) IsAuthenticated() bool {
	_, ok := p.UserID()
	return ok
}

// UserID returns the current user id, or false when unauthenticated or the
// token has expired.
func (p *FileProvider) UserID() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.userID == "" {
		return "", false
	}
	if !p.expiry.IsZero() && p.now().After(p.expiry) {
		return "", false
	}
	return p.userID, true
}

// Token returns the raw bearer token for outbound requests. Empty when no
// token was configured.
func (p *FileProvider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}
