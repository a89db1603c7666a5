// ABOUTME: Provider interface plus anonymous and fixed-user implementations
// ABOUTME: The sync engine sees auth only as is-authenticated + user id

package auth

// Provider answers the two auth questions the sync engine needs.
// Implementations must be non-blocking and non-failing.
type Provider interface {
	// IsAuthenticated reports whether a signed-in user is present.
	IsAuthenticated() bool

	// UserID returns the current user id, or false when unauthenticated.
	UserID() (string, bool)
}

type anonymous struct{}

func (anonymous) IsAuthenticated() bool  { return false }
func (anonymous) UserID() (string, bool) { return "", false }

// Anonymous returns a Provider for unauthenticated use.
func Anonymous() Provider { return anonymous{} }

type staticUser struct{ id string }

func (s staticUser) IsAuthenticated() bool  { return true }
func (s staticUser) UserID() (string, bool) { return s.id, true }

// StaticUser returns a Provider that is always authenticated as id.
// Used by tests and by deployments that pin the user in config.
func StaticUser(id string) Provider {
	if id == "" {
		return Anonymous()
	}
	return staticUser{id: id}
}
