package session

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("session: not found")
	ErrUnauthenticated = errors.New("session: not logged in")
)

// Session is the merchant's dashboard session. The zero value is logged out.
type Session struct {
	Token string `yaml:"token"`
}

// Authenticated is a presence check only; the token is never inspected.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Login returns the session holding token.
func (s Session) Login(token string) Session {
	return Session{Token: token}
}

// Logout returns the logged-out session.
func (s Session) Logout() Session {
	return Session{}
}

// Store persists the session between CLI invocations. It is read once at
// startup and written once at teardown.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}
