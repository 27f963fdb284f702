package sessionfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/session"

	"gopkg.in/yaml.v3"
)

var _ session.Store = (*Store)(nil)

// DefaultPath is ~/.paygate/session.yaml, or a relative path when the home
// directory cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".paygate", "session.yaml")
	}
	return filepath.Join(home, ".paygate", "session.yaml")
}

// Store persists the dashboard session as a small YAML document.
type Store struct {
	path string
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) (session.Session, error) {
	_ = ctx

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess session.Session
	if err := yaml.Unmarshal(raw, &sess); err != nil {
		return session.Session{}, fmt.Errorf("failed to parse session file: %w", err)
	}
	return sess, nil
}

// Save writes the file with owner-only permissions; the token is a credential.
func (s *Store) Save(ctx context.Context, sess session.Session) error {
	_ = ctx

	if !sess.Authenticated() {
		return s.Clear(ctx)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	raw, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	_ = ctx

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
