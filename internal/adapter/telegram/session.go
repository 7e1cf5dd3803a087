package telegram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/gotd/td/session"
	"go.uber.org/zap"
)

// stringSession keeps the session payload in process memory, seeded from the
// SESSION_STRING configuration value. Nothing is ever written to disk; on a
// first run without a token the adapter emits the freshly generated token to
// the log so the operator can persist it as configuration.
type stringSession struct {
	log *zap.Logger

	mu   sync.Mutex
	data []byte
}

func newStringSession(token string, log *zap.Logger) *stringSession {
	s := &stringSession{log: log}
	if token == "" {
		return s
	}

	if data, err := base64.StdEncoding.DecodeString(token); err == nil && json.Valid(data) {
		s.data = data
		return s
	}

	// Telethon-format tokens from the previous deployment are converted on load.
	if tele, err := session.TelethonSession(token); err == nil {
		loader := session.Loader{Storage: s}
		if err := loader.Save(context.Background(), tele); err == nil {
			return s
		}
	}

	log.Warn("SESSION_STRING not recognized, starting with a fresh session")
	s.data = nil
	return s
}

func (s *stringSession) LoadSession(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	cp := make([]byte, len(s.data))
	copy(cp, s.data)
	return cp, nil
}

func (s *stringSession) StoreSession(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

// Token returns the current session payload in the form accepted back via
// SESSION_STRING.
func (s *stringSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return base64.StdEncoding.EncodeToString(s.data)
}
