// Package credentials is the simple in-memory plugin.CredentialStore
// SPEC_FULL.md §3 calls for: a name-to-secret map, populated at daemon
// startup from the environment (cmd/rivulet stores OPENAI_API_KEY under
// "openai"), resolved by nodes/http and nodes/llm when a node names a
// credential.
package credentials

import (
	"sync"

	"github.com/flowloom/rivulet/plugin"
)

type Store struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func New() *Store {
	return &Store{secrets: make(map[string]string)}
}

func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = value
}

func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.secrets[name]
	return v, ok
}

var _ plugin.CredentialStore = (*Store)(nil)
