package session

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Artifact persists the credential token across process restarts so the
// store can re-derive identity at start-up.
type Artifact interface {
	Load() (token string, ok bool)
	Store(token string) error
	Clear() error
}

// MemoryArtifact keeps the token in memory only. The zero value is ready to
// use; a process restart always starts logged out.
type MemoryArtifact struct {
	mu    sync.Mutex
	token string
}

func (a *MemoryArtifact) Load() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token, a.token != ""
}

func (a *MemoryArtifact) Store(token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	return nil
}

func (a *MemoryArtifact) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	return nil
}

// FileArtifact persists the token to a single file, readable only by the
// owning user.
type FileArtifact struct {
	Path string
}

func (a *FileArtifact) Load() (string, bool) {
	data, err := os.ReadFile(a.Path)
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (a *FileArtifact) Store(token string) error {
	if err := os.WriteFile(a.Path, []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "[FileArtifact.Store] WriteFile")
	}
	return nil
}

func (a *FileArtifact) Clear() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileArtifact.Clear] Remove")
	}
	return nil
}
