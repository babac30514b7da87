package session

import (
	"os"
	"strings"
)

// TokenCache persists the push token between sessions. The cache is
// only a hint: the backend stays the source of truth for whether this
// device receives push, so a cached token is always re-asserted on
// session start.
type TokenCache interface {
	Load() (string, error)
	Store(token string) error
	Clear() error
}

type fileTokenCache struct {
	path string
}

func NewFileTokenCache(path string) TokenCache {
	return &fileTokenCache{path: path}
}

func (c *fileTokenCache) Load() (string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *fileTokenCache) Store(token string) error {
	return os.WriteFile(c.path, []byte(token), 0o600)
}

func (c *fileTokenCache) Clear() error {
	err := os.Remove(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
