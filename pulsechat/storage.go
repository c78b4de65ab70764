package pulsechat

import (
	"encoding/json"
	"os"
	"sync"
)

// CredentialStore holds the bearer token used to authenticate the realtime
// channel and REST requests. Issuance and refresh are external concerns; the
// client only reads and writes the current value.
type CredentialStore interface {
	AccessToken() string
	SetAccessToken(token string)
	Clear()
}

// MemoryStore keeps the credential in memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *MemoryStore) SetAccessToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.SetAccessToken("")
}

// FileStore persists the credential as a small JSON object on disk, so it
// survives process restarts the way browser localStorage does.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileStoreData struct {
	AccessToken string `json:"access_token"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var d fileStoreData
	if err := json.Unmarshal(data, &d); err != nil {
		return ""
	}
	return d.AccessToken
}

func (s *FileStore) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(fileStoreData{AccessToken: token})
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = os.Remove(s.path)
}
