package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	defaultStateDir = "./state"
	sessionFileName = "session.json"
)

// State is the client-side session persisted between runs.
type State struct {
	Slot     int    `json:"slot,omitempty"`
	ClientID int64  `json:"client_id,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Store keeps the session in memory and mirrors every change to a JSON file.
type Store struct {
	path  string
	mu    sync.RWMutex
	state State
}

// NewStore opens (or creates) the session file under dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultStateDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create session state dir")
	}

	s := &Store{path: filepath.Join(dir, sessionFileName)}
	state, err := s.load()
	if err != nil {
		return nil, err
	}
	if state != nil {
		s.state = *state
	}

	return s, nil
}

// Current returns a copy of the session.
func (s *Store) Current() State {
	if s == nil {
		return State{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the bearer token, empty when logged out.
func (s *Store) Token() string {
	return s.Current().Token
}

// SetToken stores a new bearer token.
func (s *Store) SetToken(token string) error {
	return s.update(func(st *State) { st.Token = token })
}

// ClearToken drops the bearer token. It is called when the backend answers 401.
func (s *Store) ClearToken() error {
	return s.SetToken("")
}

// SetSlot remembers the last opened slot.
func (s *Store) SetSlot(slot int) error {
	return s.update(func(st *State) { st.Slot = slot })
}

// SetClient remembers the selected client.
func (s *Store) SetClient(clientID int64) error {
	return s.update(func(st *State) { st.ClientID = clientID })
}

// UserLabel returns the subject of the session token. The signature is not
// verified: the label is for display only and the backend checks the token.
func (s *Store) UserLabel() (string, bool) {
	token := s.Token()
	if token == "" {
		return "", false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", false
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}

	return sub, true
}

func (s *Store) update(fn func(*State)) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	fn(&next)
	if err := s.save(next); err != nil {
		return err
	}
	s.state = next

	return nil
}

func (s *Store) load() (*State, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read session state")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode session state")
	}

	return &state, nil
}

// save writes the state atomically via a temp file.
func (s *Store) save(state State) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode session state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrap(err, "write session temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist session state")
	}

	return nil
}
