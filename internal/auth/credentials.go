package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// ErrAuthorizationRequired signals that no usable credentials exist and
// the user must complete the authorization flow. It is a designed
// outcome, never an internal failure.
var ErrAuthorizationRequired = errors.New("authorization required")

// Store persists and refreshes the single credential set. All access
// to the in-memory value and the backing file is serialized by one
// mutex, which also makes concurrent refreshes single-flight: callers
// arriving during a refresh block and then reuse its result.
type Store struct {
	mu     sync.Mutex
	path   string
	conf   *oauth2.Config
	client *http.Client
	creds  *Credentials
	loaded bool
}

// NewStore creates a Store backed by the JSON file at path. Refresh
// calls go out through client, whose timeout bounds them; a nil
// client falls back to http.DefaultClient.
func NewStore(path string, conf *oauth2.Config, client *http.Client) *Store {
	return &Store{path: path, conf: conf, client: client}
}

// Save atomically persists the credential set. The file is written to
// a temp path and renamed so the on-disk state is always either the
// old or the new record.
func (s *Store) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(creds); err != nil {
		return err
	}
	s.creds = creds
	s.loaded = true
	return nil
}

func (s *Store) saveLocked(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

// loadLocked reads the stored blob. Any read or deserialization error
// is reported and treated as no credentials.
func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("credential store: cannot read %s: %v", s.path, err)
		}
		return
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		log.Printf("credential store: ignoring malformed credential file %s: %v", s.path, err)
		return
	}
	s.creds = &creds
}

// Current returns the stored credential set without refreshing, or
// nil when none exists. Callers never mutate the returned value; the
// Store owns the only live instance.
func (s *Store) Current() *Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	if s.creds == nil {
		return nil
	}
	out := *s.creds
	return &out
}

// EnsureValid returns valid, non-expired credentials, transparently
// refreshing and persisting them when the stored set is expired but
// holds a refresh token. When no usable credentials exist, or the
// refresh fails, it returns ErrAuthorizationRequired.
func (s *Store) EnsureValid(ctx context.Context) (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()

	c := s.creds
	if c == nil {
		return nil, ErrAuthorizationRequired
	}
	if c.Valid() {
		out := *c
		return &out, nil
	}
	if c.RefreshToken == "" {
		return nil, ErrAuthorizationRequired
	}

	// The refresh runs with the mutex held; routing it through the
	// shared client bounds it by that client's timeout.
	rctx := ctx
	if s.client != nil {
		rctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}
	src := s.conf.TokenSource(rctx, &oauth2.Token{RefreshToken: c.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			// The grant was rejected (revoked or invalid refresh
			// token); the stored record is useless now.
			log.Printf("credential store: refresh rejected, dropping stored credentials: %v", err)
			s.creds = nil
			if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Printf("credential store: cannot remove %s: %v", s.path, rmErr)
			}
		} else {
			log.Printf("credential store: refresh failed: %v", err)
		}
		return nil, ErrAuthorizationRequired
	}

	refreshed := credentialsFromToken(tok, c.Scopes)
	if refreshed.RefreshToken == "" {
		// Google omits the refresh token on refresh responses.
		refreshed.RefreshToken = c.RefreshToken
	}
	if err := s.saveLocked(refreshed); err != nil {
		// Serve the refreshed token anyway; persistence problems must
		// not fail the request path.
		log.Printf("credential store: cannot persist refreshed credentials: %v", err)
	}
	s.creds = refreshed

	out := *refreshed
	return &out, nil
}
