package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrInvalidState signals that a callback carried a state token that
// is unknown, already consumed, or older than the TTL. The user
// recovers by restarting the flow.
var ErrInvalidState = errors.New("invalid or expired authorization state")

// FlowRegistry tracks in-flight authorization attempts keyed by an
// unguessable state token. Entries are single-use: a token is consumed
// by the first matching callback, valid or not.
type FlowRegistry struct {
	mu      sync.Mutex
	pending map[string]time.Time // state token -> creation time
	conf    *oauth2.Config
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time
}

// NewFlowRegistry creates a registry whose entries expire after ttl.
// Code exchanges go out through client, whose timeout bounds them; a
// nil client falls back to http.DefaultClient.
func NewFlowRegistry(conf *oauth2.Config, ttl time.Duration, client *http.Client) *FlowRegistry {
	return &FlowRegistry{
		pending: make(map[string]time.Time),
		conf:    conf,
		client:  client,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Begin registers a new authorization attempt and returns its state
// token and the URL the user must visit. Offline access with a forced
// consent prompt makes Google grant a refresh token.
func (r *FlowRegistry) Begin() (state, authURL string) {
	state = uuid.NewString()

	r.mu.Lock()
	r.pending[state] = r.now()
	r.mu.Unlock()

	authURL = r.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return state, authURL
}

// Complete consumes the state token and exchanges the authorization
// code for credentials. The lookup and delete happen atomically so two
// concurrent callbacks cannot both redeem the same token.
func (r *FlowRegistry) Complete(ctx context.Context, state, code string) (*Credentials, error) {
	r.mu.Lock()
	createdAt, ok := r.pending[state]
	if ok {
		delete(r.pending, state)
	}
	r.mu.Unlock()

	if !ok || r.now().Sub(createdAt) > r.ttl {
		return nil, ErrInvalidState
	}

	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}
	tok, err := r.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	return credentialsFromToken(tok, r.conf.Scopes), nil
}

// Sweep removes expired entries and returns how many were dropped.
// Complete rejects stale tokens on its own; the sweep only bounds the
// registry's memory.
func (r *FlowRegistry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	for state, createdAt := range r.pending {
		if createdAt.Before(cutoff) {
			delete(r.pending, state)
			removed++
		}
	}
	return removed
}
