package auth

import (
	"errors"
	"sync"
)

// ErrInvalidToken is returned when a credential fails verification. The
// connection presenting it stays open; no session is created.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity asserted by a verified credential.
type Claims struct {
	ID             string   `yaml:"id" json:"id"`
	AgentID        string   `yaml:"agent_id" json:"agentId,omitempty"`
	OrganizationID string   `yaml:"organization_id" json:"organizationId,omitempty"`
	Roles          []string `yaml:"roles" json:"roles,omitempty"`
}

// Verifier checks a bearer credential and returns the identity it asserts.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// TokenRegistry is a Verifier backed by a static token → claims table,
// typically loaded from configuration.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[string]Claims
}

func NewTokenRegistry(tokens map[string]Claims) *TokenRegistry {
	r := &TokenRegistry{tokens: make(map[string]Claims, len(tokens))}
	for token, claims := range tokens {
		r.tokens[token] = claims
	}
	return r
}

// Register adds or replaces the claims issued for token.
func (r *TokenRegistry) Register(token string, claims Claims) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = claims
}

func (r *TokenRegistry) Verify(token string) (Claims, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	claims, ok := r.tokens[token]
	if !ok || token == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
