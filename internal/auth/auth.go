// Package auth resolves bearer tokens to caller identities.
package auth

import (
	"oasis/internal/config"
)

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID string
	Role   string
}

// Verifier resolves a presented token to an identity.
type Verifier interface {
	Verify(token string) (Identity, bool)
}

// StaticTokens verifies against the token table from configuration.
type StaticTokens struct {
	identities map[string]Identity
}

// NewStaticTokens builds a verifier from the config token table.
func NewStaticTokens(cfg *config.Config) (*StaticTokens, error) {
	parsed, err := cfg.Identities()
	if err != nil {
		return nil, err
	}
	identities := make(map[string]Identity, len(parsed))
	for token, identity := range parsed {
		identities[token] = Identity{UserID: identity.UserID, Role: identity.Role}
	}
	return &StaticTokens{identities: identities}, nil
}

// Verify resolves a presented token.
func (s *StaticTokens) Verify(token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}
	identity, ok := s.identities[token]
	return identity, ok
}
