// Package claims turns a bearer credential into the caller's Identity.
//
// By default credentials are parsed without checking their signature; the
// deployment trusts an upstream front door to have validated them. Supplying
// an HMAC secret or an RSA public key turns on real verification.
package claims

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"zerotrust/internal/gateway/models"
	"zerotrust/internal/platform/config"
)

// ErrMalformedCredential is returned when a credential cannot be parsed, or
// fails verification when verification is enabled.
var ErrMalformedCredential = errors.New("malformed credential")

// UnknownRole and UnknownUser are used when the claims carry nothing usable.
const (
	UnknownRole = "unknown"
	UnknownUser = "unknown"
)

// Extractor parses credentials. The zero value parses without verification.
type Extractor struct {
	hmacSecret []byte
	publicKey  *rsa.PublicKey
}

type Option func(*Extractor)

// WithHMACSecret enables HS256 verification.
func WithHMACSecret(secret string) Option {
	return func(e *Extractor) {
		e.hmacSecret = []byte(secret)
	}
}

// WithRSAPublicKey enables RS256 verification.
func WithRSAPublicKey(key *rsa.PublicKey) Option {
	return func(e *Extractor) {
		e.publicKey = key
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds an Extractor from the auth configuration, loading the
// PEM public key from disk when one is configured.
func NewFromConfig(cfg config.Auth) (*Extractor, error) {
	var opts []Option
	if cfg.HMACSecret != "" {
		opts = append(opts, WithHMACSecret(cfg.HMACSecret))
	}
	if cfg.PublicKeyFile != "" {
		pem, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		opts = append(opts, WithRSAPublicKey(key))
	}
	return New(opts...), nil
}

// Verifying reports whether signatures are checked.
func (e *Extractor) Verifying() bool {
	return len(e.hmacSecret) > 0 || e.publicKey != nil
}

// Extract parses the credential and derives the Identity.
func (e *Extractor) Extract(credential string) (*models.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrMalformedCredential
	}

	claims := jwt.MapClaims{}
	if e.Verifying() {
		if _, err := jwt.ParseWithClaims(credential, claims, e.keyFunc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCredential, err)
		}
	} else {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(credential, claims); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCredential, err)
		}
	}

	return identityFromClaims(claims), nil
}

func (e *Extractor) keyFunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(e.hmacSecret) > 0 {
			return e.hmacSecret, nil
		}
	case *jwt.SigningMethodRSA:
		if e.publicKey != nil {
			return e.publicKey, nil
		}
	}
	return nil, jwt.ErrTokenUnverifiable
}

func identityFromClaims(claims jwt.MapClaims) *models.Identity {
	id := &models.Identity{
		Username:  usernameFrom(claims),
		Role:      ResolveRole(claims),
		Roles:     allRoles(claims),
		RawClaims: map[string]any(claims),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.UTC()
		id.IssuedAt = &t
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.UTC()
		id.ExpiresAt = &t
	}
	return id
}

func usernameFrom(claims map[string]any) string {
	for _, key := range []string{"preferred_username", "username", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return UnknownUser
}

// ResolveRole applies the role precedence, first match wins:
//  1. a direct "role" claim
//  2. the first realm role that is not an infrastructure default
//  3. the first non-default role of any client, clients in lexicographic order
//  4. UnknownRole
func ResolveRole(claims map[string]any) string {
	if role, ok := claims["role"].(string); ok && role != "" {
		return role
	}
	if roles := filterDefaults(realmRoles(claims)); len(roles) > 0 {
		return roles[0]
	}
	for _, client := range sortedClients(claims) {
		if roles := filterDefaults(clientRoles(claims, client)); len(roles) > 0 {
			return roles[0]
		}
	}
	return UnknownRole
}

// IsDefaultRole reports whether role is one of the identity provider's
// infrastructure roles that carry no authorization meaning.
func IsDefaultRole(role string) bool {
	switch {
	case strings.HasPrefix(role, "default-roles-"):
		return true
	case role == "offline_access", role == "uma_authorization":
		return true
	}
	return false
}

func allRoles(claims map[string]any) []string {
	seen := map[string]bool{}
	var out []string
	add := func(roles []string) {
		for _, r := range filterDefaults(roles) {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		add([]string{role})
	}
	add(realmRoles(claims))
	for _, client := range sortedClients(claims) {
		add(clientRoles(claims, client))
	}
	return out
}

func realmRoles(claims map[string]any) []string {
	realm, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	return stringList(realm["roles"])
}

func sortedClients(claims map[string]any) []string {
	access, ok := claims["resource_access"].(map[string]any)
	if !ok {
		return nil
	}
	clients := make([]string, 0, len(access))
	for name := range access {
		clients = append(clients, name)
	}
	sort.Strings(clients)
	return clients
}

func clientRoles(claims map[string]any, client string) []string {
	access, _ := claims["resource_access"].(map[string]any)
	entry, ok := access[client].(map[string]any)
	if !ok {
		return nil
	}
	return stringList(entry["roles"])
}

func filterDefaults(roles []string) []string {
	out := roles[:0:0]
	for _, r := range roles {
		if r != "" && !IsDefaultRole(r) {
			out = append(out, r)
		}
	}
	return out
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Expired reports whether the identity carries an expiry before now. Parsing
// without verification does not reject expired credentials; callers that care
// can ask.
func Expired(id *models.Identity, now time.Time) bool {
	return id.ExpiresAt != nil && id.ExpiresAt.Before(now)
}
