package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// jwksKey is a single JSON Web Key.
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// minRefresh bounds how often an unknown kid can trigger a refetch while the
// cached set is still within its TTL.
const minRefresh = time.Minute

// KeySet caches RSA keys fetched from a JWKS endpoint. Keys are refetched
// when the TTL expires or an unknown kid shows up, at most once per
// minRefresh for the latter. Concurrent misses share a single fetch.
type KeySet struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	url       string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client

	refreshMu sync.Mutex
}

// NewKeySet creates a cache over the JWKS document at url.
func NewKeySet(url string, ttl time.Duration, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{
		keys:   make(map[string]*rsa.PublicKey),
		url:    url,
		ttl:    ttl,
		client: client,
	}
}

// Key returns the public key for kid.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok, _ := s.lookup(kid); ok {
		return key, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while this one waited.
	key, ok, age := s.lookup(kid)
	if ok {
		return key, nil
	}
	if age <= s.ttl && age < minRefresh {
		return nil, fmt.Errorf("key with kid %q not found", kid)
	}

	if err := s.refresh(ctx); err != nil {
		return nil, fmt.Errorf("fetch signing keys: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok = s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found", kid)
	}
	return key, nil
}

// lookup reports the cached key for kid, whether it is usable, and the age
// of the cached set. A set that was never fetched has an unbounded age.
func (s *KeySet) lookup(kid string) (*rsa.PublicKey, bool, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	age := time.Duration(math.MaxInt64)
	if !s.fetchedAt.IsZero() {
		age = time.Since(s.fetchedAt)
	}
	key, ok := s.keys[kid]
	return key, ok && age <= s.ttl, age
}

func (s *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func parseRSAPublicKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
