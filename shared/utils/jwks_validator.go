package utils

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKSValidator validates RS256 access tokens against a JWKS endpoint.
// Keys are cached for refreshTTL; an unknown kid forces a refetch at most
// once per minRefresh so rotated keys are picked up without hammering the
// endpoint.
type JWKSValidator struct {
	jwksURL    string
	keys       map[string]*rsa.PublicKey
	mutex      sync.RWMutex
	lastFetch  time.Time
	refreshTTL time.Duration
	minRefresh time.Duration
	httpClient *http.Client
}

// NewJWKSValidator creates a validator for a Cognito user pool
func NewJWKSValidator(region, userPoolID string) *JWKSValidator {
	return NewJWKSValidatorForURL(fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, userPoolID))
}

// NewJWKSValidatorForURL creates a validator reading keys from jwksURL
func NewJWKSValidatorForURL(jwksURL string) *JWKSValidator {
	validator := &JWKSValidator{
		jwksURL:    jwksURL,
		keys:       make(map[string]*rsa.PublicKey),
		refreshTTL: 24 * time.Hour,
		minRefresh: time.Minute,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	if err := validator.refreshKeys(false); err != nil {
		Logger.WithError(err).Warn("JWKS keys not loaded at startup")
	}

	return validator
}

// refreshKeys fetches the key set unless the cache is still fresh. force
// skips the TTL but still honours minRefresh.
func (v *JWKSValidator) refreshKeys(force bool) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if !v.lastFetch.IsZero() {
		age := time.Since(v.lastFetch)
		if age < v.minRefresh || (!force && age < v.refreshTTL && len(v.keys) > 0) {
			return nil
		}
	}
	v.lastFetch = time.Now()

	resp, err := v.httpClient.Get(v.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS response: %w", err)
	}

	var jwks JWKS
	if err := json.Unmarshal(body, &jwks); err != nil {
		return fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, jwk := range jwks.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pubKey, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			Logger.WithError(err).WithField("kid", jwk.Kid).Warn("Skipping malformed JWKS key")
			continue
		}
		keys[jwk.Kid] = pubKey
	}

	v.keys = keys
	return nil
}

// jwkToRSAPublicKey converts a JWK to an RSA public key
func jwkToRSAPublicKey(jwk JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode N: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode E: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 {
		return nil, fmt.Errorf("empty modulus or exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// GetKey returns the public key for the given key ID
func (v *JWKSValidator) GetKey(kid string) (*rsa.PublicKey, error) {
	if key, ok := v.lookup(kid); ok {
		return key, nil
	}

	// unknown kid: the pool may have rotated its keys
	if err := v.refreshKeys(true); err != nil {
		return nil, fmt.Errorf("failed to refresh keys: %w", err)
	}

	key, ok := v.lookup(kid)
	if !ok {
		return nil, fmt.Errorf("key with kid %s not found", kid)
	}
	return key, nil
}

func (v *JWKSValidator) lookup(kid string) (*rsa.PublicKey, bool) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	key, ok := v.keys[kid]
	return key, ok
}

// ValidateToken verifies an RS256 token signed by a key in the set
func (v *JWKSValidator) ValidateToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("kid not found in token header")
		}
		return v.GetKey(kid)
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))

	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	return token, nil
}
