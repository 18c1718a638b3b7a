package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyServer serves a JWKS document that tests can swap out
type keyServer struct {
	*httptest.Server
	mu      sync.Mutex
	keys    []JWK
	status  int
	fetches atomic.Int32
}

func newKeyServer(t *testing.T, keys ...JWK) *keyServer {
	t.Helper()
	ks := &keyServer{keys: keys, status: http.StatusOK}
	ks.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks.fetches.Add(1)
		ks.mu.Lock()
		defer ks.mu.Unlock()
		if ks.status != http.StatusOK {
			w.WriteHeader(ks.status)
			return
		}
		_ = json.NewEncoder(w).Encode(JWKS{Keys: ks.keys})
	}))
	t.Cleanup(ks.Close)
	return ks
}

func (ks *keyServer) set(status int, keys ...JWK) {
	ks.mu.Lock()
	ks.status, ks.keys = status, keys
	ks.mu.Unlock()
}

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func publicJWK(kid string, key *rsa.PrivateKey) JWK {
	return JWK{
		Kid: kid,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

func signRS256(t *testing.T, kid string, key *rsa.PrivateKey) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "admin-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if kid != "" {
		tok.Header["kid"] = kid
	}
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestJWKSValidatorAcceptsSignedToken(t *testing.T) {
	key := rsaKey(t)
	ks := newKeyServer(t, publicJWK("k1", key))
	v := NewJWKSValidatorForURL(ks.URL)

	token, err := v.ValidateToken(signRS256(t, "k1", key))
	require.NoError(t, err)
	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "admin-1", sub)

	_, err = v.ValidateToken(signRS256(t, "k1", key))
	require.NoError(t, err)
	assert.EqualValues(t, 1, ks.fetches.Load(), "cached keys are reused")
}

func TestJWKSValidatorRejects(t *testing.T) {
	key := rsaKey(t)
	other := rsaKey(t)
	ks := newKeyServer(t, publicJWK("k1", key))
	v := NewJWKSValidatorForURL(ks.URL)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "admin-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	expired.Header["kid"] = "k1"
	expiredToken, err := expired.SignedString(key)
	require.NoError(t, err)

	cases := map[string]string{
		"signed by another key": signRS256(t, "k1", other),
		"unknown kid":           signRS256(t, "k9", key),
		"missing kid":           signRS256(t, "", key),
		"hmac signed":           hmac,
		"expired":               expiredToken,
		"garbage":               "not-a-token",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateToken(tok)
			assert.Error(t, err)
		})
	}
}

func TestJWKSValidatorPicksUpRotatedKey(t *testing.T) {
	oldKey := rsaKey(t)
	newKey := rsaKey(t)
	ks := newKeyServer(t, publicJWK("k1", oldKey))
	v := NewJWKSValidatorForURL(ks.URL)
	v.minRefresh = 0

	ks.set(http.StatusOK, publicJWK("k1", oldKey), publicJWK("k2", newKey))
	_, err := v.ValidateToken(signRS256(t, "k2", newKey))
	require.NoError(t, err)
	assert.EqualValues(t, 2, ks.fetches.Load())
}

func TestJWKSValidatorThrottlesUnknownKids(t *testing.T) {
	key := rsaKey(t)
	ks := newKeyServer(t, publicJWK("k1", key))
	v := NewJWKSValidatorForURL(ks.URL)

	for i := 0; i < 5; i++ {
		_, err := v.GetKey("k9")
		assert.Error(t, err)
	}
	assert.EqualValues(t, 1, ks.fetches.Load(), "refetches wait for minRefresh")
}

func TestJWKSValidatorRecoversFromStartupFailure(t *testing.T) {
	key := rsaKey(t)
	ks := newKeyServer(t)
	ks.set(http.StatusServiceUnavailable)
	v := NewJWKSValidatorForURL(ks.URL)
	v.minRefresh = 0

	_, err := v.GetKey("k1")
	assert.Error(t, err)

	ks.set(http.StatusOK, publicJWK("k1", key))
	got, err := v.GetKey("k1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.N.Cmp(key.N))
}

func TestJWKSValidatorSkipsUnusableKeys(t *testing.T) {
	key := rsaKey(t)
	enc := publicJWK("enc", key)
	enc.Use = "enc"
	ec := publicJWK("ec", key)
	ec.Kty = "EC"
	broken := publicJWK("broken", key)
	broken.N = "!!"
	ks := newKeyServer(t, enc, ec, broken, publicJWK("k1", key))
	v := NewJWKSValidatorForURL(ks.URL)

	for _, kid := range []string{"enc", "ec", "broken"} {
		_, ok := v.lookup(kid)
		assert.False(t, ok, kid)
	}
	_, ok := v.lookup("k1")
	assert.True(t, ok)
}
