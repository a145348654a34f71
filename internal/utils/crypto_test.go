// internal/utils/crypto_test.go
package utils

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashURIRoundTrip(t *testing.T) {
	uri := "https://cdn.example.com/metadata/abc.json"

	hexHash := HashURIHex(uri)
	assert.Len(t, hexHash, 64)

	decoded, ok := DecodeURIHash(hexHash)
	require.True(t, ok)
	assert.Equal(t, HashURI(uri), decoded)
}

func TestDecodeURIHashRejectsBadInput(t *testing.T) {
	_, ok := DecodeURIHash("zz")
	assert.False(t, ok)

	_, ok = DecodeURIHash("abcd")
	assert.False(t, ok, "wrong length")
}

func TestVerifyWalletSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	wallet := base64.RawURLEncoding.EncodeToString(pub)
	challenge := "creatorclaim-login:1700000000"
	signature := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(challenge)))

	assert.True(t, VerifyWalletSignature(wallet, challenge, signature))
	assert.False(t, VerifyWalletSignature(wallet, "different message", signature))
	assert.False(t, VerifyWalletSignature(wallet, challenge, base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize))))
	assert.False(t, VerifyWalletSignature("not-base64!!!", challenge, signature))
}

func TestGenerateRandomString(t *testing.T) {
	a, err := GenerateRandomString(32)
	require.NoError(t, err)
	b, err := GenerateRandomString(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
