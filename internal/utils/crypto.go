// internal/utils/crypto.go
package utils

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/big"
)

func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// HashURI returns the SHA-256 digest of a metadata URI string. This digest
// is the metadata_uri_hash input to certificate registration.
func HashURI(uri string) [32]byte {
	return sha256.Sum256([]byte(uri))
}

func HashURIHex(uri string) string {
	h := HashURI(uri)
	return hex.EncodeToString(h[:])
}

// DecodeURIHash parses a hex-encoded 32-byte digest.
func DecodeURIHash(hexHash string) ([32]byte, bool) {
	var out [32]byte
	raw, err := hex.DecodeString(hexHash)
	if err != nil || len(raw) != 32 {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}

// VerifyWalletSignature checks an ed25519 signature over a challenge
// message. The wallet address is the unpadded URL-safe base64 encoding of
// the public key, so addresses can appear in URL path segments; the signing
// infrastructure producing these signatures is external.
func VerifyWalletSignature(walletAddress, message, signature string) bool {
	pub, err := base64.RawURLEncoding.DecodeString(walletAddress)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig)
}

func ValidateFileHash(fileData []byte, expectedHash string) bool {
	hasher := sha256.New()
	hasher.Write(fileData)
	actualHash := hex.EncodeToString(hasher.Sum(nil))
	return actualHash == expectedHash
}
