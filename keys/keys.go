// Package keys generates, parses and applies the signing keys used on the
// ledger. ED25519 keys come from circl, ECDSA secp256k1 keys from
// go-ethereum. Private keys never render their material: every fmt verb,
// JSON encoding and zap field shows "<redacted>".
package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vitwit/nftsaga/types"
)

const redacted = "<redacted>"

// DER prefixes of PKCS#8 encoded private keys as printed by ledger portals.
const (
	derPrefixED25519 = "302e020100300506032b657004220420"
	derPrefixECDSA   = "3030020100300706052b8104000a04220420"
)

var _ types.Signer = PrivateKey{}

// PrivateKey is an ED25519 or ECDSA secp256k1 signing key.
type PrivateKey struct {
	scheme types.KeyScheme
	ed     ed25519.PrivateKey
	ec     *ecdsa.PrivateKey
}

// GenerateED25519 returns a fresh ED25519 key from crypto/rand.
func GenerateED25519() (PrivateKey, error) {
	return generateED25519(rand.Reader)
}

func generateED25519(r io.Reader) (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return PrivateKey{scheme: types.SchemeED25519, ed: priv}, nil
}

// GenerateECDSA returns a fresh secp256k1 key.
func GenerateECDSA() (PrivateKey, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return PrivateKey{}, fmt.Errorf("failed to generate ecdsa key: %w", err)
	}
	return PrivateKey{scheme: types.SchemeECDSASecp256k1, ec: priv}, nil
}

// ParsePrivateKey accepts DER-encoded hex of either scheme, "0x"-prefixed
// raw secp256k1 hex, or raw ED25519 hex (32-byte seed or 64-byte seed||pub).
// Errors never echo the input.
func ParsePrivateKey(s string) (PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PrivateKey{}, fmt.Errorf("private key is empty")
	}

	hexKey := strings.ToLower(s)
	ecdsaHint := strings.HasPrefix(hexKey, "0x")
	hexKey = strings.TrimPrefix(hexKey, "0x")

	switch {
	case strings.HasPrefix(hexKey, derPrefixED25519):
		return edFromSeedHex(strings.TrimPrefix(hexKey, derPrefixED25519))
	case strings.HasPrefix(hexKey, derPrefixECDSA):
		return ecFromHex(strings.TrimPrefix(hexKey, derPrefixECDSA))
	case ecdsaHint && len(hexKey) == 64:
		return ecFromHex(hexKey)
	case len(hexKey) == 64:
		return edFromSeedHex(hexKey)
	case len(hexKey) == 128:
		return edFromSeedHex(hexKey[:64])
	default:
		return PrivateKey{}, fmt.Errorf("unrecognized private key encoding (%d hex characters)", len(hexKey))
	}
}

func edFromSeedHex(h string) (PrivateKey, error) {
	seed, err := hex.DecodeString(h)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("private key is not valid hex")
	}
	if len(seed) != ed25519.SeedSize {
		return PrivateKey{}, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return PrivateKey{scheme: types.SchemeED25519, ed: ed25519.NewKeyFromSeed(seed)}, nil
}

func ecFromHex(h string) (PrivateKey, error) {
	priv, err := crypto.HexToECDSA(h)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("invalid secp256k1 private key")
	}
	return PrivateKey{scheme: types.SchemeECDSASecp256k1, ec: priv}, nil
}

func (k PrivateKey) Scheme() types.KeyScheme {
	return k.scheme
}

func (k PrivateKey) IsZero() bool {
	return k.ed == nil && k.ec == nil
}

// PublicKey implements types.Signer.
func (k PrivateKey) PublicKey() types.PublicKey {
	switch k.scheme {
	case types.SchemeED25519:
		pub := k.ed.Public().(ed25519.PublicKey)
		return types.PublicKey{Scheme: types.SchemeED25519, Key: append([]byte(nil), pub...)}
	case types.SchemeECDSASecp256k1:
		return types.PublicKey{Scheme: types.SchemeECDSASecp256k1, Key: crypto.CompressPubkey(&k.ec.PublicKey)}
	default:
		return types.PublicKey{}
	}
}

// Sign implements types.Signer. ECDSA signatures are r||s over keccak256 of
// the message.
func (k PrivateKey) Sign(message []byte) []byte {
	switch k.scheme {
	case types.SchemeED25519:
		return ed25519.Sign(k.ed, message)
	case types.SchemeECDSASecp256k1:
		// crypto.Sign only fails on a digest that is not 32 bytes.
		sig, _ := crypto.Sign(crypto.Keccak256(message), k.ec)
		return sig[:64]
	default:
		return nil
	}
}

func (k PrivateKey) String() string {
	return redacted
}

func (k PrivateKey) GoString() string {
	return redacted
}

// Format keeps key material out of every fmt verb.
func (k PrivateKey) Format(f fmt.State, _ rune) {
	io.WriteString(f, redacted)
}

func (k PrivateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

func (k PrivateKey) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Verify checks sig over message against pub.
func Verify(pub types.PublicKey, message, sig []byte) bool {
	if ValidatePublicKey(pub) != nil {
		return false
	}
	switch pub.Scheme {
	case types.SchemeED25519:
		return ed25519.Verify(ed25519.PublicKey(pub.Key), message, sig)
	case types.SchemeECDSASecp256k1:
		return len(sig) == 64 && crypto.VerifySignature(pub.Key, crypto.Keccak256(message), sig)
	default:
		return false
	}
}

// ValidatePublicKey reports whether pub is a well-formed key of its scheme.
func ValidatePublicKey(pub types.PublicKey) error {
	switch pub.Scheme {
	case types.SchemeED25519:
		if len(pub.Key) != ed25519.PublicKeySize {
			return fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub.Key))
		}
		return nil
	case types.SchemeECDSASecp256k1:
		if _, err := crypto.DecompressPubkey(pub.Key); err != nil {
			return fmt.Errorf("invalid secp256k1 public key: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported key scheme %q", pub.Scheme)
	}
}
