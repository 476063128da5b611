package keys

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/nftsaga/types"
)

var seedHex = strings.Repeat("1f", 32)

func TestParsePrivateKeyED25519Encodings(t *testing.T) {
	raw, err := ParsePrivateKey(seedHex)
	require.NoError(t, err)
	assert.Equal(t, types.SchemeED25519, raw.Scheme())

	der, err := ParsePrivateKey(derPrefixED25519 + seedHex)
	require.NoError(t, err)
	assert.True(t, raw.PublicKey().Equal(der.PublicKey()))

	full, err := ParsePrivateKey(seedHex + strings.Repeat("00", 32))
	require.NoError(t, err)
	assert.True(t, raw.PublicKey().Equal(full.PublicKey()))

	upper, err := ParsePrivateKey("  " + strings.ToUpper(seedHex) + "\n")
	require.NoError(t, err)
	assert.True(t, raw.PublicKey().Equal(upper.PublicKey()))
	assert.Len(t, raw.PublicKey().Key, 32)
}

func TestParsePrivateKeyECDSAEncodings(t *testing.T) {
	hexKey, err := ParsePrivateKey("0x" + seedHex)
	require.NoError(t, err)
	assert.Equal(t, types.SchemeECDSASecp256k1, hexKey.Scheme())
	assert.Len(t, hexKey.PublicKey().Key, 33, "ecdsa public keys are compressed")

	der, err := ParsePrivateKey(derPrefixECDSA + seedHex)
	require.NoError(t, err)
	assert.True(t, hexKey.PublicKey().Equal(der.PublicKey()))
}

func TestParsePrivateKeyRejectsWithoutEchoing(t *testing.T) {
	for _, in := range []string{"", "abcd", strings.Repeat("zz", 32), "0x" + strings.Repeat("00", 32)} {
		_, err := ParsePrivateKey(in)
		require.Error(t, err, in)
		if in != "" {
			assert.NotContains(t, err.Error(), in)
		}
	}
}

func TestPrivateKeyIsRedacted(t *testing.T) {
	key, err := ParsePrivateKey(seedHex)
	require.NoError(t, err)

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%x", "%q"} {
		assert.Equal(t, redacted, fmt.Sprintf(verb, key), verb)
	}

	pair := KeyPair{Private: key, Public: key.PublicKey()}
	out := fmt.Sprintf("%+v", pair)
	assert.NotContains(t, out, seedHex)
	assert.Contains(t, out, redacted)

	data, err := json.Marshal(pair)
	require.NoError(t, err)
	assert.NotContains(t, string(data), seedHex)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, redacted, decoded["Private"])
}

func TestSignAndVerify(t *testing.T) {
	ed, err := GenerateED25519()
	require.NoError(t, err)
	ec, err := GenerateECDSA()
	require.NoError(t, err)

	msg := []byte(`{"transactionId":"0.0.2@1700000000.000000000"}`)
	for _, key := range []PrivateKey{ed, ec} {
		t.Run(string(key.Scheme()), func(t *testing.T) {
			sig := key.Sign(msg)
			assert.True(t, Verify(key.PublicKey(), msg, sig))
			assert.False(t, Verify(key.PublicKey(), append(msg, ' '), sig))

			other, err := GenerateED25519()
			require.NoError(t, err)
			assert.False(t, Verify(other.PublicKey(), msg, sig))
		})
	}
}

func TestValidatePublicKey(t *testing.T) {
	key, err := GenerateED25519()
	require.NoError(t, err)
	require.NoError(t, ValidatePublicKey(key.PublicKey()))

	assert.Error(t, ValidatePublicKey(types.PublicKey{Scheme: types.SchemeED25519, Key: []byte{1, 2}}))
	assert.Error(t, ValidatePublicKey(types.PublicKey{Scheme: types.SchemeECDSASecp256k1, Key: make([]byte, 33)}))
	assert.Error(t, ValidatePublicKey(types.PublicKey{Scheme: "RSA", Key: []byte{1}}))
	assert.False(t, Verify(types.PublicKey{}, []byte("m"), []byte("s")))
}

func TestED25519GeneratorProducesDistinctKeys(t *testing.T) {
	a, err := ED25519Generator.Generate()
	require.NoError(t, err)
	b, err := ED25519Generator.Generate()
	require.NoError(t, err)

	assert.Equal(t, types.SchemeED25519, a.Public.Scheme)
	assert.True(t, a.Public.Equal(a.Private.PublicKey()))
	assert.False(t, a.Public.Equal(b.Public))
}

func TestZeroKey(t *testing.T) {
	var zero PrivateKey
	assert.True(t, zero.IsZero())
	assert.True(t, zero.PublicKey().IsZero())
	assert.Nil(t, zero.Sign([]byte("m")))
}
