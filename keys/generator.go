package keys

import "github.com/vitwit/nftsaga/types"

// KeyPair is a freshly generated key owned by the account it provisions.
type KeyPair struct {
	Private PrivateKey
	Public  types.PublicKey
}

// Generator produces key pairs for new accounts.
type Generator interface {
	Generate() (KeyPair, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() (KeyPair, error)

func (f GeneratorFunc) Generate() (KeyPair, error) {
	return f()
}

// ED25519Generator is the generator the ledger's account keys default to.
var ED25519Generator Generator = GeneratorFunc(func() (KeyPair, error) {
	priv, err := GenerateED25519()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Private: priv, Public: priv.PublicKey()}, nil
})
