package nftsaga

import (
	"bytes"
	"os"

	"github.com/vitwit/nftsaga/contracts"
	"github.com/vitwit/nftsaga/types"
)

// DefaultBytecodePath is where the compiled NFTCreator contract is expected.
const DefaultBytecodePath = "./NFTCreator_sol_NFTCreator.bin"

// DefaultMetadata is the metadata payload minted with each unit.
const DefaultMetadata = "ipfs://bafyreie3ichmqul4xa7e6xcy34tylbuq2vf3gnjf7c55trg3b6xyjr4bku/metadata.json"

// Params fixes every value the five steps send to the ledger.
type Params struct {
	InitialBalance                types.Hbar `validate:"gte=0"`
	MaxAutomaticTokenAssociations int32      `validate:"gte=0,lte=5000"`

	DeployGas uint64 `validate:"gt=0"`

	// Token is checked when createNft is encoded, so a bad expiration fails
	// the CreateTokenType step rather than construction.
	Token          contracts.CreateNftParams `validate:"-"`
	CreateTokenGas uint64                    `validate:"gt=0"`
	PayableAmount  types.Hbar                `validate:"gte=0"`

	MintGas               uint64     `validate:"gt=0"`
	MintMaxTransactionFee types.Hbar `validate:"gt=0"`
	Metadata              [][]byte   `validate:"required,min=1"`

	TransferGas uint64 `validate:"gt=0"`
}

// DefaultParams returns the parameters of the reference collection.
func DefaultParams() Params {
	return Params{
		InitialBalance:                types.HbarFromTinybar(1000),
		MaxAutomaticTokenAssociations: 10,
		DeployGas:                     4_000_000,
		Token: contracts.CreateNftParams{
			Name:       "Fall Collection",
			Symbol:     "LEAF",
			Memo:       "Just a memo",
			MaxSupply:  250,
			Expiration: 7_000_000,
		},
		CreateTokenGas:        4_000_000,
		PayableAmount:         types.NewHbar(50),
		MintGas:               4_000_000,
		MintMaxTransactionFee: types.NewHbar(20),
		Metadata:              [][]byte{[]byte(DefaultMetadata)},
		TransferGas:           4_000_000,
	}
}

// BytecodeSource supplies the compiled contract deployed by DeployContract.
type BytecodeSource interface {
	Bytecode() ([]byte, error)
}

// FileBytecode reads bytecode from a file, as emitted by solc --bin.
type FileBytecode string

func (f FileBytecode) Bytecode() ([]byte, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, types.NewConfigError(err, "failed to read contract bytecode")
	}
	return bytes.TrimSpace(data), nil
}

// StaticBytecode is bytecode already in memory.
type StaticBytecode []byte

func (s StaticBytecode) Bytecode() ([]byte, error) {
	return s, nil
}
