// Package contracts holds the ABI boundary of the NFT creator contract: call
// data packing for createNft, mintNft and transferNft, and decoding of their
// results.
package contracts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/nftsaga/types"
	"github.com/vitwit/nftsaga/utils"
)

// NFTCreatorABI is the interface of NFTCreator.sol.
const NFTCreatorABI = `[
	{
		"type": "function",
		"name": "createNft",
		"stateMutability": "payable",
		"inputs": [
			{"name": "name", "type": "string"},
			{"name": "symbol", "type": "string"},
			{"name": "memo", "type": "string"},
			{"name": "maxSupply", "type": "int64"},
			{"name": "autoRenewPeriod", "type": "int64"}
		],
		"outputs": [{"name": "", "type": "address"}]
	},
	{
		"type": "function",
		"name": "mintNft",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "token", "type": "address"},
			{"name": "metadata", "type": "bytes[]"}
		],
		"outputs": [{"name": "", "type": "int64"}]
	},
	{
		"type": "function",
		"name": "transferNft",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "token", "type": "address"},
			{"name": "receiver", "type": "address"},
			{"name": "serial", "type": "int64"}
		],
		"outputs": [{"name": "", "type": "int64"}]
	}
]`

const (
	FuncCreateNft   = "createNft"
	FuncMintNft     = "mintNft"
	FuncTransferNft = "transferNft"
)

// Expiration bounds accepted by createNft, in seconds. MaxExpiration is
// exclusive.
const (
	MinExpiration int64 = 6999999
	MaxExpiration int64 = 8000001
)

var (
	parsedABI abi.ABI
	parseOnce sync.Once
)

// ABI returns the parsed NFT creator interface.
func ABI() abi.ABI {
	parseOnce.Do(func() {
		var err error
		parsedABI, err = abi.JSON(strings.NewReader(NFTCreatorABI))
		if err != nil {
			panic(fmt.Sprintf("contracts: invalid NFT creator ABI: %v", err))
		}
	})
	return parsedABI
}

// CreateNftParams are the arguments of createNft.
type CreateNftParams struct {
	Name       string `yaml:"name" json:"name" validate:"required,max=100"`
	Symbol     string `yaml:"symbol" json:"symbol" validate:"required,max=100"`
	Memo       string `yaml:"memo" json:"memo" validate:"max=100"`
	MaxSupply  int64  `yaml:"maxSupply" json:"maxSupply" validate:"gt=0"`
	Expiration int64  `yaml:"expiration" json:"expiration" validate:"gte=6999999,lt=8000001"`
}

type MintNftParams struct {
	Token    common.Address
	Metadata [][]byte `validate:"required,min=1,dive,required,max=100"`
}

type TransferNftParams struct {
	Token    common.Address
	Receiver common.Address
	Serial   int64 `validate:"gte=1"`
}

// PackCreateNft validates p and returns selector-prefixed call data.
func PackCreateNft(p CreateNftParams) ([]byte, error) {
	if err := utils.ValidateStruct(p); err != nil {
		return nil, err
	}
	return pack(FuncCreateNft, p.Name, p.Symbol, p.Memo, p.MaxSupply, p.Expiration)
}

func PackMintNft(p MintNftParams) ([]byte, error) {
	if p.Token == (common.Address{}) {
		return nil, types.NewValidationError(nil, "mintNft requires a token address")
	}
	if err := utils.ValidateStruct(p); err != nil {
		return nil, err
	}
	return pack(FuncMintNft, p.Token, p.Metadata)
}

func PackTransferNft(p TransferNftParams) ([]byte, error) {
	if p.Token == (common.Address{}) || p.Receiver == (common.Address{}) {
		return nil, types.NewValidationError(nil, "transferNft requires token and receiver addresses")
	}
	if err := utils.ValidateStruct(p); err != nil {
		return nil, err
	}
	return pack(FuncTransferNft, p.Token, p.Receiver, p.Serial)
}

func pack(method string, args ...any) ([]byte, error) {
	data, err := ABI().Pack(method, args...)
	if err != nil {
		return nil, types.NewValidationError(err, "failed to encode %s call", method)
	}
	return data, nil
}

// UnpackCreateNft decodes the token address returned by createNft.
func UnpackCreateNft(result []byte) (common.Address, error) {
	out, err := unpack(FuncCreateNft, result)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("createNft returned %T, want address", out)
	}
	return addr, nil
}

// UnpackMintNft decodes the first serial number returned by mintNft.
func UnpackMintNft(result []byte) (int64, error) {
	return unpackInt64(FuncMintNft, result)
}

// UnpackTransferNft decodes the response code returned by transferNft.
func UnpackTransferNft(result []byte) (int64, error) {
	return unpackInt64(FuncTransferNft, result)
}

func unpackInt64(method string, result []byte) (int64, error) {
	out, err := unpack(method, result)
	if err != nil {
		return 0, err
	}
	v, ok := out.(int64)
	if !ok {
		return 0, fmt.Errorf("%s returned %T, want int64", method, out)
	}
	return v, nil
}

func unpack(method string, result []byte) (any, error) {
	if len(result) == 0 {
		return nil, fmt.Errorf("%s returned no data", method)
	}
	out, err := ABI().Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values, want 1", method, len(out))
	}
	return out[0], nil
}
