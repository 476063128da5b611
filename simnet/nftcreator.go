package simnet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/nftsaga/contracts"
	"github.com/vitwit/nftsaga/types"
)

// responseSuccess is the ledger's numeric SUCCESS code, returned by
// transferNft.
const responseSuccess int64 = 22

const (
	createNftGas   = 350_000
	mintNftGas     = 250_000
	mintPerItemGas = 10_000
	transferNftGas = 150_000
)

// NFTCreator runs NFTCreator.sol against the ledger's token service.
type NFTCreator struct{}

var _ Program = NFTCreator{}

func (NFTCreator) Call(ctx *CallContext, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, revert(types.StatusContractRevertExecuted, "call data has no selector")
	}
	nftABI := contracts.ABI()
	method, err := nftABI.MethodById(input[:4])
	if err != nil {
		return nil, revert(types.StatusContractRevertExecuted, "unknown selector %x", input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, revert(types.StatusContractRevertExecuted, "bad arguments to %s: %v", method.Name, err)
	}

	var out any
	switch method.Name {
	case contracts.FuncCreateNft:
		out, err = createNft(ctx, args)
	case contracts.FuncMintNft:
		out, err = mintNft(ctx, args)
	case contracts.FuncTransferNft:
		out, err = transferNft(ctx, args)
	default:
		return nil, revert(types.StatusContractRevertExecuted, "%s is not implemented", method.Name)
	}
	if err != nil {
		return nil, err
	}

	result, err := method.Outputs.Pack(out)
	if err != nil {
		return nil, revert(types.StatusContractExecutionException, "cannot encode %s result: %v", method.Name, err)
	}
	return result, nil
}

func createNft(ctx *CallContext, args []any) (any, error) {
	if err := ctx.UseGas(createNftGas); err != nil {
		return nil, err
	}
	id, err := ctx.ledger.createToken(ctx, tokenSpec{
		name:            args[0].(string),
		symbol:          args[1].(string),
		memo:            args[2].(string),
		maxSupply:       args[3].(int64),
		autoRenewPeriod: args[4].(int64),
	})
	if err != nil {
		return nil, err
	}
	return id.SolidityAddress(), nil
}

func mintNft(ctx *CallContext, args []any) (any, error) {
	metadata := args[1].([][]byte)
	if err := ctx.UseGas(mintNftGas + mintPerItemGas*uint64(len(metadata))); err != nil {
		return nil, err
	}
	token := types.TokenID{EntityID: types.EntityIDFromSolidityAddress(args[0].(common.Address))}
	serial, err := ctx.ledger.mintNfts(ctx, token, metadata)
	if err != nil {
		return nil, err
	}
	return int64(serial), nil
}

func transferNft(ctx *CallContext, args []any) (any, error) {
	if err := ctx.UseGas(transferNftGas); err != nil {
		return nil, err
	}
	token := types.TokenID{EntityID: types.EntityIDFromSolidityAddress(args[0].(common.Address))}
	receiver := types.AccountID{EntityID: types.EntityIDFromSolidityAddress(args[1].(common.Address))}
	serial := types.SerialNumber(args[2].(int64))
	if err := ctx.ledger.transferNft(ctx, token, receiver, serial); err != nil {
		return nil, err
	}
	return responseSuccess, nil
}
