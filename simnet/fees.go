package simnet

import "github.com/vitwit/nftsaga/types"

// FeeSchedule prices every operation the simulated ledger accepts.
type FeeSchedule struct {
	AccountCreate  types.Hbar
	ContractCreate types.Hbar
	ContractCall   types.Hbar
	// GasPrice is charged per unit of gas, in tinybars.
	GasPrice    types.Hbar
	RecordQuery types.Hbar
	// TokenCreate is paid by the contract out of the call's payable amount.
	TokenCreate types.Hbar
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		AccountCreate:  types.HbarFromTinybar(5_000_000),
		ContractCreate: types.NewHbar(1),
		ContractCall:   types.HbarFromTinybar(10_000_000),
		GasPrice:       types.HbarFromTinybar(100),
		RecordQuery:    types.HbarFromTinybar(100_000),
		TokenCreate:    types.NewHbar(20),
	}
}

// MaxFee is the most a body can be charged: its base fee plus every unit of
// gas it offers.
func (f FeeSchedule) MaxFee(body types.TransactionBody) types.Hbar {
	switch {
	case body.AccountCreate != nil:
		return f.AccountCreate
	case body.ContractCreate != nil:
		return f.ContractCreate + f.gas(body.ContractCreate.Gas)
	case body.ContractCall != nil:
		return f.ContractCall + f.gas(body.ContractCall.Gas)
	default:
		return 0
	}
}

func (f FeeSchedule) gas(units uint64) types.Hbar {
	return types.Hbar(int64(units)) * f.GasPrice
}

// deployGas is the gas a contract creation consumes for its bytecode.
func deployGas(bytecode []byte) uint64 {
	return 300_000 + 200*uint64(len(bytecode))
}
