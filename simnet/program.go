package simnet

import (
	"errors"
	"fmt"

	"github.com/vitwit/nftsaga/types"
)

// Program runs the calls made to a deployed contract. It executes with the
// ledger lock held and must not call back into exported Ledger methods.
type Program interface {
	Call(ctx *CallContext, input []byte) ([]byte, error)
}

// CallContext is the view a Program gets of the call being executed.
type CallContext struct {
	ledger   *Ledger
	signedBy map[string]bool
	gasUsed  uint64

	Contract types.ContractID
	Payer    types.AccountID
	Payable  types.Hbar
	Gas      uint64
}

// UseGas consumes gas, failing with INSUFFICIENT_GAS past the call's offer.
func (c *CallContext) UseGas(units uint64) error {
	if c.gasUsed+units > c.Gas {
		c.gasUsed = c.Gas
		return revert(types.StatusInsufficientGas, "call needs more than %d gas", c.Gas)
	}
	c.gasUsed += units
	return nil
}

// SignedBy reports whether key signed the transaction carrying the call.
func (c *CallContext) SignedBy(key types.PublicKey) bool {
	return c.signedBy[key.String()]
}

type executionError struct {
	status types.Status
	msg    string
}

func (e *executionError) Error() string {
	return e.msg
}

func revert(status types.Status, format string, args ...any) error {
	return &executionError{status: status, msg: fmt.Sprintf(format, args...)}
}

func statusOf(err error) types.Status {
	var ee *executionError
	if errors.As(err, &ee) {
		return ee.status
	}
	return types.StatusContractExecutionException
}
