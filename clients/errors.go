package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/vitwit/nftsaga/types"
)

// fromRPCError classifies a JSON-RPC failure. Ledger refusals carry their
// status in the error data; anything else is a transport failure.
func fromRPCError(err error, op string) error {
	if err == nil {
		return nil
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if status, ok := dataErr.ErrorData().(string); ok && status != "" {
			return types.NewPrecheckError(types.Status(status), fmt.Sprintf("%s refused: %s", op, err.Error()))
		}
	}
	return networkError(err, op)
}

// fromHederaError classifies an SDK failure the same way.
func fromHederaError(err error, op string) error {
	if err == nil {
		return nil
	}
	var precheck hedera.ErrHederaPreCheckStatus
	if errors.As(err, &precheck) {
		return types.NewPrecheckError(types.Status(precheck.Status.String()), fmt.Sprintf("%s refused", op))
	}
	return networkError(err, op)
}

func networkError(err error, op string) error {
	if le, ok := types.AsLedgerError(err); ok {
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewNetworkError(err, "%s timed out", op)
	}
	return types.NewNetworkError(err, "%s failed", op)
}
