package simnet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/nftsaga/keys"
	"github.com/vitwit/nftsaga/simnet"
	"github.com/vitwit/nftsaga/types"
)

func dial(t *testing.T, h *harness) *rpc.Client {
	t.Helper()
	srv, err := simnet.NewServer(h.ledger)
	require.NoError(t, err)
	conn := rpc.DialInProc(srv)
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
	})
	return conn
}

func TestServiceRoundTrip(t *testing.T) {
	h := newHarness(t)
	conn := dial(t, h)
	ctx := context.Background()

	key, err := keys.GenerateED25519()
	require.NoError(t, err)
	signed := h.sign(h.body(operatorID, types.NewAccountCreate(key.PublicKey(), types.HbarFromTinybar(1000), 10), maxFee), h.operator)

	var id types.TransactionID
	require.NoError(t, conn.CallContext(ctx, &id, "ledger_submitTransaction", signed))

	var receipt types.Receipt
	require.NoError(t, conn.CallContext(ctx, &receipt, "ledger_getReceipt", id))
	assert.Equal(t, id.String(), receipt.TransactionID.String())
	assert.Equal(t, types.StatusUnknown, receipt.Status)

	h.settle(id)
	require.NoError(t, conn.CallContext(ctx, &receipt, "ledger_getReceipt", id))
	assert.Equal(t, types.StatusSuccess, receipt.Status)
	require.NotNil(t, receipt.AccountID)

	var record types.Record
	require.NoError(t, conn.CallContext(ctx, &record, "ledger_getRecord", id, types.NewHbar(1).Tinybars()))
	assert.Equal(t, h.ledger.Fees().AccountCreate, record.TransactionFee)

	var balance types.Hbar
	require.NoError(t, conn.CallContext(ctx, &balance, "ledger_getAccountBalance", *receipt.AccountID))
	assert.Equal(t, types.HbarFromTinybar(1000), balance)
}

func TestServiceRefusalCarriesStatus(t *testing.T) {
	h := newHarness(t)
	conn := dial(t, h)

	var id types.TransactionID
	err := conn.CallContext(context.Background(), &id, "ledger_submitTransaction", types.SignedTransaction{BodyBytes: []byte("{")})
	require.Error(t, err)

	var dataErr rpc.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, string(types.StatusBadEncoding), dataErr.ErrorData())

	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32000, rpcErr.ErrorCode())
}
