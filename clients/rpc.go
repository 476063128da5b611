package clients

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/vitwit/nftsaga/types"
	"github.com/vitwit/nftsaga/utils"
)

const (
	methodSubmitTransaction = "ledger_submitTransaction"
	methodGetReceipt        = "ledger_getReceipt"
	methodGetRecord         = "ledger_getRecord"
)

// RPCClient reaches a ledger over go-ethereum JSON-RPC. It signs the exact
// JSON body bytes it sends: the operator first, then each co-signer.
type RPCClient struct {
	network  types.Network
	conn     *rpc.Client
	operator Operator
	now      func() time.Time

	mu        sync.Mutex
	limits    types.FeeLimits
	lastStart time.Time
}

var _ Ledger = (*RPCClient)(nil)

// NewRPCClient dials url. HTTP endpoints are dialed lazily.
func NewRPCClient(network types.Network, url string, operator Operator) (*RPCClient, error) {
	conn, err := rpc.Dial(url)
	if err != nil {
		return nil, types.NewConfigError(err, "failed to dial ledger at %s", url)
	}
	return NewRPCClientWithConn(network, conn, operator), nil
}

// NewRPCClientWithConn uses an established connection, e.g. rpc.DialInProc.
func NewRPCClientWithConn(network types.Network, conn *rpc.Client, operator Operator) *RPCClient {
	return &RPCClient{
		network:  network,
		conn:     conn,
		operator: operator,
		now:      time.Now,
	}
}

func (r *RPCClient) Submit(ctx context.Context, tx types.Transaction) (types.TransactionID, error) {
	r.mu.Lock()
	fee := tx.MaxTransactionFee
	if fee == 0 {
		fee = r.limits.MaxTransactionFee
	}
	id := r.nextTransactionID()
	r.mu.Unlock()

	bodyBytes, err := utils.SerializeTransactionBody(types.NewTransactionBody(tx, id, fee))
	if err != nil {
		return types.TransactionID{}, err
	}

	signed := types.SignedTransaction{BodyBytes: bodyBytes}
	signed.Signatures = append(signed.Signatures, types.SignaturePair{
		PublicKey: r.operator.PublicKey(),
		Signature: r.operator.Key.Sign(bodyBytes),
	})
	for _, s := range tx.Signers {
		signed.Signatures = append(signed.Signatures, types.SignaturePair{
			PublicKey: s.PublicKey(),
			Signature: s.Sign(bodyBytes),
		})
	}

	var got types.TransactionID
	if err := r.conn.CallContext(ctx, &got, methodSubmitTransaction, signed); err != nil {
		return types.TransactionID{}, fromRPCError(err, "submit "+string(tx.Kind))
	}
	return got, nil
}

// nextTransactionID returns a valid start strictly after the previous one so
// two submissions never share an id. Callers hold r.mu.
func (r *RPCClient) nextTransactionID() types.TransactionID {
	start := r.now().UTC().Truncate(time.Nanosecond)
	if !start.After(r.lastStart) {
		start = r.lastStart.Add(time.Nanosecond)
	}
	r.lastStart = start
	return types.NewTransactionID(r.operator.AccountID, start)
}

func (r *RPCClient) Receipt(ctx context.Context, id types.TransactionID) (*types.Receipt, error) {
	var receipt types.Receipt
	if err := r.conn.CallContext(ctx, &receipt, methodGetReceipt, id); err != nil {
		return nil, fromRPCError(err, "receipt query")
	}
	return &receipt, nil
}

func (r *RPCClient) Record(ctx context.Context, id types.TransactionID) (*types.Record, error) {
	r.mu.Lock()
	ceiling := r.limits.MaxQueryPayment
	r.mu.Unlock()

	var record types.Record
	if err := r.conn.CallContext(ctx, &record, methodGetRecord, id, ceiling.Tinybars()); err != nil {
		return nil, fromRPCError(err, "record query")
	}
	return &record, nil
}

func (r *RPCClient) ApplyFeeLimits(limits types.FeeLimits) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = limits
	return nil
}

func (r *RPCClient) GetNetwork() types.Network {
	return r.network
}

func (r *RPCClient) Close() {
	r.conn.Close()
}
