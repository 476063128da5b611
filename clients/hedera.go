package clients

import (
	"context"
	"errors"
	"sync"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/vitwit/nftsaga/types"
)

// HederaClient submits transactions to a public Hedera network through the
// SDK's gRPC channel. The operator key stays in this process: the SDK gets
// a signing callback, never the key.
type HederaClient struct {
	network  types.Network
	client   *hedera.Client
	operator Operator

	mu        sync.Mutex
	responses map[string]hedera.TransactionResponse
}

var _ Ledger = (*HederaClient)(nil)

func NewHederaClient(network types.Network, operator Operator) (*HederaClient, error) {
	if !network.IsHedera() {
		return nil, types.NewConfigError(nil, "%s is not a Hedera network", network)
	}

	client, err := hedera.ClientForName(network.String())
	if err != nil {
		return nil, types.NewConfigError(err, "failed to create client for %s", network)
	}

	operatorID, err := hedera.AccountIDFromString(operator.AccountID.String())
	if err != nil {
		client.Close()
		return nil, types.NewConfigError(err, "operator account id is malformed")
	}
	operatorKey, err := toHederaPublicKey(operator.PublicKey())
	if err != nil {
		client.Close()
		return nil, types.NewConfigError(err, "operator key is unusable")
	}
	client.SetOperatorWith(operatorID, operatorKey, operator.Key.Sign)

	return &HederaClient{
		network:   network,
		client:    client,
		operator:  operator,
		responses: make(map[string]hedera.TransactionResponse),
	}, nil
}

func (h *HederaClient) Submit(ctx context.Context, tx types.Transaction) (types.TransactionID, error) {
	if err := ctx.Err(); err != nil {
		return types.TransactionID{}, types.NewNetworkError(err, "submission cancelled")
	}

	var (
		resp hedera.TransactionResponse
		err  error
	)
	switch tx.Kind {
	case types.KindAccountCreate:
		resp, err = h.submitAccountCreate(tx)
	case types.KindContractCreate:
		resp, err = h.submitContractCreate(tx)
	case types.KindContractCall:
		resp, err = h.submitContractCall(tx)
	default:
		return types.TransactionID{}, types.NewValidationError(nil, "unsupported transaction kind %q", tx.Kind)
	}
	if err != nil {
		return types.TransactionID{}, fromHederaError(err, "submit "+string(tx.Kind))
	}

	id := fromHederaTransactionID(resp.TransactionID)
	h.mu.Lock()
	h.responses[id.String()] = resp
	h.mu.Unlock()
	return id, nil
}

func (h *HederaClient) submitAccountCreate(tx types.Transaction) (hedera.TransactionResponse, error) {
	b := tx.AccountCreate
	key, err := toHederaPublicKey(b.Key)
	if err != nil {
		return hedera.TransactionResponse{}, types.NewValidationError(err, "account key is unusable")
	}

	t := hedera.NewAccountCreateTransaction().
		SetKey(key).
		SetInitialBalance(toHbar(b.InitialBalance)).
		SetMaxAutomaticTokenAssociations(b.MaxAutomaticTokenAssociations).
		SetTransactionMemo(tx.Memo).
		SetMaxTransactionFee(toHbar(tx.MaxTransactionFee))

	if len(tx.Signers) == 0 {
		return t.Execute(h.client)
	}
	frozen, err := t.FreezeWith(h.client)
	if err != nil {
		return hedera.TransactionResponse{}, err
	}
	if err := cosign(tx.Signers, func(pub hedera.PublicKey, sign hedera.TransactionSigner) {
		frozen.SignWith(pub, sign)
	}); err != nil {
		return hedera.TransactionResponse{}, err
	}
	return frozen.Execute(h.client)
}

// The create flow uploads bytecode through a file and cannot carry extra
// signatures; its fee ceiling is the client default.
func (h *HederaClient) submitContractCreate(tx types.Transaction) (hedera.TransactionResponse, error) {
	if len(tx.Signers) > 0 {
		return hedera.TransactionResponse{}, types.NewValidationError(nil, "contract creation does not accept co-signers")
	}
	b := tx.ContractCreate
	return hedera.NewContractCreateFlow().
		SetBytecode(b.Bytecode).
		SetGas(int64(b.Gas)).
		SetContractMemo(tx.Memo).
		Execute(h.client)
}

func (h *HederaClient) submitContractCall(tx types.Transaction) (hedera.TransactionResponse, error) {
	b := tx.ContractCall
	contractID, err := hedera.ContractIDFromString(b.ContractID.String())
	if err != nil {
		return hedera.TransactionResponse{}, types.NewValidationError(err, "contract id is malformed")
	}

	t := hedera.NewContractExecuteTransaction().
		SetContractID(contractID).
		SetGas(b.Gas).
		SetPayableAmount(toHbar(b.PayableAmount)).
		SetFunctionParameters(b.FunctionParameters).
		SetTransactionMemo(tx.Memo).
		SetMaxTransactionFee(toHbar(tx.MaxTransactionFee))

	if len(tx.Signers) == 0 {
		return t.Execute(h.client)
	}
	frozen, err := t.FreezeWith(h.client)
	if err != nil {
		return hedera.TransactionResponse{}, err
	}
	if err := cosign(tx.Signers, func(pub hedera.PublicKey, sign hedera.TransactionSigner) {
		frozen.SignWith(pub, sign)
	}); err != nil {
		return hedera.TransactionResponse{}, err
	}
	return frozen.Execute(h.client)
}

func cosign(signers []types.Signer, signWith func(hedera.PublicKey, hedera.TransactionSigner)) error {
	for _, s := range signers {
		pub, err := toHederaPublicKey(s.PublicKey())
		if err != nil {
			return types.NewValidationError(err, "co-signer key is unusable")
		}
		signWith(pub, s.Sign)
	}
	return nil
}

// Receipt blocks in the SDK until consensus or until ctx ends, whichever is
// first. A failed transaction yields a receipt carrying its status, not an
// error.
func (h *HederaClient) Receipt(ctx context.Context, id types.TransactionID) (*types.Receipt, error) {
	resp, err := h.response(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt, err := untilDone(ctx, "receipt query", func() (hedera.TransactionReceipt, error) {
		return resp.GetReceipt(h.client)
	})
	var failed hedera.ErrHederaReceiptStatus
	if errors.As(err, &failed) {
		return &types.Receipt{TransactionID: id, Status: types.Status(failed.Status.String())}, nil
	}
	if err != nil {
		return nil, fromHederaError(err, "receipt query")
	}
	return fromHederaReceipt(id, receipt), nil
}

// Record uses the client's default max query payment. Like Receipt it
// stops waiting when ctx ends.
func (h *HederaClient) Record(ctx context.Context, id types.TransactionID) (*types.Record, error) {
	resp, err := h.response(ctx, id)
	if err != nil {
		return nil, err
	}

	record, err := untilDone(ctx, "record query", func() (hedera.TransactionRecord, error) {
		return resp.GetRecord(h.client)
	})
	var failed hedera.ErrHederaReceiptStatus
	if errors.As(err, &failed) {
		return &types.Record{Receipt: types.Receipt{TransactionID: id, Status: types.Status(failed.Status.String())}}, nil
	}
	if err != nil {
		return nil, fromHederaError(err, "record query")
	}

	out := &types.Record{
		Receipt:            *fromHederaReceipt(id, record.Receipt),
		ConsensusTimestamp: record.ConsensusTimestamp,
		TransactionFee:     types.HbarFromTinybar(record.TransactionFee.AsTinybar()),
	}
	if result, err := record.GetContractExecuteResult(); err == nil {
		call := &types.ContractFunctionResult{
			Result:       result.ContractCallResult,
			GasUsed:      result.GasUsed,
			ErrorMessage: result.ErrorMessage,
		}
		if result.ContractID != nil {
			call.ContractID = types.ContractID{EntityID: types.EntityID{
				Shard: int64(result.ContractID.Shard),
				Realm: int64(result.ContractID.Realm),
				Num:   int64(result.ContractID.Contract),
			}}
		}
		out.CallResult = call
	}
	return out, nil
}

// untilDone runs a blocking SDK query and returns early with a NetworkError
// once ctx is done. The abandoned query finishes in the background.
func untilDone[T any](ctx context.Context, op string, query func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := query()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, types.NewNetworkError(ctx.Err(), "%s abandoned", op)
	}
}

func (h *HederaClient) response(ctx context.Context, id types.TransactionID) (hedera.TransactionResponse, error) {
	if err := ctx.Err(); err != nil {
		return hedera.TransactionResponse{}, types.NewNetworkError(err, "query for %s cancelled", id)
	}
	h.mu.Lock()
	resp, ok := h.responses[id.String()]
	h.mu.Unlock()
	if !ok {
		return hedera.TransactionResponse{}, types.NewPrecheckError(types.StatusReceiptNotFound, "transaction "+id.String()+" was not submitted by this client")
	}
	return resp, nil
}

func (h *HederaClient) ApplyFeeLimits(limits types.FeeLimits) error {
	if err := h.client.SetDefaultMaxTransactionFee(toHbar(limits.MaxTransactionFee)); err != nil {
		return types.NewValidationError(err, "invalid default max transaction fee")
	}
	if err := h.client.SetDefaultMaxQueryPayment(toHbar(limits.MaxQueryPayment)); err != nil {
		return types.NewValidationError(err, "invalid default max query payment")
	}
	return nil
}

func (h *HederaClient) GetNetwork() types.Network {
	return h.network
}

func (h *HederaClient) Close() {
	_ = h.client.Close()
}

func toHbar(h types.Hbar) hedera.Hbar {
	return hedera.HbarFromTinybar(h.Tinybars())
}

func toHederaPublicKey(pub types.PublicKey) (hedera.PublicKey, error) {
	switch pub.Scheme {
	case types.SchemeED25519:
		return hedera.PublicKeyFromBytesEd25519(pub.Key)
	case types.SchemeECDSASecp256k1:
		return hedera.PublicKeyFromBytesECDSA(pub.Key)
	default:
		return hedera.PublicKey{}, types.NewValidationError(nil, "unsupported key scheme %q", pub.Scheme)
	}
}

func fromHederaTransactionID(id hedera.TransactionID) types.TransactionID {
	var out types.TransactionID
	if id.AccountID != nil {
		out.AccountID = types.AccountID{EntityID: types.EntityID{
			Shard: int64(id.AccountID.Shard),
			Realm: int64(id.AccountID.Realm),
			Num:   int64(id.AccountID.Account),
		}}
	}
	if id.ValidStart != nil {
		out.ValidStart = id.ValidStart.UTC()
	}
	return out
}

func fromHederaReceipt(id types.TransactionID, r hedera.TransactionReceipt) *types.Receipt {
	out := &types.Receipt{TransactionID: id, Status: types.Status(r.Status.String())}
	if r.AccountID != nil {
		out.AccountID = &types.AccountID{EntityID: types.EntityID{
			Shard: int64(r.AccountID.Shard), Realm: int64(r.AccountID.Realm), Num: int64(r.AccountID.Account),
		}}
	}
	if r.ContractID != nil {
		out.ContractID = &types.ContractID{EntityID: types.EntityID{
			Shard: int64(r.ContractID.Shard), Realm: int64(r.ContractID.Realm), Num: int64(r.ContractID.Contract),
		}}
	}
	if r.TokenID != nil {
		out.TokenID = &types.TokenID{EntityID: types.EntityID{
			Shard: int64(r.TokenID.Shard), Realm: int64(r.TokenID.Realm), Num: int64(r.TokenID.Token),
		}}
	}
	for _, s := range r.SerialNumbers {
		out.Serials = append(out.Serials, types.SerialNumber(s))
	}
	return out
}
