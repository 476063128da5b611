package simnet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/vitwit/nftsaga/types"
)

// Namespace is the JSON-RPC namespace the ledger methods are served under.
const Namespace = "ledger"

// statusErrorCode is the JSON-RPC error code of every ledger refusal.
const statusErrorCode = -32000

// StatusError is a ledger refusal. Over JSON-RPC the status travels as the
// error's data field.
type StatusError struct {
	Status  types.Status
	Message string
}

func newStatusError(status types.Status, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *StatusError) Error() string {
	return e.Message
}

func (e *StatusError) ErrorCode() int {
	return statusErrorCode
}

func (e *StatusError) ErrorData() interface{} {
	return e.Status.String()
}

var (
	_ rpc.Error     = (*StatusError)(nil)
	_ rpc.DataError = (*StatusError)(nil)
)

// Service exposes a Ledger as ledger_* JSON-RPC methods.
type Service struct {
	ledger *Ledger
}

func NewService(l *Ledger) *Service {
	return &Service{ledger: l}
}

// SubmitTransaction serves ledger_submitTransaction.
func (s *Service) SubmitTransaction(_ context.Context, tx types.SignedTransaction) (types.TransactionID, error) {
	return s.ledger.Submit(tx)
}

// GetReceipt serves ledger_getReceipt.
func (s *Service) GetReceipt(_ context.Context, id types.TransactionID) (*types.Receipt, error) {
	return s.ledger.Receipt(id)
}

// GetRecord serves ledger_getRecord. The ceiling is in tinybars.
func (s *Service) GetRecord(_ context.Context, id types.TransactionID, maxQueryPayment int64) (*types.Record, error) {
	return s.ledger.Record(id, types.HbarFromTinybar(maxQueryPayment))
}

// GetAccountBalance serves ledger_getAccountBalance.
func (s *Service) GetAccountBalance(_ context.Context, id types.AccountID) (types.Hbar, error) {
	info, ok := s.ledger.Account(id)
	if !ok {
		return 0, newStatusError(types.StatusInvalidAccountID, "account %s not found", id)
	}
	return info.Balance, nil
}

// NewServer returns a JSON-RPC server with the ledger registered. The server
// doubles as an http.Handler.
func NewServer(l *Ledger) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(Namespace, NewService(l)); err != nil {
		return nil, fmt.Errorf("failed to register ledger service: %w", err)
	}
	return srv, nil
}
