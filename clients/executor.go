package clients

import (
	"context"
	"time"

	"github.com/vitwit/nftsaga/logger"
	"github.com/vitwit/nftsaga/metrics"
	"github.com/vitwit/nftsaga/types"
	"github.com/vitwit/nftsaga/utils"
)

// PendingTransaction is a submission the ledger accepted but has not yet
// finalized.
type PendingTransaction struct {
	TransactionID types.TransactionID
	Kind          types.TransactionKind
	SubmittedAt   time.Time
}

// Executor submits transactions through a LedgerClient and waits for their
// outcome. It never retries.
type Executor struct {
	client  *LedgerClient
	logger  logger.Logger
	metrics metrics.Recorder
}

func NewExecutor(client *LedgerClient, log logger.Logger, rec metrics.Recorder) *Executor {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Executor{client: client, logger: log, metrics: rec}
}

// Execute validates tx, fills in the default fee ceiling and submits it.
// A context that is already done stops the submission before it is sent;
// cancelling ctx after that does not abort the submission.
func (e *Executor) Execute(ctx context.Context, tx types.Transaction) (*PendingTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewNetworkError(err, "%s not submitted", tx.Kind)
	}
	if err := tx.Validate(); err != nil {
		return nil, types.NewValidationError(err, "invalid %s transaction", tx.Kind)
	}
	if err := utils.ValidateStruct(tx.Body()); err != nil {
		return nil, err
	}
	if tx.MaxTransactionFee == 0 {
		tx = tx.WithMaxTransactionFee(e.client.FeeLimits().MaxTransactionFee)
	}

	labels := e.labels(tx.Kind)
	e.logger.Debug("submitting transaction", map[string]any{
		"kind":      string(tx.Kind),
		"network":   e.client.Network().String(),
		"max_fee":   tx.MaxTransactionFee.String(),
		"cosigners": len(tx.Signers),
	})

	// Past this point the ledger may accept tx, so the call runs to
	// completion even if ctx is cancelled.
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.client.receiptTimeout)
	defer cancel()

	start := time.Now()
	id, err := e.client.Backend().Submit(submitCtx, tx)
	e.metrics.ObserveLatency("submit", time.Since(start), labels)
	if err != nil {
		e.metrics.IncCounter("transactions_rejected", labels)
		e.logger.Error("transaction rejected", map[string]any{
			"kind":  string(tx.Kind),
			"error": err.Error(),
		})
		return nil, networkError(err, "submit "+string(tx.Kind))
	}
	e.metrics.IncCounter("transactions_submitted", labels)

	e.logger.Info("transaction submitted", map[string]any{
		"kind":           string(tx.Kind),
		"transaction_id": id.String(),
	})
	return &PendingTransaction{TransactionID: id, Kind: tx.Kind, SubmittedAt: start}, nil
}

// AwaitReceipt waits for consensus on p. The wait is not cut short by ctx
// cancellation; it ends at finality or the client's receipt timeout.
func (e *Executor) AwaitReceipt(ctx context.Context, p *PendingTransaction) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := e.await(ctx, p, "await_receipt", func(ctx context.Context) (types.Status, error) {
		r, err := e.client.Backend().Receipt(ctx, p.TransactionID)
		if err != nil {
			return "", err
		}
		receipt = r
		return r.Status, nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// AwaitRecord waits for consensus on p and returns its full record.
func (e *Executor) AwaitRecord(ctx context.Context, p *PendingTransaction) (*types.Record, error) {
	var record *types.Record
	err := e.await(ctx, p, "await_record", func(ctx context.Context) (types.Status, error) {
		r, err := e.client.Backend().Record(ctx, p.TransactionID)
		if err != nil {
			return "", err
		}
		record = r
		return r.Receipt.Status, nil
	})
	if err != nil {
		if le, ok := types.IsTransactionFailed(err); ok && record != nil && record.CallResult != nil && record.CallResult.ErrorMessage != "" {
			le.Message += ": " + record.CallResult.ErrorMessage
		}
		return nil, err
	}
	return record, nil
}

func (e *Executor) await(ctx context.Context, p *PendingTransaction, op string, poll func(context.Context) (types.Status, error)) error {
	if p == nil || p.TransactionID.IsZero() {
		return types.NewValidationError(nil, "no pending transaction to await")
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.client.receiptTimeout)
	defer cancel()

	labels := e.labels(p.Kind)
	start := time.Now()
	defer func() {
		e.metrics.ObserveLatency(op, time.Since(start), labels)
	}()

	ticker := time.NewTicker(e.client.pollInterval)
	defer ticker.Stop()

	for {
		status, err := poll(waitCtx)
		if err != nil {
			e.metrics.IncCounter("transactions_failed", labels)
			return networkError(err, "await "+p.TransactionID.String())
		}
		if !status.IsPending() {
			if !status.IsSuccess() {
				e.metrics.IncCounter("transactions_failed", labels)
				e.logger.Error("transaction failed", map[string]any{
					"kind":           string(p.Kind),
					"transaction_id": p.TransactionID.String(),
					"status":         status.String(),
				})
				return types.NewTransactionFailedError(status, "%s transaction %s failed", p.Kind, p.TransactionID)
			}
			e.metrics.IncCounter("transactions_succeeded", labels)
			return nil
		}

		select {
		case <-waitCtx.Done():
			e.metrics.IncCounter("transactions_failed", labels)
			return types.NewNetworkError(waitCtx.Err(), "no consensus on %s within %s", p.TransactionID, e.client.receiptTimeout)
		case <-ticker.C:
		}
	}
}

func (e *Executor) labels(kind types.TransactionKind) map[string]string {
	return map[string]string{
		"network": e.client.Network().String(),
		"kind":    string(kind),
	}
}
