// Package clients connects to a ledger as an operator account and drives
// transactions through it. A LedgerClient pairs the operator with a Ledger
// backend: HederaClient for the public networks, RPCClient for the
// simulated ledger. The Executor submits transactions and waits for their
// finality.
package clients

import (
	"context"
	"sync"
	"time"

	"github.com/vitwit/nftsaga/keys"
	"github.com/vitwit/nftsaga/types"
)

const (
	defaultMaxTransactionFee = 2 * types.TinybarsPerHbar
	defaultMaxQueryPayment   = 1 * types.TinybarsPerHbar
	defaultReceiptTimeout    = 2 * time.Minute
	defaultPollInterval      = 250 * time.Millisecond
)

// Ledger is a network backend. Submit receives transactions whose fee
// ceiling is already resolved. Receipt and Record may report a pending
// status; callers poll.
type Ledger interface {
	Submit(ctx context.Context, tx types.Transaction) (types.TransactionID, error)
	Receipt(ctx context.Context, id types.TransactionID) (*types.Receipt, error)
	Record(ctx context.Context, id types.TransactionID) (*types.Record, error)
	ApplyFeeLimits(limits types.FeeLimits) error
	GetNetwork() types.Network
	Close()
}

// Operator is the account paying for and first signing every transaction.
type Operator struct {
	AccountID types.AccountID
	Key       keys.PrivateKey
}

func (o Operator) PublicKey() types.PublicKey {
	return o.Key.PublicKey()
}

// ParseOperator validates operator credentials. Errors never include the
// key text.
func ParseOperator(accountID, privateKey string) (Operator, error) {
	if accountID == "" {
		return Operator{}, types.NewConfigError(nil, "operator account id is required")
	}
	if privateKey == "" {
		return Operator{}, types.NewConfigError(nil, "operator private key is required")
	}

	id, err := types.ParseAccountID(accountID)
	if err != nil || id.IsZero() {
		return Operator{}, types.NewConfigError(err, "operator account id %q is malformed", accountID)
	}
	key, err := keys.ParsePrivateKey(privateKey)
	if err != nil {
		return Operator{}, types.NewConfigError(err, "operator private key is malformed")
	}
	return Operator{AccountID: id, Key: key}, nil
}

// LedgerClient is an authenticated session with one ledger.
type LedgerClient struct {
	backend  Ledger
	operator Operator

	mu     sync.RWMutex
	limits types.FeeLimits

	receiptTimeout time.Duration
	pollInterval   time.Duration
}

type ClientOption func(*LedgerClient)

// WithReceiptTimeout bounds how long the executor waits for finality.
func WithReceiptTimeout(d time.Duration) ClientOption {
	return func(c *LedgerClient) {
		if d > 0 {
			c.receiptTimeout = d
		}
	}
}

func WithPollInterval(d time.Duration) ClientOption {
	return func(c *LedgerClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewLedgerClient wraps an existing backend.
func NewLedgerClient(backend Ledger, operator Operator, opts ...ClientOption) (*LedgerClient, error) {
	if backend == nil {
		return nil, types.NewConfigError(nil, "ledger backend is required")
	}
	if operator.AccountID.IsZero() || operator.Key.IsZero() {
		return nil, types.NewConfigError(nil, "operator account and key are required")
	}

	c := &LedgerClient{
		backend:  backend,
		operator: operator,
		limits: types.FeeLimits{
			MaxTransactionFee: defaultMaxTransactionFee,
			MaxQueryPayment:   defaultMaxQueryPayment,
		},
		receiptTimeout: defaultReceiptTimeout,
		pollInterval:   defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := backend.ApplyFeeLimits(c.limits); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect builds a client for cfg.Network authenticated as the configured
// operator. Configuration problems surface here as ConfigError; no
// transaction is sent.
func Connect(cfg types.ClientConfig) (*LedgerClient, error) {
	operator, err := ParseOperator(cfg.OperatorID, cfg.OperatorKey)
	if err != nil {
		return nil, err
	}

	network := cfg.Network
	if network == "" {
		network = types.NetworkTestnet
	}

	var backend Ledger
	switch {
	case network.IsHedera():
		backend, err = NewHederaClient(network, operator)
	case network.IsSimulated():
		if cfg.RPCURL == "" {
			return nil, types.NewConfigError(nil, "network %s requires an rpc url", network)
		}
		backend, err = NewRPCClient(network, cfg.RPCURL, operator)
	default:
		return nil, types.NewConfigError(nil, "unsupported network %q", network)
	}
	if err != nil {
		return nil, err
	}

	client, err := NewLedgerClient(backend, operator,
		WithReceiptTimeout(cfg.ReceiptTimeout),
		WithPollInterval(cfg.PollInterval),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	if cfg.MaxTransactionFee != 0 {
		if err := client.SetDefaultMaxTransactionFee(cfg.MaxTransactionFee); err != nil {
			client.Close()
			return nil, err
		}
	}
	if cfg.MaxQueryPayment != 0 {
		if err := client.SetDefaultMaxQueryPayment(cfg.MaxQueryPayment); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

// SetDefaultMaxTransactionFee sets the ceiling used by transactions that do
// not carry their own.
func (c *LedgerClient) SetDefaultMaxTransactionFee(fee types.Hbar) error {
	if fee <= 0 {
		return types.NewValidationError(nil, "default max transaction fee must be positive, got %s", fee)
	}
	return c.updateLimits(func(l *types.FeeLimits) { l.MaxTransactionFee = fee })
}

// SetDefaultMaxQueryPayment sets the most a single query may cost.
func (c *LedgerClient) SetDefaultMaxQueryPayment(payment types.Hbar) error {
	if payment <= 0 {
		return types.NewValidationError(nil, "default max query payment must be positive, got %s", payment)
	}
	return c.updateLimits(func(l *types.FeeLimits) { l.MaxQueryPayment = payment })
}

func (c *LedgerClient) updateLimits(update func(*types.FeeLimits)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.limits
	update(&next)
	if err := c.backend.ApplyFeeLimits(next); err != nil {
		return err
	}
	c.limits = next
	return nil
}

func (c *LedgerClient) FeeLimits() types.FeeLimits {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limits
}

func (c *LedgerClient) Operator() Operator {
	return c.operator
}

func (c *LedgerClient) Network() types.Network {
	return c.backend.GetNetwork()
}

func (c *LedgerClient) Backend() Ledger {
	return c.backend
}

func (c *LedgerClient) Close() {
	c.backend.Close()
}
