// Package simnet is an in-process simulated ledger. It prechecks, charges,
// signs and finalizes transactions the way a consensus node does, runs
// deployed contracts as Go programs, and serves all of it over go-ethereum
// JSON-RPC under the "ledger" namespace.
package simnet

import (
	"sync"
	"time"

	"github.com/vitwit/nftsaga/keys"
	"github.com/vitwit/nftsaga/logger"
	"github.com/vitwit/nftsaga/types"
	"github.com/vitwit/nftsaga/utils"
)

const (
	firstEntityNum = 1001

	validDuration = 180 * time.Second
	maxClockSkew  = 10 * time.Second

	defaultConsensusDelay = 50 * time.Millisecond
)

type account struct {
	id      types.AccountID
	key     types.PublicKey
	balance types.Hbar

	maxAutoAssociations  int32
	usedAutoAssociations int32
	associations         map[types.TokenID]struct{}
}

func (a *account) associated(token types.TokenID) bool {
	_, ok := a.associations[token]
	return ok
}

type contract struct {
	id       types.ContractID
	bytecode []byte
	gas      uint64
	balance  types.Hbar
	program  Program
}

type entry struct {
	record    types.Record
	visibleAt time.Time
}

// Ledger is the simulated ledger state. All methods are safe for concurrent
// use.
type Ledger struct {
	mu sync.Mutex

	now            func() time.Time
	consensusDelay time.Duration
	fees           FeeSchedule
	loadProgram    func(bytecode []byte) Program
	logger         logger.Logger

	nextNum   int64
	accounts  map[types.AccountID]*account
	contracts map[types.ContractID]*contract
	tokens    map[types.TokenID]*token
	entries   map[string]*entry
}

type Option func(*Ledger)

// WithClock replaces time.Now, for tests that move time.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithConsensusDelay sets how long a receipt stays UNKNOWN after submission.
func WithConsensusDelay(d time.Duration) Option {
	return func(l *Ledger) {
		l.consensusDelay = d
	}
}

func WithFeeSchedule(f FeeSchedule) Option {
	return func(l *Ledger) {
		l.fees = f
	}
}

func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) {
		l.logger = log
	}
}

// WithProgramLoader binds deployed bytecode to the program that runs it.
// By default every contract runs the NFT creator.
func WithProgramLoader(load func(bytecode []byte) Program) Option {
	return func(l *Ledger) {
		l.loadProgram = load
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		now:            time.Now,
		consensusDelay: defaultConsensusDelay,
		fees:           DefaultFeeSchedule(),
		loadProgram:    func([]byte) Program { return NFTCreator{} },
		logger:         logger.NoopLogger{},
		nextNum:        firstEntityNum,
		accounts:       make(map[types.AccountID]*account),
		contracts:      make(map[types.ContractID]*contract),
		tokens:         make(map[types.TokenID]*token),
		entries:        make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddAccount seeds a genesis account, typically the operator.
func (l *Ledger) AddAccount(id types.AccountID, key types.PublicKey, balance types.Hbar) error {
	if id.IsZero() {
		return types.NewValidationError(nil, "genesis account id is required")
	}
	if err := keys.ValidatePublicKey(key); err != nil {
		return types.NewValidationError(err, "invalid key for genesis account %s", id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[id]; ok {
		return types.NewValidationError(nil, "account %s already exists", id)
	}
	l.accounts[id] = &account{
		id:           id,
		key:          key,
		balance:      balance,
		associations: make(map[types.TokenID]struct{}),
	}
	if id.Num >= l.nextNum {
		l.nextNum = id.Num + 1
	}
	return nil
}

func (l *Ledger) Fees() FeeSchedule {
	return l.fees
}

// Submit prechecks a signed transaction and, when accepted, executes it.
// Precheck refusals return a *StatusError and leave no trace; accepted
// transactions are charged even if execution fails.
func (l *Ledger) Submit(signed types.SignedTransaction) (types.TransactionID, error) {
	parsed, err := utils.ParseTransactionBody(signed.BodyBytes)
	if err != nil {
		return types.TransactionID{}, newStatusError(types.StatusBadEncoding, "transaction body cannot be decoded")
	}
	body := *parsed

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	id := body.TransactionID
	payer, signedBy, err := l.precheck(signed, body, now)
	if err != nil {
		l.logger.Debug("simnet precheck refused transaction", map[string]any{
			"transaction_id": id.String(),
			"error":          err.Error(),
		})
		return types.TransactionID{}, err
	}

	record := l.execute(body, payer, signedBy, now)
	l.entries[id.String()] = &entry{record: record, visibleAt: now.Add(l.consensusDelay)}

	l.logger.Debug("simnet executed transaction", map[string]any{
		"transaction_id": id.String(),
		"status":         record.Receipt.Status.String(),
		"fee":            record.TransactionFee.String(),
	})
	return id, nil
}

func (l *Ledger) precheck(signed types.SignedTransaction, body types.TransactionBody, now time.Time) (*account, map[string]bool, error) {
	id := body.TransactionID
	if id.IsZero() {
		return nil, nil, newStatusError(types.StatusInvalidTransactionID, "transaction id is missing")
	}
	if _, dup := l.entries[id.String()]; dup {
		return nil, nil, newStatusError(types.StatusDuplicateTransaction, "transaction %s already submitted", id)
	}
	if id.ValidStart.After(now.Add(maxClockSkew)) {
		return nil, nil, newStatusError(types.StatusInvalidTransactionStart, "transaction %s starts in the future", id)
	}
	if id.ValidStart.Add(validDuration).Before(now) {
		return nil, nil, newStatusError(types.StatusTransactionExpired, "transaction %s expired", id)
	}

	payer, ok := l.accounts[id.AccountID]
	if !ok {
		return nil, nil, newStatusError(types.StatusPayerAccountNotFound, "payer %s not found", id.AccountID)
	}

	signedBy := make(map[string]bool, len(signed.Signatures))
	for _, pair := range signed.Signatures {
		if !keys.Verify(pair.PublicKey, signed.BodyBytes, pair.Signature) {
			return nil, nil, newStatusError(types.StatusInvalidSignature, "signature by %s does not verify", pair.PublicKey)
		}
		signedBy[pair.PublicKey.String()] = true
	}
	if !signedBy[payer.key.String()] {
		return nil, nil, newStatusError(types.StatusInvalidSignature, "payer %s did not sign", payer.id)
	}

	bodies := 0
	for _, present := range []bool{body.AccountCreate != nil, body.ContractCreate != nil, body.ContractCall != nil} {
		if present {
			bodies++
		}
	}
	if bodies != 1 {
		return nil, nil, newStatusError(types.StatusInvalidTransactionBody, "transaction must carry exactly one body")
	}

	maxFee := l.fees.MaxFee(body)
	if maxFee > body.MaxTransactionFee {
		return nil, nil, newStatusError(types.StatusInsufficientTxFee,
			"transaction may cost %s, above its max fee %s", maxFee, body.MaxTransactionFee)
	}
	if payer.balance < maxFee+transferredAmount(body) {
		return nil, nil, newStatusError(types.StatusInsufficientPayerBalance, "payer %s cannot cover fee and transfers", payer.id)
	}

	return payer, signedBy, nil
}

func transferredAmount(body types.TransactionBody) types.Hbar {
	switch {
	case body.AccountCreate != nil:
		return body.AccountCreate.InitialBalance
	case body.ContractCall != nil:
		return body.ContractCall.PayableAmount
	default:
		return 0
	}
}

func (l *Ledger) execute(body types.TransactionBody, payer *account, signedBy map[string]bool, now time.Time) types.Record {
	record := types.Record{
		Receipt:            types.Receipt{TransactionID: body.TransactionID},
		ConsensusTimestamp: now,
	}

	switch {
	case body.AccountCreate != nil:
		l.createAccount(body.AccountCreate, payer, &record)
	case body.ContractCreate != nil:
		l.createContract(body.ContractCreate, payer, &record)
	case body.ContractCall != nil:
		l.callContract(body.ContractCall, payer, signedBy, &record)
	}

	payer.balance -= record.TransactionFee
	return record
}

func (l *Ledger) createAccount(b *types.AccountCreateBody, payer *account, record *types.Record) {
	record.TransactionFee = l.fees.AccountCreate

	if b.Key.IsZero() {
		record.Receipt.Status = types.StatusKeyRequired
		return
	}
	if err := keys.ValidatePublicKey(b.Key); err != nil {
		record.Receipt.Status = types.StatusBadEncoding
		return
	}

	id := types.AccountID{EntityID: l.allocate()}
	payer.balance -= b.InitialBalance
	l.accounts[id] = &account{
		id:                  id,
		key:                 b.Key,
		balance:             b.InitialBalance,
		maxAutoAssociations: b.MaxAutomaticTokenAssociations,
		associations:        make(map[types.TokenID]struct{}),
	}

	record.Receipt.Status = types.StatusSuccess
	record.Receipt.AccountID = &id
}

func (l *Ledger) createContract(b *types.ContractCreateBody, payer *account, record *types.Record) {
	need := deployGas(b.Bytecode)
	if b.Gas < need {
		record.TransactionFee = l.fees.ContractCreate + l.fees.gas(b.Gas)
		record.Receipt.Status = types.StatusInsufficientGas
		return
	}
	record.TransactionFee = l.fees.ContractCreate + l.fees.gas(need)

	id := types.ContractID{EntityID: l.allocate()}
	l.contracts[id] = &contract{
		id:       id,
		bytecode: append([]byte(nil), b.Bytecode...),
		gas:      b.Gas,
		program:  l.loadProgram(b.Bytecode),
	}

	record.Receipt.Status = types.StatusSuccess
	record.Receipt.ContractID = &id
}

func (l *Ledger) callContract(b *types.ContractCallBody, payer *account, signedBy map[string]bool, record *types.Record) {
	c, ok := l.contracts[b.ContractID]
	if !ok {
		record.TransactionFee = l.fees.ContractCall
		record.Receipt.Status = types.StatusInvalidContractID
		return
	}

	payer.balance -= b.PayableAmount
	c.balance += b.PayableAmount

	call := &CallContext{
		ledger:   l,
		Contract: c.id,
		Payer:    payer.id,
		Payable:  b.PayableAmount,
		Gas:      b.Gas,
		signedBy: signedBy,
	}
	result, err := c.program.Call(call, b.FunctionParameters)

	record.CallResult = &types.ContractFunctionResult{ContractID: c.id}
	if err != nil {
		// Failed calls consume the whole gas offer and return the value.
		c.balance -= b.PayableAmount
		payer.balance += b.PayableAmount

		record.TransactionFee = l.fees.ContractCall + l.fees.gas(b.Gas)
		record.Receipt.Status = statusOf(err)
		record.CallResult.GasUsed = b.Gas
		record.CallResult.ErrorMessage = err.Error()
		return
	}

	record.TransactionFee = l.fees.ContractCall + l.fees.gas(call.gasUsed)
	record.Receipt.Status = types.StatusSuccess
	record.CallResult.Result = result
	record.CallResult.GasUsed = call.gasUsed
}

func (l *Ledger) allocate() types.EntityID {
	id := types.EntityID{Num: l.nextNum}
	l.nextNum++
	return id
}

// Receipt returns the receipt of a submitted transaction. Until consensus
// the status is UNKNOWN.
func (l *Ledger) Receipt(id types.TransactionID) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id.String()]
	if !ok {
		return nil, newStatusError(types.StatusReceiptNotFound, "no receipt for %s", id)
	}
	if l.now().Before(e.visibleAt) {
		return &types.Receipt{TransactionID: id, Status: types.StatusUnknown}, nil
	}
	receipt := e.record.Receipt
	return &receipt, nil
}

// Record returns the full record of a transaction if maxQueryPayment covers
// the query cost.
func (l *Ledger) Record(id types.TransactionID, maxQueryPayment types.Hbar) (*types.Record, error) {
	if l.fees.RecordQuery > maxQueryPayment {
		return nil, newStatusError(types.StatusMaxQueryPaymentExceeded,
			"record query costs %s, above the %s ceiling", l.fees.RecordQuery, maxQueryPayment)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id.String()]
	if !ok {
		return nil, newStatusError(types.StatusRecordNotFound, "no record for %s", id)
	}
	if l.now().Before(e.visibleAt) {
		return &types.Record{Receipt: types.Receipt{TransactionID: id, Status: types.StatusUnknown}}, nil
	}
	record := e.record
	return &record, nil
}

// AccountInfo is a snapshot of an account.
type AccountInfo struct {
	ID                            types.AccountID
	Key                           types.PublicKey
	Balance                       types.Hbar
	MaxAutomaticTokenAssociations int32
	Associations                  []types.TokenID
}

func (l *Ledger) Account(id types.AccountID) (AccountInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return AccountInfo{}, false
	}
	info := AccountInfo{
		ID:                            a.id,
		Key:                           a.key,
		Balance:                       a.balance,
		MaxAutomaticTokenAssociations: a.maxAutoAssociations,
	}
	for t := range a.associations {
		info.Associations = append(info.Associations, t)
	}
	return info, true
}

type ContractInfo struct {
	ID       types.ContractID
	Bytecode []byte
	Gas      uint64
	Balance  types.Hbar
}

func (l *Ledger) Contract(id types.ContractID) (ContractInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.contracts[id]
	if !ok {
		return ContractInfo{}, false
	}
	return ContractInfo{
		ID:       c.id,
		Bytecode: append([]byte(nil), c.bytecode...),
		Gas:      c.gas,
		Balance:  c.balance,
	}, true
}
