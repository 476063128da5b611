// Package nftsaga issues a non-fungible token through a smart contract on a
// Hedera-style ledger and hands the first unit to a freshly created account.
//
// # Steps
//
// A run is five dependent transactions, each submitted only after the
// previous one reached consensus:
//
//  1. ProvisionAccount creates an account for a new ED25519 key.
//  2. DeployContract deploys the NFT creator bytecode.
//  3. CreateTokenType calls createNft and decodes the token address.
//  4. MintToken calls mintNft and decodes the serial number.
//  5. TransferToken calls transferNft, co-signed by the new account.
//
// No step is retried and nothing is rolled back: when a step fails, the
// effects of the steps before it stay on the ledger and Run reports them in
// its partial Result.
//
// # Usage
//
//	client, err := clients.Connect(cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	p, err := nftsaga.New(client, nftsaga.DefaultParams(),
//		nftsaga.WithLogger(logger.NewZapLogger("info")),
//		nftsaga.WithProgress(os.Stdout),
//	)
//	if err != nil {
//		return err
//	}
//	result, err := p.Run(ctx)
//
// A Pipeline is not safe for concurrent use; run one pipeline per client.
package nftsaga

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/vitwit/nftsaga/clients"
	"github.com/vitwit/nftsaga/keys"
	"github.com/vitwit/nftsaga/logger"
	"github.com/vitwit/nftsaga/metrics"
	"github.com/vitwit/nftsaga/types"
	"github.com/vitwit/nftsaga/utils"
)

// Pipeline runs the saga against one ledger client.
type Pipeline struct {
	client   *clients.LedgerClient
	executor *clients.Executor
	params   Params

	logger   logger.Logger
	metrics  metrics.Recorder
	keygen   keys.Generator
	bytecode BytecodeSource
	progress io.Writer

	runID string
}

// New checks params and assembles a pipeline.
func New(client *clients.LedgerClient, params Params, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, types.NewConfigError(nil, "ledger client is required")
	}
	if err := utils.ValidateStruct(params); err != nil {
		return nil, err
	}

	p := &Pipeline{
		client:   client,
		params:   params,
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		keygen:   keys.ED25519Generator,
		bytecode: FileBytecode(DefaultBytecodePath),
		progress: io.Discard,
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.executor == nil {
		p.executor = clients.NewExecutor(client, p.logger, p.metrics)
	}
	return p, nil
}

// Result is what a run left on the ledger. After a failure it holds the
// identifiers of the steps that completed.
type Result struct {
	RunID   string
	Network types.Network

	AccountID      types.AccountID
	ContractID     types.ContractID
	Token          types.TokenAddress
	Serial         types.SerialNumber
	TransferStatus types.Status

	Transactions map[Step]types.TransactionID
	Completed    []Step
}

func (r *Result) complete(step Step, id types.TransactionID) {
	r.Transactions[step] = id
	r.Completed = append(r.Completed, step)
}

// Run executes the five steps in order under a new run id. Cancelling ctx
// stops the run before its next submission; a submitted transaction is
// always awaited.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.runID = uuid.NewString()
	result := &Result{
		RunID:        p.runID,
		Network:      p.client.Network(),
		Transactions: make(map[Step]types.TransactionID, len(Steps)),
	}

	p.logger.Info("pipeline started", map[string]any{
		"run_id":   p.runID,
		"network":  result.Network.String(),
		"operator": p.client.Operator().AccountID.String(),
	})

	account, err := p.ProvisionAccount(ctx)
	if err != nil {
		return p.abort(result, err)
	}
	result.AccountID = account.ID
	result.complete(StepProvisionAccount, account.TransactionID)

	contract, err := p.DeployContract(ctx)
	if err != nil {
		return p.abort(result, err)
	}
	result.ContractID = contract.ID
	result.complete(StepDeployContract, contract.TransactionID)

	token, err := p.CreateTokenType(ctx, contract)
	if err != nil {
		return p.abort(result, err)
	}
	result.Token = token.Address
	result.complete(StepCreateTokenType, token.TransactionID)

	minted, err := p.MintToken(ctx, contract, token)
	if err != nil {
		return p.abort(result, err)
	}
	result.Serial = minted.Serial
	result.complete(StepMintToken, minted.TransactionID)

	transfer, err := p.TransferToken(ctx, contract, token, minted, account)
	if err != nil {
		return p.abort(result, err)
	}
	result.TransferStatus = transfer.Status
	result.complete(StepTransferToken, transfer.TransactionID)

	p.logger.Info("pipeline completed", map[string]any{
		"run_id":          p.runID,
		"account_id":      result.AccountID.String(),
		"contract_id":     result.ContractID.String(),
		"token_id":        result.Token.String(),
		"serial":          int64(result.Serial),
		"transfer_status": result.TransferStatus.String(),
	})
	return result, nil
}

func (p *Pipeline) abort(result *Result, err error) (*Result, error) {
	p.logger.Error("pipeline aborted", map[string]any{
		"run_id":    p.runID,
		"completed": len(result.Completed),
		"error":     err.Error(),
	})
	return result, err
}

// RunID identifies the current run in logs.
func (p *Pipeline) RunID() string {
	return p.runID
}

func (p *Pipeline) progressf(format string, args ...any) {
	fmt.Fprintf(p.progress, format+"\n", args...)
}
