package nftsaga

import (
	"context"
	"time"

	"github.com/vitwit/nftsaga/clients"
	"github.com/vitwit/nftsaga/contracts"
	"github.com/vitwit/nftsaga/keys"
	"github.com/vitwit/nftsaga/types"
)

// ProvisionedAccount is the account created in the first step. Its key pair
// stays in memory until the transfer is co-signed.
type ProvisionedAccount struct {
	ID            types.AccountID
	KeyPair       keys.KeyPair
	TransactionID types.TransactionID
}

type DeployedContract struct {
	ID            types.ContractID
	TransactionID types.TransactionID
}

type CreatedToken struct {
	Address       types.TokenAddress
	TransactionID types.TransactionID
}

type MintedToken struct {
	Serial        types.SerialNumber
	TransactionID types.TransactionID
}

type Transfer struct {
	Status        types.Status
	TransactionID types.TransactionID
}

// ProvisionAccount generates a key pair and creates an account for it.
func (p *Pipeline) ProvisionAccount(ctx context.Context) (*ProvisionedAccount, error) {
	const step = StepProvisionAccount
	start := p.begin(step)

	kp, err := p.keygen.Generate()
	if err != nil {
		return nil, p.fail(step, start, types.NewConfigError(err, "failed to generate account key"))
	}

	tx := types.NewAccountCreate(kp.Public, p.params.InitialBalance, p.params.MaxAutomaticTokenAssociations)
	pending, err := p.executor.Execute(ctx, tx)
	if err != nil {
		return nil, p.fail(step, start, err)
	}
	receipt, err := p.executor.AwaitReceipt(ctx, pending)
	if err != nil {
		return nil, p.fail(step, start, err)
	}
	if receipt.AccountID == nil || receipt.AccountID.IsZero() {
		return nil, p.fail(step, start, types.NewTransactionFailedError(receipt.Status, "receipt of %s carries no account id", pending.TransactionID))
	}

	account := &ProvisionedAccount{ID: *receipt.AccountID, KeyPair: kp, TransactionID: pending.TransactionID}
	p.done(step, start, map[string]any{
		"account_id":     account.ID.String(),
		"public_key":     kp.Public.String(),
		"transaction_id": pending.TransactionID.String(),
	})
	p.progressf("The new account ID is: %s", account.ID)
	return account, nil
}

// DeployContract deploys the contract bytecode with a fixed gas ceiling.
func (p *Pipeline) DeployContract(ctx context.Context) (*DeployedContract, error) {
	const step = StepDeployContract
	start := p.begin(step)

	code, err := p.bytecode.Bytecode()
	if err != nil {
		if _, ok := types.AsLedgerError(err); !ok {
			err = types.NewConfigError(err, "failed to load contract bytecode")
		}
		return nil, p.fail(step, start, err)
	}
	if len(code) == 0 {
		return nil, p.fail(step, start, types.NewConfigError(nil, "contract bytecode is empty"))
	}

	pending, err := p.executor.Execute(ctx, types.NewContractCreate(code, p.params.DeployGas))
	if err != nil {
		return nil, p.fail(step, start, err)
	}
	receipt, err := p.executor.AwaitReceipt(ctx, pending)
	if err != nil {
		return nil, p.fail(step, start, err)
	}
	if receipt.ContractID == nil || receipt.ContractID.IsZero() {
		return nil, p.fail(step, start, types.NewTransactionFailedError(receipt.Status, "receipt of %s carries no contract id", pending.TransactionID))
	}

	contract := &DeployedContract{ID: *receipt.ContractID, TransactionID: pending.TransactionID}
	p.done(step, start, map[string]any{
		"contract_id":    contract.ID.String(),
		"gas":            p.params.DeployGas,
		"transaction_id": pending.TransactionID.String(),
	})
	p.progressf("Contract created with ID: %s", contract.ID)
	return contract, nil
}

// CreateTokenType calls createNft with the configured token and payable
// amount and decodes the returned token address from the record.
func (p *Pipeline) CreateTokenType(ctx context.Context, contract *DeployedContract) (*CreatedToken, error) {
	const step = StepCreateTokenType
	start := p.begin(step)

	if contract == nil || contract.ID.IsZero() {
		return nil, p.fail(step, start, types.NewValidationError(nil, "a deployed contract is required"))
	}
	data, err := contracts.PackCreateNft(p.params.Token)
	if err != nil {
		return nil, p.fail(step, start, err)
	}

	tx := types.NewContractCall(contract.ID, p.params.CreateTokenGas, contracts.FuncCreateNft, data).
		WithPayableAmount(p.params.PayableAmount)
	record, pending, err := p.call(ctx, tx)
	if err != nil {
		return nil, p.fail(step, start, err)
	}

	addr, err := contracts.UnpackCreateNft(record.CallResult.Result)
	if err != nil {
		return nil, p.fail(step, start, types.NewTransactionFailedError(record.Receipt.Status, "cannot decode token address: %v", err))
	}
	token := types.TokenAddressFromSolidity(addr)
	if token.IsZero() {
		return nil, p.fail(step, start, types.NewTransactionFailedError(record.Receipt.Status, "createNft returned the zero address"))
	}

	created := &CreatedToken{Address: token, TransactionID: pending.TransactionID}
	p.done(step, start, map[string]any{
		"token_id":       token.String(),
		"token_address":  token.Address.Hex(),
		"transaction_id": pending.TransactionID.String(),
	})
	p.progressf("Token created with ID: %s", token)
	return created, nil
}

// MintToken mints the metadata payload under an explicit fee cap and decodes
// the first serial number.
func (p *Pipeline) MintToken(ctx context.Context, contract *DeployedContract, token *CreatedToken) (*MintedToken, error) {
	const step = StepMintToken
	start := p.begin(step)

	if contract == nil || contract.ID.IsZero() || token == nil || token.Address.IsZero() {
		return nil, p.fail(step, start, types.NewValidationError(nil, "a deployed contract and created token are required"))
	}
	data, err := contracts.PackMintNft(contracts.MintNftParams{Token: token.Address.Address, Metadata: p.params.Metadata})
	if err != nil {
		return nil, p.fail(step, start, err)
	}

	tx := types.NewContractCall(contract.ID, p.params.MintGas, contracts.FuncMintNft, data).
		WithMaxTransactionFee(p.params.MintMaxTransactionFee)
	record, pending, err := p.call(ctx, tx)
	if err != nil {
		return nil, p.fail(step, start, err)
	}

	raw, err := contracts.UnpackMintNft(record.CallResult.Result)
	if err != nil {
		return nil, p.fail(step, start, types.NewTransactionFailedError(record.Receipt.Status, "cannot decode serial number: %v", err))
	}
	serial := types.SerialNumber(raw)
	if !serial.Valid() {
		return nil, p.fail(step, start, types.NewTransactionFailedError(record.Receipt.Status, "mintNft returned serial %d", raw))
	}

	minted := &MintedToken{Serial: serial, TransactionID: pending.TransactionID}
	p.done(step, start, map[string]any{
		"token_id":       token.Address.String(),
		"serial":         raw,
		"transaction_id": pending.TransactionID.String(),
	})
	p.progressf("Minted NFT with serial: %d", raw)
	return minted, nil
}

// TransferToken moves the minted unit to the provisioned account. The
// account's key co-signs after the operator.
func (p *Pipeline) TransferToken(ctx context.Context, contract *DeployedContract, token *CreatedToken, minted *MintedToken, account *ProvisionedAccount) (*Transfer, error) {
	const step = StepTransferToken
	start := p.begin(step)

	switch {
	case contract == nil || contract.ID.IsZero():
		return nil, p.fail(step, start, types.NewValidationError(nil, "a deployed contract is required"))
	case token == nil || token.Address.IsZero():
		return nil, p.fail(step, start, types.NewValidationError(nil, "a created token is required"))
	case minted == nil || !minted.Serial.Valid():
		return nil, p.fail(step, start, types.NewValidationError(nil, "a minted serial is required"))
	case account == nil || account.ID.IsZero() || account.KeyPair.Private.IsZero():
		return nil, p.fail(step, start, types.NewValidationError(nil, "a provisioned account with its key is required"))
	}

	data, err := contracts.PackTransferNft(contracts.TransferNftParams{
		Token:    token.Address.Address,
		Receiver: account.ID.SolidityAddress(),
		Serial:   int64(minted.Serial),
	})
	if err != nil {
		return nil, p.fail(step, start, err)
	}

	tx := types.NewContractCall(contract.ID, p.params.TransferGas, contracts.FuncTransferNft, data).
		WithSigners(account.KeyPair.Private)
	pending, err := p.executor.Execute(ctx, tx)
	if err != nil {
		return nil, p.fail(step, start, err)
	}
	receipt, err := p.executor.AwaitReceipt(ctx, pending)
	if err != nil {
		return nil, p.fail(step, start, err)
	}

	transfer := &Transfer{Status: receipt.Status, TransactionID: pending.TransactionID}
	p.done(step, start, map[string]any{
		"token_id":       token.Address.String(),
		"serial":         int64(minted.Serial),
		"receiver":       account.ID.String(),
		"status":         receipt.Status.String(),
		"transaction_id": pending.TransactionID.String(),
	})
	p.progressf("Transfer status: %s", receipt.Status)
	return transfer, nil
}

// call submits a contract call and waits for a record carrying its result.
func (p *Pipeline) call(ctx context.Context, tx types.Transaction) (*types.Record, *clients.PendingTransaction, error) {
	pending, err := p.executor.Execute(ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	record, err := p.executor.AwaitRecord(ctx, pending)
	if err != nil {
		return nil, nil, err
	}
	if record.CallResult == nil {
		return nil, nil, types.NewTransactionFailedError(record.Receipt.Status, "record of %s has no contract result", pending.TransactionID)
	}
	return record, pending, nil
}

func (p *Pipeline) begin(step Step) time.Time {
	p.logger.Info("step started", map[string]any{
		"run_id": p.runID,
		"step":   string(step),
	})
	return time.Now()
}

func (p *Pipeline) done(step Step, start time.Time, fields map[string]any) {
	labels := p.labels(step)
	p.metrics.IncCounter("step_completed", labels)
	p.metrics.ObserveLatency("step", time.Since(start), labels)

	fields["run_id"] = p.runID
	fields["step"] = string(step)
	p.logger.Info("step completed", fields)
}

func (p *Pipeline) fail(step Step, start time.Time, err error) error {
	labels := p.labels(step)
	p.metrics.IncCounter("step_failed", labels)
	p.metrics.ObserveLatency("step", time.Since(start), labels)

	fields := map[string]any{
		"run_id": p.runID,
		"step":   string(step),
		"error":  err.Error(),
	}
	if le, ok := types.AsLedgerError(err); ok {
		fields["code"] = le.Code
		if le.Status != "" {
			fields["status"] = le.Status.String()
		}
	}
	p.logger.Error("step failed", fields)
	return &StepError{Step: step, Err: err}
}

func (p *Pipeline) labels(step Step) map[string]string {
	return map[string]string{
		"network": p.client.Network().String(),
		"kind":    string(step),
	}
}
