package types

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TransactionKind selects which body a Transaction carries.
type TransactionKind string

const (
	KindAccountCreate  TransactionKind = "accountCreate"
	KindContractCreate TransactionKind = "contractCreate"
	KindContractCall   TransactionKind = "contractCall"
)

// Signer is a key able to authorize a transaction. Sign receives the exact
// body bytes that go on the wire.
type Signer interface {
	PublicKey() PublicKey
	Sign(message []byte) []byte
}

type AccountCreateBody struct {
	Key                           PublicKey `json:"key"`
	InitialBalance                Hbar      `json:"initialBalance" validate:"gte=0"`
	MaxAutomaticTokenAssociations int32     `json:"maxAutomaticTokenAssociations" validate:"gte=0,lte=5000"`
	Memo                          string    `json:"memo,omitempty" validate:"max=100"`
}

type ContractCreateBody struct {
	Bytecode hexutil.Bytes `json:"bytecode" validate:"required,min=1"`
	Gas      uint64        `json:"gas" validate:"gt=0,lte=15000000"`
}

type ContractCallBody struct {
	ContractID         ContractID    `json:"contractId"`
	Gas                uint64        `json:"gas" validate:"gt=0,lte=15000000"`
	PayableAmount      Hbar          `json:"amount" validate:"gte=0"`
	FunctionName       string        `json:"function" validate:"required"`
	FunctionParameters hexutil.Bytes `json:"functionParameters" validate:"required,min=4"`
}

// Transaction is an immutable description of one ledger operation. The
// operator always signs first as payer; Signers lists the co-signers in the
// order their signatures are attached.
type Transaction struct {
	Kind              TransactionKind
	Memo              string
	MaxTransactionFee Hbar

	AccountCreate  *AccountCreateBody
	ContractCreate *ContractCreateBody
	ContractCall   *ContractCallBody

	Signers []Signer
}

// NewAccountCreate builds an account-creation transaction for key.
func NewAccountCreate(key PublicKey, initialBalance Hbar, maxAutoAssociations int32) Transaction {
	return Transaction{
		Kind: KindAccountCreate,
		AccountCreate: &AccountCreateBody{
			Key:                           key,
			InitialBalance:                initialBalance,
			MaxAutomaticTokenAssociations: maxAutoAssociations,
		},
	}
}

// NewContractCreate builds a contract deployment with a fixed gas ceiling.
func NewContractCreate(bytecode []byte, gas uint64) Transaction {
	return Transaction{
		Kind:           KindContractCreate,
		ContractCreate: &ContractCreateBody{Bytecode: bytecode, Gas: gas},
	}
}

// NewContractCall builds a call of function on contract with ABI-encoded
// parameters (selector included).
func NewContractCall(contract ContractID, gas uint64, function string, params []byte) Transaction {
	return Transaction{
		Kind: KindContractCall,
		ContractCall: &ContractCallBody{
			ContractID:         contract,
			Gas:                gas,
			FunctionName:       function,
			FunctionParameters: params,
		},
	}
}

func (t Transaction) WithMemo(memo string) Transaction {
	t.Memo = memo
	return t
}

// WithMaxTransactionFee overrides the client's default fee ceiling for this
// transaction only.
func (t Transaction) WithMaxTransactionFee(fee Hbar) Transaction {
	t.MaxTransactionFee = fee
	return t
}

// WithPayableAmount attaches value to a contract call.
func (t Transaction) WithPayableAmount(amount Hbar) Transaction {
	if t.ContractCall != nil {
		body := *t.ContractCall
		body.PayableAmount = amount
		t.ContractCall = &body
	}
	return t
}

// WithSigners appends co-signers after any already attached.
func (t Transaction) WithSigners(signers ...Signer) Transaction {
	all := make([]Signer, 0, len(t.Signers)+len(signers))
	all = append(all, t.Signers...)
	t.Signers = append(all, signers...)
	return t
}

// Body returns the body matching Kind, or nil.
func (t Transaction) Body() any {
	switch t.Kind {
	case KindAccountCreate:
		if t.AccountCreate != nil {
			return t.AccountCreate
		}
	case KindContractCreate:
		if t.ContractCreate != nil {
			return t.ContractCreate
		}
	case KindContractCall:
		if t.ContractCall != nil {
			return t.ContractCall
		}
	}
	return nil
}

// Validate checks that exactly the body named by Kind is present.
func (t Transaction) Validate() error {
	set := 0
	for _, present := range []bool{t.AccountCreate != nil, t.ContractCreate != nil, t.ContractCall != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("transaction must carry exactly one body, got %d", set)
	}
	if t.Body() == nil {
		return fmt.Errorf("transaction kind %q does not match its body", t.Kind)
	}
	if t.ContractCall != nil && t.ContractCall.ContractID.IsZero() {
		return fmt.Errorf("contract call requires a contract id")
	}
	if t.AccountCreate != nil && t.AccountCreate.Key.IsZero() {
		return fmt.Errorf("account create requires a key")
	}
	if t.MaxTransactionFee < 0 {
		return fmt.Errorf("max transaction fee cannot be negative")
	}
	for i, s := range t.Signers {
		if s == nil {
			return fmt.Errorf("signer %d is nil", i)
		}
	}
	return nil
}

// TransactionBody is the signed portion of a submission on the JSON-RPC wire.
// Amounts are tinybars.
type TransactionBody struct {
	TransactionID     TransactionID       `json:"transactionId"`
	MaxTransactionFee Hbar                `json:"maxTransactionFee"`
	Memo              string              `json:"memo,omitempty"`
	AccountCreate     *AccountCreateBody  `json:"accountCreate,omitempty"`
	ContractCreate    *ContractCreateBody `json:"contractCreate,omitempty"`
	ContractCall      *ContractCallBody   `json:"contractCall,omitempty"`
}

// NewTransactionBody binds t to a transaction id and a resolved fee ceiling.
func NewTransactionBody(t Transaction, id TransactionID, maxFee Hbar) TransactionBody {
	return TransactionBody{
		TransactionID:     id,
		MaxTransactionFee: maxFee,
		Memo:              t.Memo,
		AccountCreate:     t.AccountCreate,
		ContractCreate:    t.ContractCreate,
		ContractCall:      t.ContractCall,
	}
}

type SignaturePair struct {
	PublicKey PublicKey     `json:"publicKey"`
	Signature hexutil.Bytes `json:"signature"`
}

// SignedTransaction carries the body bytes exactly as signed.
type SignedTransaction struct {
	BodyBytes  hexutil.Bytes   `json:"bodyBytes"`
	Signatures []SignaturePair `json:"sigMap"`
}

// Receipt is the finality confirmation of a submission.
type Receipt struct {
	TransactionID TransactionID  `json:"transactionId"`
	Status        Status         `json:"status"`
	AccountID     *AccountID     `json:"accountId,omitempty"`
	ContractID    *ContractID    `json:"contractId,omitempty"`
	TokenID       *TokenID       `json:"tokenId,omitempty"`
	Serials       []SerialNumber `json:"serials,omitempty"`
}

// ContractFunctionResult is the decoded outcome of a contract call.
type ContractFunctionResult struct {
	ContractID   ContractID    `json:"contractId"`
	Result       hexutil.Bytes `json:"result"`
	GasUsed      uint64        `json:"gasUsed"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// Record is a receipt plus the charged fee and, for contract calls, the
// function result.
type Record struct {
	Receipt            Receipt                 `json:"receipt"`
	ConsensusTimestamp time.Time               `json:"consensusTimestamp"`
	TransactionFee     Hbar                    `json:"transactionFee"`
	CallResult         *ContractFunctionResult `json:"contractCallResult,omitempty"`
}
