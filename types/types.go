package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// EntityID is the shard.realm.num identifier the ledger assigns to accounts,
// contracts and tokens.
type EntityID struct {
	Shard int64
	Realm int64
	Num   int64
}

func (e EntityID) String() string {
	return fmt.Sprintf("%d.%d.%d", e.Shard, e.Realm, e.Num)
}

// IsZero reports whether the identifier was never assigned.
func (e EntityID) IsZero() bool {
	return e.Num == 0
}

func (e EntityID) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *EntityID) UnmarshalText(text []byte) error {
	id, err := parseEntityID(string(text))
	if err != nil {
		return err
	}
	*e = id
	return nil
}

func parseEntityID(s string) (EntityID, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return EntityID{}, fmt.Errorf("invalid entity id %q: expected shard.realm.num", s)
	}

	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return EntityID{}, fmt.Errorf("invalid entity id %q: bad component %q", s, p)
		}
		nums[i] = n
	}

	return EntityID{Shard: nums[0], Realm: nums[1], Num: nums[2]}, nil
}

// AccountID identifies an account able to hold balance and sign.
type AccountID struct{ EntityID }

// ContractID identifies a deployed smart contract.
type ContractID struct{ EntityID }

// TokenID identifies a token type.
type TokenID struct{ EntityID }

func ParseAccountID(s string) (AccountID, error) {
	id, err := parseEntityID(s)
	return AccountID{id}, err
}

func ParseContractID(s string) (ContractID, error) {
	id, err := parseEntityID(s)
	return ContractID{id}, err
}

func ParseTokenID(s string) (TokenID, error) {
	id, err := parseEntityID(s)
	return TokenID{id}, err
}

// SerialNumber is the per-unit identifier of a minted NFT within its token.
type SerialNumber int64

// Valid reports whether the serial was assigned by a mint.
func (s SerialNumber) Valid() bool {
	return s >= 1
}

// TinybarsPerHbar is the number of tinybars in one hbar.
const TinybarsPerHbar = 100_000_000

var tinybarsPerHbar = decimal.NewFromInt(TinybarsPerHbar)

// Hbar is an amount of the ledger's native currency held in tinybars.
type Hbar int64

// NewHbar returns an amount of whole hbars.
func NewHbar(hbars int64) Hbar {
	return Hbar(hbars * TinybarsPerHbar)
}

func HbarFromTinybar(tinybars int64) Hbar {
	return Hbar(tinybars)
}

// HbarFromDecimal converts an amount expressed in hbars.
func HbarFromDecimal(hbars decimal.Decimal) (Hbar, error) {
	tinybars := hbars.Mul(tinybarsPerHbar)
	if !tinybars.Equal(tinybars.Truncate(0)) {
		return 0, fmt.Errorf("amount %s hbar is finer than one tinybar", hbars)
	}
	if tinybars.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("amount %s hbar overflows", hbars)
	}
	return Hbar(tinybars.IntPart()), nil
}

// ParseHbar parses "100", "0.5 hbar", "100ℏ" or "1000 tinybar".
func ParseHbar(s string) (Hbar, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount cannot be empty")
	}

	value, unit := s, "hbar"
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != '-' && r != '+'
	}); i >= 0 {
		value, unit = strings.TrimSpace(s[:i]), strings.ToLower(strings.TrimSpace(s[i:]))
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format %q: %w", s, err)
	}

	switch unit {
	case "hbar", "h", "ℏ":
		return HbarFromDecimal(dec)
	case "tinybar", "tinybars", "t", "tℏ":
		if !dec.Equal(dec.Truncate(0)) {
			return 0, fmt.Errorf("tinybar amount %q must be whole", s)
		}
		return Hbar(dec.IntPart()), nil
	default:
		return 0, fmt.Errorf("unknown unit %q in amount %q", unit, s)
	}
}

func (h Hbar) Tinybars() int64 {
	return int64(h)
}

// Decimal returns the amount in hbars.
func (h Hbar) Decimal() decimal.Decimal {
	return decimal.New(int64(h), -8)
}

func (h Hbar) String() string {
	return h.Decimal().String() + " ℏ"
}

// Status is a ledger response code, as reported at precheck or finality.
type Status string

const (
	StatusSuccess                          Status = "SUCCESS"
	StatusUnknown                          Status = "UNKNOWN"
	StatusInvalidTransaction               Status = "INVALID_TRANSACTION"
	StatusInvalidTransactionBody           Status = "INVALID_TRANSACTION_BODY"
	StatusInvalidTransactionID             Status = "INVALID_TRANSACTION_ID"
	StatusInvalidTransactionStart          Status = "INVALID_TRANSACTION_START"
	StatusTransactionExpired               Status = "TRANSACTION_EXPIRED"
	StatusDuplicateTransaction             Status = "DUPLICATE_TRANSACTION"
	StatusPayerAccountNotFound             Status = "PAYER_ACCOUNT_NOT_FOUND"
	StatusInvalidSignature                 Status = "INVALID_SIGNATURE"
	StatusKeyRequired                      Status = "KEY_REQUIRED"
	StatusBadEncoding                      Status = "BAD_ENCODING"
	StatusInsufficientTxFee                Status = "INSUFFICIENT_TX_FEE"
	StatusInsufficientPayerBalance         Status = "INSUFFICIENT_PAYER_BALANCE"
	StatusInsufficientGas                  Status = "INSUFFICIENT_GAS"
	StatusMaxQueryPaymentExceeded          Status = "MAX_QUERY_PAYMENT_EXCEEDED"
	StatusInvalidAccountID                 Status = "INVALID_ACCOUNT_ID"
	StatusInvalidContractID                Status = "INVALID_CONTRACT_ID"
	StatusInvalidTokenID                   Status = "INVALID_TOKEN_ID"
	StatusInvalidNftID                     Status = "INVALID_NFT_ID"
	StatusContractRevertExecuted           Status = "CONTRACT_REVERT_EXECUTED"
	StatusContractExecutionException       Status = "CONTRACT_EXECUTION_EXCEPTION"
	StatusAutorenewDurationNotInRange      Status = "AUTORENEW_DURATION_NOT_IN_RANGE"
	StatusTokenMaxSupplyReached            Status = "TOKEN_MAX_SUPPLY_REACHED"
	StatusMetadataTooLong                  Status = "METADATA_TOO_LONG"
	StatusInvalidSupplyKey                 Status = "INVALID_SUPPLY_KEY"
	StatusTokenNotAssociatedToAccount      Status = "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT"
	StatusNoRemainingAutomaticAssociations Status = "NO_REMAINING_AUTOMATIC_ASSOCIATIONS"
	StatusSenderDoesNotOwnNftSerialNo      Status = "SENDER_DOES_NOT_OWN_NFT_SERIAL_NO"
	StatusReceiptNotFound                  Status = "RECEIPT_NOT_FOUND"
	StatusRecordNotFound                   Status = "RECORD_NOT_FOUND"
	StatusPlatformNotActive                Status = "PLATFORM_NOT_ACTIVE"
	StatusBusy                             Status = "BUSY"
)

func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsPending reports whether consensus has not been reached yet.
func (s Status) IsPending() bool {
	return s == StatusUnknown || s == ""
}

func (s Status) String() string {
	return string(s)
}

// TransactionID names a submission as payer@validStart.
type TransactionID struct {
	AccountID  AccountID
	ValidStart time.Time
}

func NewTransactionID(payer AccountID, validStart time.Time) TransactionID {
	return TransactionID{AccountID: payer, ValidStart: validStart.UTC()}
}

func (t TransactionID) IsZero() bool {
	return t.AccountID.IsZero() || t.ValidStart.IsZero()
}

func (t TransactionID) String() string {
	return fmt.Sprintf("%s@%d.%09d", t.AccountID, t.ValidStart.Unix(), t.ValidStart.Nanosecond())
}

func (t TransactionID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionID) UnmarshalText(text []byte) error {
	id, err := ParseTransactionID(string(text))
	if err != nil {
		return err
	}
	*t = id
	return nil
}

// ParseTransactionID parses "0.0.2@1700000000.000000042". Scheduling and
// nonce suffixes are ignored.
func ParseTransactionID(s string) (TransactionID, error) {
	if i := strings.IndexAny(s, "?/"); i >= 0 {
		s = s[:i]
	}

	payer, start, ok := strings.Cut(s, "@")
	if !ok {
		return TransactionID{}, fmt.Errorf("invalid transaction id %q", s)
	}

	account, err := ParseAccountID(payer)
	if err != nil {
		return TransactionID{}, err
	}

	secs, nanos, _ := strings.Cut(start, ".")
	sec, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return TransactionID{}, fmt.Errorf("invalid transaction id %q: %w", s, err)
	}
	var nsec int64
	if nanos != "" {
		if nsec, err = strconv.ParseInt(nanos, 10, 64); err != nil {
			return TransactionID{}, fmt.Errorf("invalid transaction id %q: %w", s, err)
		}
	}

	return NewTransactionID(account, time.Unix(sec, nsec)), nil
}

// KeyScheme is the signature algorithm of a key.
type KeyScheme string

const (
	SchemeED25519        KeyScheme = "ED25519"
	SchemeECDSASecp256k1 KeyScheme = "ECDSA_SECP256K1"
)

// PublicKey is a scheme-tagged raw public key. ECDSA keys are compressed.
type PublicKey struct {
	Scheme KeyScheme     `json:"scheme" validate:"required,oneof=ED25519 ECDSA_SECP256K1"`
	Key    hexutil.Bytes `json:"key" validate:"required,min=1"`
}

func (p PublicKey) String() string {
	return string(p.Scheme) + ":" + p.Key.String()
}

func (p PublicKey) Equal(other PublicKey) bool {
	return p.String() == other.String()
}

func (p PublicKey) IsZero() bool {
	return len(p.Key) == 0
}

// FeeLimits are the client-wide ceilings applied when a transaction or query
// does not carry its own.
type FeeLimits struct {
	MaxTransactionFee Hbar
	MaxQueryPayment   Hbar
}

// ClientConfig contains configuration for a ledger client
type ClientConfig struct {
	Network           Network       `json:"network"`
	RPCURL            string        `json:"rpcUrl,omitempty"`
	OperatorID        string        `json:"-"`
	OperatorKey       string        `json:"-"`
	MaxTransactionFee Hbar          `json:"maxTransactionFee,omitempty"`
	MaxQueryPayment   Hbar          `json:"maxQueryPayment,omitempty"`
	ReceiptTimeout    time.Duration `json:"receiptTimeout,omitempty"`
	PollInterval      time.Duration `json:"pollInterval,omitempty"`
}
