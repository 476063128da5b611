package simnet

import (
	"github.com/vitwit/nftsaga/contracts"
	"github.com/vitwit/nftsaga/types"
)

const maxMetadataBytes = 100

type nft struct {
	owner    types.EntityID
	metadata []byte
}

type token struct {
	id              types.TokenID
	name            string
	symbol          string
	memo            string
	maxSupply       int64
	autoRenewPeriod int64
	treasury        types.EntityID

	nextSerial int64
	nfts       map[types.SerialNumber]*nft
}

func (t *token) minted() int64 {
	return int64(len(t.nfts))
}

type tokenSpec struct {
	name, symbol, memo string
	maxSupply          int64
	autoRenewPeriod    int64
}

// createToken issues a non-fungible token whose treasury is the calling
// contract. The creation fee comes out of the call's payable amount.
func (l *Ledger) createToken(call *CallContext, def tokenSpec) (types.TokenID, error) {
	c := l.contracts[call.Contract]
	if call.Payable < l.fees.TokenCreate || c.balance < l.fees.TokenCreate {
		return types.TokenID{}, revert(types.StatusInsufficientTxFee,
			"token creation costs %s, call sent %s", l.fees.TokenCreate, call.Payable)
	}
	if def.autoRenewPeriod < contracts.MinExpiration || def.autoRenewPeriod >= contracts.MaxExpiration {
		return types.TokenID{}, revert(types.StatusAutorenewDurationNotInRange,
			"auto renew period %d outside [%d, %d)", def.autoRenewPeriod, contracts.MinExpiration, contracts.MaxExpiration)
	}
	if def.maxSupply <= 0 {
		return types.TokenID{}, revert(types.StatusContractRevertExecuted, "max supply must be positive")
	}
	if def.name == "" || def.symbol == "" {
		return types.TokenID{}, revert(types.StatusContractRevertExecuted, "token name and symbol are required")
	}

	id := types.TokenID{EntityID: l.allocate()}
	l.tokens[id] = &token{
		id:              id,
		name:            def.name,
		symbol:          def.symbol,
		memo:            def.memo,
		maxSupply:       def.maxSupply,
		autoRenewPeriod: def.autoRenewPeriod,
		treasury:        c.id.EntityID,
		nextSerial:      1,
		nfts:            make(map[types.SerialNumber]*nft),
	}
	c.balance -= l.fees.TokenCreate
	return id, nil
}

// mintNfts mints one serial per metadata entry into the treasury and returns
// the first serial.
func (l *Ledger) mintNfts(call *CallContext, id types.TokenID, metadata [][]byte) (types.SerialNumber, error) {
	t, ok := l.tokens[id]
	if !ok {
		return 0, revert(types.StatusInvalidTokenID, "token %s not found", id)
	}
	if t.treasury != call.Contract.EntityID {
		return 0, revert(types.StatusInvalidSupplyKey, "contract %s cannot mint %s", call.Contract, id)
	}
	if len(metadata) == 0 {
		return 0, revert(types.StatusContractRevertExecuted, "mint requires metadata")
	}
	for _, m := range metadata {
		if len(m) > maxMetadataBytes {
			return 0, revert(types.StatusMetadataTooLong, "metadata of %d bytes exceeds %d", len(m), maxMetadataBytes)
		}
	}
	if t.minted()+int64(len(metadata)) > t.maxSupply {
		return 0, revert(types.StatusTokenMaxSupplyReached, "token %s would exceed max supply %d", id, t.maxSupply)
	}

	first := types.SerialNumber(t.nextSerial)
	for _, m := range metadata {
		t.nfts[types.SerialNumber(t.nextSerial)] = &nft{
			owner:    t.treasury,
			metadata: append([]byte(nil), m...),
		}
		t.nextSerial++
	}
	return first, nil
}

// transferNft moves a serial held by the calling contract to receiver. The
// receiver must have signed the transaction and have an association slot.
func (l *Ledger) transferNft(call *CallContext, id types.TokenID, receiver types.AccountID, serial types.SerialNumber) error {
	to, ok := l.accounts[receiver]
	if !ok {
		return revert(types.StatusInvalidAccountID, "receiver %s not found", receiver)
	}
	t, ok := l.tokens[id]
	if !ok {
		return revert(types.StatusInvalidTokenID, "token %s not found", id)
	}
	n, ok := t.nfts[serial]
	if !ok {
		return revert(types.StatusInvalidNftID, "serial %d of %s not found", serial, id)
	}
	if n.owner != call.Contract.EntityID {
		return revert(types.StatusSenderDoesNotOwnNftSerialNo, "contract %s does not own serial %d", call.Contract, serial)
	}
	if !call.SignedBy(to.key) {
		return revert(types.StatusInvalidSignature, "receiver %s did not sign", receiver)
	}

	if !to.associated(id) {
		switch {
		case to.maxAutoAssociations == 0:
			return revert(types.StatusTokenNotAssociatedToAccount, "receiver %s is not associated with %s", receiver, id)
		case to.usedAutoAssociations >= to.maxAutoAssociations:
			return revert(types.StatusNoRemainingAutomaticAssociations, "receiver %s has no automatic association left", receiver)
		}
		to.associations[id] = struct{}{}
		to.usedAutoAssociations++
	}

	n.owner = to.id.EntityID
	return nil
}

// TokenInfo is a snapshot of a token type.
type TokenInfo struct {
	ID              types.TokenID
	Name            string
	Symbol          string
	Memo            string
	MaxSupply       int64
	AutoRenewPeriod int64
	Treasury        types.EntityID
	Minted          int64
}

func (l *Ledger) Token(id types.TokenID) (TokenInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[id]
	if !ok {
		return TokenInfo{}, false
	}
	return TokenInfo{
		ID:              t.id,
		Name:            t.name,
		Symbol:          t.symbol,
		Memo:            t.memo,
		MaxSupply:       t.maxSupply,
		AutoRenewPeriod: t.autoRenewPeriod,
		Treasury:        t.treasury,
		Minted:          t.minted(),
	}, true
}

// NftOwner returns the entity holding a serial.
func (l *Ledger) NftOwner(id types.TokenID, serial types.SerialNumber) (types.EntityID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[id]
	if !ok {
		return types.EntityID{}, false
	}
	n, ok := t.nfts[serial]
	if !ok {
		return types.EntityID{}, false
	}
	return n.owner, true
}
