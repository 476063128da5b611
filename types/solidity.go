package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// SolidityAddress returns the long-zero contract-callable form of the entity:
// 4 bytes shard, 8 bytes realm, 8 bytes num, big endian.
func (e EntityID) SolidityAddress() common.Address {
	var addr common.Address
	binary.BigEndian.PutUint32(addr[0:4], uint32(e.Shard))
	binary.BigEndian.PutUint64(addr[4:12], uint64(e.Realm))
	binary.BigEndian.PutUint64(addr[12:20], uint64(e.Num))
	return addr
}

// EntityIDFromSolidityAddress reverses SolidityAddress.
func EntityIDFromSolidityAddress(addr common.Address) EntityID {
	return EntityID{
		Shard: int64(binary.BigEndian.Uint32(addr[0:4])),
		Realm: int64(binary.BigEndian.Uint64(addr[4:12])),
		Num:   int64(binary.BigEndian.Uint64(addr[12:20])),
	}
}

// TokenAddress carries both forms of a token identifier: the address handed
// to contract calls and the ledger-native id used for logging and comparison.
type TokenAddress struct {
	ID      TokenID
	Address common.Address
}

func TokenAddressFromSolidity(addr common.Address) TokenAddress {
	return TokenAddress{ID: TokenID{EntityIDFromSolidityAddress(addr)}, Address: addr}
}

func (t TokenAddress) IsZero() bool {
	return t.Address == (common.Address{}) || t.ID.IsZero()
}

func (t TokenAddress) String() string {
	return t.ID.String()
}
