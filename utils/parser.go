package utils

import (
	"encoding/json"

	"github.com/vitwit/nftsaga/types"
)

// ParseTransactionBody decodes the signed body bytes of a submission. Only
// the encoding is checked; the ledger decides whether the content is valid.
func ParseTransactionBody(data []byte) (*types.TransactionBody, error) {
	var body types.TransactionBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, types.NewValidationError(err, "failed to parse transaction body")
	}
	return &body, nil
}

// SerializeTransactionBody produces the bytes every signer signs.
func SerializeTransactionBody(body types.TransactionBody) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewValidationError(err, "failed to serialize transaction body")
	}
	return data, nil
}
