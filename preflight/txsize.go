package preflight

import (
	"fmt"

	"github.com/meridianchain/preflight/xdr"
)

// worst-case envelope constants: a transaction built by a careless client
// should still fit under the estimate.
const (
	maxMemoTextBytes = 28
	maxSignatures    = 20
)

// estimateTransactionSize bounds the on-wire size of the signed transaction
// that would carry the candidate operation: maximum-length text memo, a full
// complement of decorated signatures, the operation with an explicit muxed
// source, and a resource extension holding the footprint. The result is
// inflated by 15%.
func estimateTransactionSize(body xdr.OperationBody, fp xdr.Footprint) (uint32, error) {
	source := xdr.MuxedAccount{Type: xdr.MuxedAccountTypeMuxedEd25519}
	signatures := make([]xdr.DecoratedSignature, maxSignatures)

	envelope := xdr.TransactionEnvelope{
		Tx: xdr.Transaction{
			SourceAccount: source,
			Fee:           0,
			SeqNum:        0,
			Memo:          xdr.Memo{Type: xdr.MemoTypeText, Text: string(make([]byte, maxMemoTextBytes))},
			Operations: []xdr.Operation{{
				SourceAccount: &source,
				Body:          body,
			}},
			Ext: xdr.TransactionExt{
				V: 1,
				Data: &xdr.TransactionData{
					Resources: xdr.Resources{Footprint: fp},
				},
			},
		},
		Signatures: signatures,
	}

	size, err := xdr.EncodedLen(&envelope)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding envelope estimate: %v", ErrEncoding, err)
	}
	return size * 115 / 100, nil
}
