package preflight

import (
	"fmt"

	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

// FootprintTTLParams carries one footprint-expiration preflight: a bump or
// restore operation over an explicit footprint. No machine runs for these;
// the resources follow directly from the footprint and snapshot.
type FootprintTTLParams struct {
	Snapshot ledger.SnapshotSource

	// Op must be a bump-footprint-expiration or restore-footprint body.
	Op xdr.OperationBody

	// Footprint lists the entries the operation covers: bump targets go in
	// ReadOnly, restore targets in ReadWrite.
	Footprint xdr.Footprint

	CurrentLedgerSeq uint32
	BucketListSize   uint64
	Rates            RateTable
}

// FootprintTTL estimates resources and fee for a footprint-expiration
// operation. Only TransactionData, MinFee and the entry counts are meaningful
// in the returned result; there is no invocation value, auth, or events.
func FootprintTTL(p FootprintTTLParams) (*Result, error) {
	var resources xdr.Resources
	switch p.Op.Type {
	case xdr.OperationTypeBumpFootprintExpiration:
		// Bumping reads the covered entries and rewrites their expiration
		// metadata; prior state is charged twice in metadata so history stays
		// reconstructible.
		readBytes, err := unmodifiedEntryBytes(p.Snapshot, p.Footprint.ReadOnly)
		if err != nil {
			return nil, err
		}
		resources = xdr.Resources{
			Footprint:         p.Footprint,
			ReadBytes:         readBytes,
			WriteBytes:        0,
			MetadataSizeBytes: 2 * readBytes,
		}
	case xdr.OperationTypeRestoreFootprint:
		// Restoring rewrites the covered entries wholesale.
		writeBytes, err := unmodifiedEntryBytes(p.Snapshot, p.Footprint.ReadWrite)
		if err != nil {
			return nil, err
		}
		resources = xdr.Resources{
			Footprint:         p.Footprint,
			ReadBytes:         writeBytes,
			WriteBytes:        writeBytes,
			MetadataSizeBytes: 2 * writeBytes,
		}
	default:
		return nil, fmt.Errorf("%w: unsupported operation type %s", ErrEncoding, p.Op.Type)
	}

	txSize, err := estimateTransactionSize(p.Op, p.Footprint)
	if err != nil {
		return nil, err
	}

	minFee, refundable := p.Rates.orDefault().Fee(transactionResources(resources, txSize))
	return &Result{
		TransactionData: xdr.TransactionData{Resources: resources, RefundableFee: refundable},
		MinFee:          minFee,
	}, nil
}
