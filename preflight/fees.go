package preflight

import (
	"fmt"

	"github.com/meridianchain/preflight/host"
	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

const (
	// instructionsIncrement is the instruction batch size the per-increment
	// rate applies to.
	instructionsIncrement = 10_000

	// dataSizeIncrement is the byte batch size the per-KB rates apply to.
	dataSizeIncrement = 1024

	// minInstructionLeeway is the fixed floor added to consumed instructions
	// so that small local timing differences never underestimate validator
	// execution.
	minInstructionLeeway = 50_000
)

// RateTable is the linear fee schedule validators apply to a resource
// descriptor. It is injectable configuration: pass a populated table to stay
// correct across network-parameter changes, or the zero value to get the
// network's initial defaults.
type RateTable struct {
	FeePerInstructionIncrement int64
	FeePerReadEntry            int64
	FeePerWriteEntry           int64
	FeePerRead1KB              int64
	FeePerWrite1KB             int64
	FeePerHistorical1KB        int64
	FeePerMetadata1KB          int64
	FeePerPropagate1KB         int64
}

// DefaultRateTable returns the network's initial fee schedule.
func DefaultRateTable() RateTable {
	return RateTable{
		FeePerInstructionIncrement: 100,
		FeePerReadEntry:            5000,
		FeePerWriteEntry:           20000,
		FeePerRead1KB:              1000,
		FeePerWrite1KB:             4000,
		FeePerHistorical1KB:        100,
		FeePerMetadata1KB:          200,
		FeePerPropagate1KB:         2000,
	}
}

// TransactionResources is the full resource descriptor the fee schedule is
// applied to.
type TransactionResources struct {
	Instructions         uint32
	ReadEntries          uint32
	WriteEntries         uint32
	ReadBytes            uint32
	WriteBytes           uint32
	MetadataSizeBytes    uint32
	TransactionSizeBytes uint32
}

// ceilDiv is integer ceiling division for non-negative numerators. The
// rounding direction here is part of the validator fee contract.
func ceilDiv(num, den int64) int64 {
	return (num + den - 1) / den
}

// Fee applies the schedule to a resource descriptor and returns the minimum
// inclusion fee and its refundable portion. The arithmetic must match the
// validator-side computation bit for bit.
func (r RateTable) Fee(res TransactionResources) (minFee, refundable int64) {
	computeFee := ceilDiv(int64(res.Instructions)*r.FeePerInstructionIncrement, instructionsIncrement)
	readEntryFee := int64(res.ReadEntries) * r.FeePerReadEntry
	writeEntryFee := int64(res.WriteEntries) * r.FeePerWriteEntry
	readBytesFee := ceilDiv(int64(res.ReadBytes)*r.FeePerRead1KB, dataSizeIncrement)
	writeBytesFee := ceilDiv(int64(res.WriteBytes)*r.FeePerWrite1KB, dataSizeIncrement)
	historicalFee := ceilDiv(int64(res.TransactionSizeBytes)*r.FeePerHistorical1KB, dataSizeIncrement)
	bandwidthFee := ceilDiv(int64(res.TransactionSizeBytes)*r.FeePerPropagate1KB, dataSizeIncrement)
	metadataFee := ceilDiv(int64(res.MetadataSizeBytes)*r.FeePerMetadata1KB, dataSizeIncrement)

	refundable = metadataFee
	minFee = computeFee + readEntryFee + writeEntryFee + readBytesFee +
		writeBytesFee + historicalFee + bandwidthFee + metadataFee
	return minFee, refundable
}

// orDefault substitutes the default schedule for a zero-valued table.
func (r RateTable) orDefault() RateTable {
	if r == (RateTable{}) {
		return DefaultRateTable()
	}
	return r
}

// unmodifiedEntryBytes sums, for each key, the encoded key length plus the
// encoded length of the entry as it currently exists in the snapshot. A key
// absent from the snapshot is assumed to be created by the operation itself
// and contributes only its key bytes; counting it as preexisting state would
// double-charge brand-new entries.
func unmodifiedEntryBytes(snapshot ledger.SnapshotSource, keys []xdr.LedgerKey) (uint32, error) {
	var total uint32
	for i := range keys {
		keyLen, err := xdr.EncodedLen(&keys[i])
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		total += keyLen
		entry, found, err := snapshot.GetLedgerEntry(keys[i])
		if err != nil {
			return 0, fmt.Errorf("%w: reading ledger entry: %v", ErrIntegration, err)
		}
		if !found {
			continue
		}
		entryLen, err := xdr.EncodedLen(&entry)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		total += entryLen
	}
	return total, nil
}

// modifiedReadWriteBytes sums encoded entry plus key bytes for every
// read-write key still present with a value at end of execution. Deleted keys
// contribute nothing. A storage-map key with no footprint classification is a
// hard failure: silent mis-accounting here directly causes on-chain fee
// mismatches.
func modifiedReadWriteBytes(fp *host.Footprint, sm host.StorageMap) (uint32, error) {
	var total uint32
	for enc, se := range sm {
		access, ok := fp.Access(enc)
		if !ok {
			return 0, fmt.Errorf("%w: storage entry not found in footprint", ErrInvariant)
		}
		if access != host.AccessReadWrite || se.Entry == nil {
			continue
		}
		entryLen, err := xdr.EncodedLen(se.Entry)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		total += entryLen + uint32(len(enc))
	}
	return total, nil
}

// eventSizeBytes sums the encoded length of each diagnostic event.
func eventSizeBytes(events []xdr.DiagnosticEvent) (uint32, error) {
	var total uint32
	for i := range events {
		n, err := xdr.EncodedLen(&events[i])
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEncoding, err)
		}
		total += n
	}
	return total, nil
}

// chargedInstructions inflates consumed instructions by a fixed floor and a
// 15% proportional margin, whichever is larger, guarding against local timing
// differing slightly from validator execution.
func chargedInstructions(consumed uint64) uint32 {
	withFloor := consumed + minInstructionLeeway
	withMargin := consumed * 115 / 100
	if withMargin > withFloor {
		return uint32(withMargin)
	}
	return uint32(withFloor)
}

// computeResources converts an execution trace (footprint, end-of-execution
// storage map, consumed budget, diagnostic events) into the wire resource
// descriptor. Pure: the snapshot is only read.
func computeResources(
	snapshot ledger.SnapshotSource,
	fp *host.Footprint,
	sm host.StorageMap,
	budget *host.Budget,
	events []xdr.DiagnosticEvent,
) (xdr.Resources, error) {
	fpXDR := fp.ToXDR()

	rwUnmodified, err := unmodifiedEntryBytes(snapshot, fpXDR.ReadWrite)
	if err != nil {
		return xdr.Resources{}, err
	}
	roUnmodified, err := unmodifiedEntryBytes(snapshot, fpXDR.ReadOnly)
	if err != nil {
		return xdr.Resources{}, err
	}
	writeBytes, err := modifiedReadWriteBytes(fp, sm)
	if err != nil {
		return xdr.Resources{}, err
	}
	eventsBytes, err := eventSizeBytes(events)
	if err != nil {
		return xdr.Resources{}, err
	}

	// The write set's prior state counts toward metadata because its history
	// must remain reconstructible.
	return xdr.Resources{
		Footprint:         fpXDR,
		Instructions:      chargedInstructions(budget.CPUInstructionsConsumed()),
		ReadBytes:         roUnmodified + rwUnmodified,
		WriteBytes:        writeBytes,
		MetadataSizeBytes: rwUnmodified + writeBytes + eventsBytes,
	}, nil
}

// transactionResources pairs a wire descriptor with the estimated on-wire
// size, deriving the entry counts from the footprint.
func transactionResources(res xdr.Resources, txSize uint32) TransactionResources {
	writeEntries := uint32(len(res.Footprint.ReadWrite))
	return TransactionResources{
		Instructions:         res.Instructions,
		ReadEntries:          uint32(len(res.Footprint.ReadOnly)) + writeEntries,
		WriteEntries:         writeEntries,
		ReadBytes:            res.ReadBytes,
		WriteBytes:           res.WriteBytes,
		MetadataSizeBytes:    res.MetadataSizeBytes,
		TransactionSizeBytes: txSize,
	}
}
