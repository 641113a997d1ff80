package preflight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridianchain/preflight/host"
	"github.com/meridianchain/preflight/host/hosttest"
	"github.com/meridianchain/preflight/xdr"
)

func testContract(b byte) xdr.ScAddress {
	var h xdr.Hash
	h[0] = b
	return xdr.ContractAddress(h)
}

func testDataKey(contract byte, name string) xdr.LedgerKey {
	return xdr.ContractDataKey(testContract(contract), xdr.ScSym(xdr.ScSymbol(name)), xdr.ContractDataPersistent)
}

func testDataEntry(contract byte, name, val string) xdr.LedgerEntry {
	return xdr.ContractDataLedgerEntry(7, xdr.ContractDataEntry{
		Contract:            testContract(contract),
		Key:                 xdr.ScSym(xdr.ScSymbol(name)),
		Durability:          xdr.ContractDataPersistent,
		Val:                 xdr.ScBytes([]byte(val)),
		ExpirationLedgerSeq: 1000,
	})
}

func mustLen(t *testing.T, v xdr.Encodable) uint32 {
	t.Helper()
	n, err := xdr.EncodedLen(v)
	require.NoError(t, err)
	return n
}

func TestCeilDiv(t *testing.T) {
	require.EqualValues(t, 0, ceilDiv(0, 1024))
	require.EqualValues(t, 1, ceilDiv(1, 1024))
	require.EqualValues(t, 1, ceilDiv(1024, 1024))
	require.EqualValues(t, 2, ceilDiv(1025, 1024))
	require.EqualValues(t, 2, ceilDiv(2048, 1024))
}

func TestFeeKnownValues(t *testing.T) {
	res := TransactionResources{
		Instructions:         1_000_000,
		ReadEntries:          2,
		WriteEntries:         1,
		ReadBytes:            2000,
		WriteBytes:           1000,
		MetadataSizeBytes:    3000,
		TransactionSizeBytes: 500,
	}
	minFee, refundable := DefaultRateTable().Fee(res)

	// compute 10_000 + read entries 10_000 + write entries 20_000 +
	// read bytes 1954 + write bytes 3907 + historical 49 + bandwidth 977 +
	// metadata 586, all with ceiling rounding.
	require.EqualValues(t, 47_473, minFee)
	require.EqualValues(t, 586, refundable)
}

func TestFeeZeroResources(t *testing.T) {
	minFee, refundable := DefaultRateTable().Fee(TransactionResources{})
	require.Zero(t, minFee)
	require.Zero(t, refundable)
}

func TestFeeIsDeterministic(t *testing.T) {
	res := TransactionResources{
		Instructions:         123_456,
		ReadEntries:          3,
		WriteEntries:         2,
		ReadBytes:            777,
		WriteBytes:           333,
		MetadataSizeBytes:    999,
		TransactionSizeBytes: 412,
	}
	first, firstRefund := DefaultRateTable().Fee(res)
	second, secondRefund := DefaultRateTable().Fee(res)
	require.Equal(t, first, second)
	require.Equal(t, firstRefund, secondRefund)
}

func TestFeeMonotone(t *testing.T) {
	base := TransactionResources{
		Instructions:         100_000,
		ReadEntries:          1,
		WriteEntries:         1,
		ReadBytes:            512,
		WriteBytes:           512,
		MetadataSizeBytes:    512,
		TransactionSizeBytes: 512,
	}
	baseFee, _ := DefaultRateTable().Fee(base)

	grow := []func(*TransactionResources){
		func(r *TransactionResources) { r.Instructions *= 2 },
		func(r *TransactionResources) { r.ReadEntries *= 2 },
		func(r *TransactionResources) { r.WriteEntries *= 2 },
		func(r *TransactionResources) { r.ReadBytes *= 2 },
		func(r *TransactionResources) { r.WriteBytes *= 2 },
		func(r *TransactionResources) { r.MetadataSizeBytes *= 2 },
		func(r *TransactionResources) { r.TransactionSizeBytes *= 2 },
	}
	for i, g := range grow {
		res := base
		g(&res)
		fee, _ := DefaultRateTable().Fee(res)
		require.GreaterOrEqual(t, fee, baseFee, "dimension %d", i)
	}
}

func TestRateTableOrDefault(t *testing.T) {
	require.Equal(t, DefaultRateTable(), RateTable{}.orDefault())

	custom := RateTable{FeePerInstructionIncrement: 1}
	require.Equal(t, custom, custom.orDefault())
}

func TestChargedInstructions(t *testing.T) {
	// Small runs get the fixed floor.
	require.EqualValues(t, 50_000, chargedInstructions(0))
	require.EqualValues(t, 150_000, chargedInstructions(100_000))

	// At the crossover the floor still wins by one instruction.
	require.EqualValues(t, 383_333, chargedInstructions(333_333))

	// Past it the proportional margin takes over.
	require.EqualValues(t, 383_341, chargedInstructions(333_340))
	require.EqualValues(t, 1_150_000, chargedInstructions(1_000_000))
}

func TestChargedInstructionsMonotone(t *testing.T) {
	var prev uint32
	for _, consumed := range []uint64{0, 1, 49_999, 50_000, 100_000, 333_333, 333_334, 400_000, 5_000_000} {
		got := chargedInstructions(consumed)
		require.GreaterOrEqual(t, got, prev, "consumed %d", consumed)
		prev = got
	}
}

func TestUnmodifiedEntryBytes(t *testing.T) {
	keyA := testDataKey(1, "a")
	entryA := testDataEntry(1, "a", "value-a")
	keyNew := testDataKey(1, "new")

	snapshot := hosttest.NewMemorySnapshot()
	snapshot.SetEntry(keyA, entryA)

	// Present key charges key plus entry bytes; an absent key is brand new
	// and charges only its key bytes.
	got, err := unmodifiedEntryBytes(snapshot, []xdr.LedgerKey{keyA, keyNew})
	require.NoError(t, err)
	want := mustLen(t, &keyA) + mustLen(t, &entryA) + mustLen(t, &keyNew)
	require.Equal(t, want, got)
}

func TestUnmodifiedEntryBytesSnapshotError(t *testing.T) {
	snapshot := hosttest.NewMemorySnapshot()
	snapshot.EntryErr = errTestFailure

	_, err := unmodifiedEntryBytes(snapshot, []xdr.LedgerKey{testDataKey(1, "a")})
	require.ErrorIs(t, err, ErrIntegration)
}

var errTestFailure = errString("snapshot backend down")

type errString string

func (e errString) Error() string { return string(e) }

func TestComputeResources(t *testing.T) {
	keyRead := testDataKey(1, "counter")
	entryRead := testDataEntry(1, "counter", "1")
	keyMod := testDataKey(1, "balance")
	entryModOld := testDataEntry(1, "balance", "10")
	entryModNew := testDataEntry(1, "balance", "10000000")
	keyNew := testDataKey(1, "fresh")
	entryNew := testDataEntry(1, "fresh", "created")

	snapshot := hosttest.NewMemorySnapshot().WithDefaultSettings()
	snapshot.SetEntry(keyRead, entryRead)
	snapshot.SetEntry(keyMod, entryModOld)

	storage := host.NewRecordingStorage(snapshot)
	_, err := storage.Get(keyRead)
	require.NoError(t, err)
	require.NoError(t, storage.Put(keyMod, entryModNew))
	require.NoError(t, storage.Put(keyNew, entryNew))

	budget := host.NewBudget(1_000_000, 1_000_000, nil, nil)
	require.NoError(t, budget.Charge(200_000, 5_000))

	res, err := computeResources(snapshot, storage.Footprint(), storage.Map(), budget, nil)
	require.NoError(t, err)

	require.Len(t, res.Footprint.ReadOnly, 1)
	require.Len(t, res.Footprint.ReadWrite, 2)

	roBytes := mustLen(t, &keyRead) + mustLen(t, &entryRead)
	// The new key has no prior entry; only its key counts toward the
	// unmodified read-write state.
	rwUnmodified := mustLen(t, &keyMod) + mustLen(t, &entryModOld) + mustLen(t, &keyNew)
	writeBytes := mustLen(t, &keyMod) + mustLen(t, &entryModNew) + mustLen(t, &keyNew) + mustLen(t, &entryNew)

	require.Equal(t, roBytes+rwUnmodified, res.ReadBytes)
	require.Equal(t, writeBytes, res.WriteBytes)
	require.Equal(t, rwUnmodified+writeBytes, res.MetadataSizeBytes)
	require.Equal(t, chargedInstructions(200_000), res.Instructions)
}

func TestComputeResourcesDeletedEntry(t *testing.T) {
	keyDel := testDataKey(2, "doomed")
	entryDel := testDataEntry(2, "doomed", "going away")

	snapshot := hosttest.NewMemorySnapshot()
	snapshot.SetEntry(keyDel, entryDel)

	storage := host.NewRecordingStorage(snapshot)
	require.NoError(t, storage.Del(keyDel))

	budget := host.NewBudget(1_000_000, 1_000_000, nil, nil)
	res, err := computeResources(snapshot, storage.Footprint(), storage.Map(), budget, nil)
	require.NoError(t, err)

	// Deleting reads the prior state but writes nothing back.
	rwUnmodified := mustLen(t, &keyDel) + mustLen(t, &entryDel)
	require.Equal(t, rwUnmodified, res.ReadBytes)
	require.Zero(t, res.WriteBytes)
	require.Equal(t, rwUnmodified, res.MetadataSizeBytes)
}

func TestComputeResourcesEvents(t *testing.T) {
	snapshot := hosttest.NewMemorySnapshot()
	storage := host.NewRecordingStorage(snapshot)
	budget := host.NewBudget(1_000_000, 1_000_000, nil, nil)

	events := []xdr.DiagnosticEvent{
		{
			InSuccessfulContractCall: true,
			Event: xdr.ContractEvent{
				Type:   xdr.ContractEventTypeContract,
				Topics: []xdr.ScVal{xdr.ScSym("transfer")},
				Data:   xdr.ScU64(5),
			},
		},
		{
			InSuccessfulContractCall: true,
			Event: xdr.ContractEvent{
				Type: xdr.ContractEventTypeDiagnostic,
				Data: xdr.ScVoid(),
			},
		},
	}
	res, err := computeResources(snapshot, storage.Footprint(), storage.Map(), budget, events)
	require.NoError(t, err)

	want := mustLen(t, &events[0]) + mustLen(t, &events[1])
	require.Equal(t, want, res.MetadataSizeBytes)
	require.Zero(t, res.ReadBytes)
	require.Zero(t, res.WriteBytes)
}

func TestComputeResourcesIsRepeatable(t *testing.T) {
	snapshot := hosttest.NewMemorySnapshot()
	snapshot.SetEntry(testDataKey(3, "x"), testDataEntry(3, "x", "1"))

	storage := host.NewRecordingStorage(snapshot)
	_, err := storage.Get(testDataKey(3, "x"))
	require.NoError(t, err)
	require.NoError(t, storage.Put(testDataKey(3, "y"), testDataEntry(3, "y", "2")))

	budget := host.NewBudget(1_000_000, 1_000_000, nil, nil)
	first, err := computeResources(snapshot, storage.Footprint(), storage.Map(), budget, nil)
	require.NoError(t, err)
	second, err := computeResources(snapshot, storage.Footprint(), storage.Map(), budget, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestModifiedReadWriteBytesUnclassifiedKey(t *testing.T) {
	entry := testDataEntry(4, "orphan", "v")
	sm := host.StorageMap{
		"unclassified": {Key: testDataKey(4, "orphan"), Entry: &entry},
	}
	storage := host.NewRecordingStorage(hosttest.NewMemorySnapshot())

	_, err := modifiedReadWriteBytes(storage.Footprint(), sm)
	require.ErrorIs(t, err, ErrInvariant)
}

func TestTransactionResourcesEntryCounts(t *testing.T) {
	res := xdr.Resources{
		Footprint: xdr.Footprint{
			ReadOnly:  []xdr.LedgerKey{testDataKey(5, "a"), testDataKey(5, "b")},
			ReadWrite: []xdr.LedgerKey{testDataKey(5, "c")},
		},
		Instructions:      77,
		ReadBytes:         100,
		WriteBytes:        50,
		MetadataSizeBytes: 150,
	}
	tr := transactionResources(res, 400)

	// Write entries are read first, so they count toward both totals.
	require.EqualValues(t, 3, tr.ReadEntries)
	require.EqualValues(t, 1, tr.WriteEntries)
	require.EqualValues(t, 77, tr.Instructions)
	require.EqualValues(t, 100, tr.ReadBytes)
	require.EqualValues(t, 50, tr.WriteBytes)
	require.EqualValues(t, 150, tr.MetadataSizeBytes)
	require.EqualValues(t, 400, tr.TransactionSizeBytes)
}
