package ffibridge

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/meridianchain/preflight/host/hosttest"
	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

func testLedgerInfo() ledger.Info {
	return ledger.Info{
		ProtocolVersion:   20,
		SequenceNumber:    100,
		Timestamp:         1_700_000_000,
		NetworkPassphrase: "Bridge Test Network ; 2026",
	}
}

func testInvokeOpB64(t *testing.T) string {
	t.Helper()
	var contract xdr.Hash
	contract[0] = 1
	op := xdr.InvokeOp{
		Function: xdr.InvokeContractFunction(xdr.InvokeContractArgs{
			Contract: xdr.ContractAddress(contract),
			Function: "hello",
		}),
	}
	b64, err := xdr.MarshalBase64(&op)
	if err != nil {
		t.Fatalf("marshalling invoke op: %v", err)
	}
	return b64
}

func testSourceB64(t *testing.T) string {
	t.Helper()
	var source xdr.AccountID
	source.Ed25519[0] = 0xCD
	b64, err := xdr.MarshalBase64(&source)
	if err != nil {
		t.Fatalf("marshalling source account: %v", err)
	}
	return b64
}

// TestInvokeOpSuccess runs a full boundary call against a fake machine and
// checks the record's success half is populated and releasable.
func TestInvokeOpSuccess(t *testing.T) {
	vm := hosttest.NewFakeVM(hosttest.Script{
		CPU:    100_000,
		Mem:    4_096,
		Result: xdr.ScU64(7),
	})
	SetHostFactory(vm.Factory())
	defer SetHostFactory(nil)

	h := RegisterSnapshot(hosttest.NewMemorySnapshot().WithDefaultSettings())
	defer ReleaseSnapshot(h)

	before := LiveResults()
	res := InvokeOp(h, 0, testInvokeOpB64(t), testSourceB64(t), testLedgerInfo())
	if res.Error != "" {
		t.Fatalf("unexpected boundary error: %s", res.Error)
	}
	if res.MinFee <= 0 {
		t.Fatalf("min fee must be positive, got %d", res.MinFee)
	}
	if res.CPUInstructions != 100_000 || res.MemoryBytes != 4_096 {
		t.Fatalf("consumed counters not propagated: cpu=%d mem=%d", res.CPUInstructions, res.MemoryBytes)
	}
	if res.TransactionData == "" {
		t.Fatalf("transaction data must be populated on success")
	}

	var value xdr.ScVal
	if err := xdr.UnmarshalBase64(res.Value, &value); err != nil {
		t.Fatalf("result value does not decode: %v", err)
	}
	if value.Type != xdr.ScValTypeU64 || *value.U64 != 7 {
		t.Fatalf("unexpected result value %+v", value)
	}

	ReleaseResult(res)
	if after := LiveResults(); after != before {
		t.Fatalf("result record leaked: live count %d, want %d", after, before)
	}
}

// TestInvokeOpUnknownHandle checks that a released or bogus handle fails
// without reaching the machine.
func TestInvokeOpUnknownHandle(t *testing.T) {
	vm := hosttest.NewFakeVM(hosttest.Script{})
	SetHostFactory(vm.Factory())
	defer SetHostFactory(nil)

	res := InvokeOp(0xDEAD, 0, testInvokeOpB64(t), testSourceB64(t), testLedgerInfo())
	defer ReleaseResult(res)

	if !strings.Contains(res.Error, "unknown snapshot handle") {
		t.Fatalf("expected unknown-handle error, got %q", res.Error)
	}
	if vm.LastHost != nil {
		t.Fatalf("machine must not be constructed for a bad handle")
	}
}

// TestInvokeOpNoBackend checks the error when no machine is registered.
func TestInvokeOpNoBackend(t *testing.T) {
	SetHostFactory(nil)

	h := RegisterSnapshot(hosttest.NewMemorySnapshot().WithDefaultSettings())
	defer ReleaseSnapshot(h)

	res := InvokeOp(h, 0, testInvokeOpB64(t), testSourceB64(t), testLedgerInfo())
	defer ReleaseResult(res)

	if !strings.Contains(res.Error, "no virtual machine backend") {
		t.Fatalf("expected missing-backend error, got %q", res.Error)
	}
}

// TestInvokeOpBadPayload checks that undecodable base64 input is flattened
// into the record, not returned as a Go error or panic.
func TestInvokeOpBadPayload(t *testing.T) {
	vm := hosttest.NewFakeVM(hosttest.Script{})
	SetHostFactory(vm.Factory())
	defer SetHostFactory(nil)

	h := RegisterSnapshot(hosttest.NewMemorySnapshot().WithDefaultSettings())
	defer ReleaseSnapshot(h)

	res := InvokeOp(h, 0, "not base64 at all!", testSourceB64(t), testLedgerInfo())
	defer ReleaseResult(res)

	if res.Error == "" {
		t.Fatalf("expected a decode failure")
	}
	if res.TransactionData != "" || res.Value != "" {
		t.Fatalf("error record must not carry success fields")
	}
}

// TestInvokeOpPanicContained checks that a machine panic is downgraded to an
// error record and the bridge keeps serving calls afterwards.
func TestInvokeOpPanicContained(t *testing.T) {
	vm := hosttest.NewFakeVM(hosttest.Script{PanicMsg: "machine fault"})
	SetHostFactory(vm.Factory())
	defer SetHostFactory(nil)

	h := RegisterSnapshot(hosttest.NewMemorySnapshot().WithDefaultSettings())
	defer ReleaseSnapshot(h)

	res := InvokeOp(h, 0, testInvokeOpB64(t), testSourceB64(t), testLedgerInfo())
	if !strings.Contains(res.Error, "panic during preflight call") || !strings.Contains(res.Error, "machine fault") {
		t.Fatalf("expected contained panic in record, got %q", res.Error)
	}
	ReleaseResult(res)

	// The registry and backend must survive the fault.
	SetHostFactory(hosttest.NewFakeVM(hosttest.Script{Result: xdr.ScVoid()}).Factory())
	res = InvokeOp(h, 0, testInvokeOpB64(t), testSourceB64(t), testLedgerInfo())
	defer ReleaseResult(res)
	if res.Error != "" {
		t.Fatalf("bridge unusable after contained panic: %s", res.Error)
	}
}

// TestFootprintTTLOpSuccess drives the expiration entry point end to end.
func TestFootprintTTLOpSuccess(t *testing.T) {
	var contract xdr.Hash
	contract[0] = 2
	key := xdr.ContractDataKey(xdr.ContractAddress(contract), xdr.ScSym("state"), xdr.ContractDataPersistent)
	entry := xdr.ContractDataLedgerEntry(3, xdr.ContractDataEntry{
		Contract:   xdr.ContractAddress(contract),
		Key:        xdr.ScSym("state"),
		Durability: xdr.ContractDataPersistent,
		Val:        xdr.ScU64(11),
	})

	snapshot := hosttest.NewMemorySnapshot()
	snapshot.SetEntry(key, entry)
	h := RegisterSnapshot(snapshot)
	defer ReleaseSnapshot(h)

	body := xdr.OperationBody{
		Type: xdr.OperationTypeBumpFootprintExpiration,
		Bump: &xdr.BumpFootprintExpirationOp{LedgersToExpire: 1000},
	}
	bodyB64, err := xdr.MarshalBase64(&body)
	if err != nil {
		t.Fatalf("marshalling op body: %v", err)
	}
	fp := xdr.Footprint{ReadOnly: []xdr.LedgerKey{key}}
	fpB64, err := xdr.MarshalBase64(&fp)
	if err != nil {
		t.Fatalf("marshalling footprint: %v", err)
	}

	res := FootprintTTLOp(h, 0, bodyB64, fpB64, 500)
	defer ReleaseResult(res)

	if res.Error != "" {
		t.Fatalf("unexpected boundary error: %s", res.Error)
	}
	if res.MinFee <= 0 {
		t.Fatalf("min fee must be positive, got %d", res.MinFee)
	}
	if res.TransactionData == "" {
		t.Fatalf("transaction data must be populated on success")
	}
	if res.Value != "" {
		t.Fatalf("expiration records carry no result value, got %q", res.Value)
	}
}

// TestFootprintTTLOpHostileFootprint feeds a footprint whose length prefix
// claims four billion keys; the call must fail as a decode error in the
// record, never by taking the process down.
func TestFootprintTTLOpHostileFootprint(t *testing.T) {
	h := RegisterSnapshot(hosttest.NewMemorySnapshot())
	defer ReleaseSnapshot(h)

	body := xdr.OperationBody{
		Type: xdr.OperationTypeBumpFootprintExpiration,
		Bump: &xdr.BumpFootprintExpirationOp{LedgersToExpire: 1},
	}
	bodyB64, err := xdr.MarshalBase64(&body)
	if err != nil {
		t.Fatalf("marshalling op body: %v", err)
	}
	hostileFp := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	res := FootprintTTLOp(h, 0, bodyB64, hostileFp, 500)
	defer ReleaseResult(res)

	if res.Error == "" {
		t.Fatalf("expected a decode failure for the hostile footprint")
	}
}

// TestResultAllocationSymmetry runs a batch of boundary calls, successes and
// failures mixed, and checks the live-record count returns to its baseline
// after one release per record.
func TestResultAllocationSymmetry(t *testing.T) {
	vm := hosttest.NewFakeVM(hosttest.Script{Result: xdr.ScU64(1)})
	SetHostFactory(vm.Factory())
	defer SetHostFactory(nil)

	h := RegisterSnapshot(hosttest.NewMemorySnapshot().WithDefaultSettings())
	defer ReleaseSnapshot(h)

	before := LiveResults()
	const rounds = 8
	var results []*Result
	for i := 0; i < rounds; i++ {
		results = append(results, InvokeOp(h, 0, testInvokeOpB64(t), testSourceB64(t), testLedgerInfo()))
		results = append(results, InvokeOp(0xBAD, 0, testInvokeOpB64(t), testSourceB64(t), testLedgerInfo()))
	}

	if got := LiveResults(); got != before+int64(len(results)) {
		t.Fatalf("live count %d after %d calls, want %d", got, len(results), before+int64(len(results)))
	}
	for _, r := range results {
		ReleaseResult(r)
	}
	if got := LiveResults(); got != before {
		t.Fatalf("live count %d after releasing everything, want %d", got, before)
	}
}
