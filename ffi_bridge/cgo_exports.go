//go:build cgo && preflightffi
// +build cgo,preflightffi

package ffibridge

/*
#include <stdint.h>
#include <stdlib.h>

// Canonical layout of the boundary records. The struct layout **must** remain
// in sync with the header shipped to embedding processes.

typedef struct {
	uint32_t protocol_version;
	uint32_t sequence_number;
	uint64_t timestamp;
	char    *network_passphrase;
	uint32_t base_reserve;
	uint32_t min_temp_entry_expiration;
	uint32_t min_persistent_entry_expiration;
	uint32_t max_entry_expiration;
	uint32_t autobump_ledgers;
} preflight_ledger_info_t;

typedef struct {
	char    *error;            // error string, NULL on success
	char   **auth;             // NULL-terminated array of base64 auth entries
	char    *result;           // base64 invocation result value
	char    *transaction_data; // base64 resource/fee descriptor
	int64_t  min_fee;
	char   **events;           // NULL-terminated array of base64 diagnostic events
	uint64_t cpu_instructions;
	uint64_t memory_bytes;
} preflight_result_t;
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/meridianchain/preflight/ledger"
)

// cLiveResults counts C records handed out and not yet freed. Exposed for
// embedding-process leak checks.
var cLiveResults atomic.Int64

func ledgerInfoFromC(ci C.preflight_ledger_info_t) ledger.Info {
	return ledger.Info{
		ProtocolVersion:              uint32(ci.protocol_version),
		SequenceNumber:               uint32(ci.sequence_number),
		Timestamp:                    uint64(ci.timestamp),
		NetworkPassphrase:            C.GoString(ci.network_passphrase),
		BaseReserve:                  uint32(ci.base_reserve),
		MinTempEntryExpiration:       uint32(ci.min_temp_entry_expiration),
		MinPersistentEntryExpiration: uint32(ci.min_persistent_entry_expiration),
		MaxEntryExpiration:           uint32(ci.max_entry_expiration),
		AutobumpLedgers:              uint32(ci.autobump_ledgers),
	}
}

// cStringArray allocates a NULL-terminated char* array; every element and the
// array itself are independently owned C allocations.
func cStringArray(ss []string) **C.char {
	n := len(ss) + 1
	arr := (**C.char)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	slice := unsafe.Slice(arr, n)
	for i, s := range ss {
		slice[i] = C.CString(s)
	}
	slice[n-1] = nil
	return arr
}

func freeCStringArray(arr **C.char) {
	for i := 0; ; i++ {
		elem := (**C.char)(unsafe.Add(unsafe.Pointer(arr), uintptr(i)*unsafe.Sizeof(uintptr(0))))
		if *elem == nil {
			break
		}
		C.free(unsafe.Pointer(*elem))
	}
	C.free(unsafe.Pointer(arr))
}

// resultToC converts a Go record into one heap-allocated C record. Ownership
// of every field transfers to the caller; the Go record is released here.
func resultToC(r *Result) *C.preflight_result_t {
	out := (*C.preflight_result_t)(C.malloc(C.size_t(unsafe.Sizeof(C.preflight_result_t{}))))
	*out = C.preflight_result_t{}
	if r.Error != "" {
		out.error = C.CString(r.Error)
	} else {
		out.auth = cStringArray(r.Auth)
		if r.Value != "" {
			out.result = C.CString(r.Value)
		}
		out.transaction_data = C.CString(r.TransactionData)
		out.min_fee = C.int64_t(r.MinFee)
		out.events = cStringArray(r.Events)
		out.cpu_instructions = C.uint64_t(r.CPUInstructions)
		out.memory_bytes = C.uint64_t(r.MemoryBytes)
	}
	ReleaseResult(r)
	cLiveResults.Add(1)
	return out
}

//export preflight_invoke_op
func preflight_invoke_op(handle C.uintptr_t, bucketListSize C.uint64_t, op, sourceAccount *C.char, info C.preflight_ledger_info_t) *C.preflight_result_t {
	return resultToC(InvokeOp(
		uintptr(handle),
		uint64(bucketListSize),
		C.GoString(op),
		C.GoString(sourceAccount),
		ledgerInfoFromC(info),
	))
}

//export preflight_footprint_ttl_op
func preflight_footprint_ttl_op(handle C.uintptr_t, bucketListSize C.uint64_t, opBody, footprint *C.char, currentLedgerSeq C.uint32_t) *C.preflight_result_t {
	return resultToC(FootprintTTLOp(
		uintptr(handle),
		uint64(bucketListSize),
		C.GoString(opBody),
		C.GoString(footprint),
		uint32(currentLedgerSeq),
	))
}

// free_preflight_result frees one record previously returned by this engine,
// whole: the error string or all success arrays and strings, then the record
// itself. Each record must be freed exactly once; double-free or
// use-after-free is undefined behavior by contract.
//
//export free_preflight_result
func free_preflight_result(res *C.preflight_result_t) {
	if res == nil {
		return
	}
	if res.error != nil {
		C.free(unsafe.Pointer(res.error))
	}
	if res.auth != nil {
		freeCStringArray(res.auth)
	}
	if res.result != nil {
		C.free(unsafe.Pointer(res.result))
	}
	if res.transaction_data != nil {
		C.free(unsafe.Pointer(res.transaction_data))
	}
	if res.events != nil {
		freeCStringArray(res.events)
	}
	C.free(unsafe.Pointer(res))
	cLiveResults.Add(-1)
}
