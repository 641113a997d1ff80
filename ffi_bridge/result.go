package ffibridge

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/preflight"
	"github.com/meridianchain/preflight/xdr"
)

var log = logrus.WithField("module", "preflight-bridge")

// Result is the flat boundary record. Exactly one of Error or the success
// fields is populated; never both. Every Result must be released exactly once
// with ReleaseResult (or, on the C side, free_preflight_result).
type Result struct {
	// Error is the flattened failure message; empty on success.
	Error string

	// Auth holds base64 authorization entries.
	Auth []string

	// Value is the base64 invocation result value; empty for operations
	// that have none.
	Value string

	// TransactionData is the base64 resource/fee descriptor.
	TransactionData string

	// MinFee is the minimum inclusion fee.
	MinFee int64

	// Events holds base64 diagnostic events.
	Events []string

	CPUInstructions uint64
	MemoryBytes     uint64
}

// liveResults counts allocated-but-unreleased records, for leak detection in
// tests and the bridge gauge.
var liveResults atomic.Int64

// LiveResults reports the number of outstanding result records.
func LiveResults() int64 { return liveResults.Load() }

// ReleaseResult returns a record's allocation. Exactly one release per record;
// a second release of the same record is a caller bug, mirrored from the
// manual-free contract on the C side.
func ReleaseResult(r *Result) {
	if r == nil {
		return
	}
	liveResults.Add(-1)
	liveResultGauge.Dec()
}

func newResult() *Result {
	liveResults.Add(1)
	liveResultGauge.Inc()
	return &Result{}
}

func errorResult(msg string) *Result {
	r := newResult()
	r.Error = msg
	return r
}

// guarded runs one boundary call, intercepting any fault — including machine
// panics — and downgrading it to an error-only record. Nothing may unwind
// past this function; the engine stays usable for subsequent calls.
func guarded(op string, fn func() (*preflight.Result, error)) (out *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"op": op, "panic": r}).Warn("contained panic during preflight call")
			boundaryCalls.WithLabelValues(op, "panic").Inc()
			out = errorResult(fmt.Sprintf("panic during preflight call: %v", r))
		}
	}()

	res, err := fn()
	if err != nil {
		log.WithFields(logrus.Fields{"op": op, "err": err}).Debug("preflight call failed")
		boundaryCalls.WithLabelValues(op, "error").Inc()
		return errorResult(err.Error())
	}
	boundaryCalls.WithLabelValues(op, "ok").Inc()
	return successResult(res)
}

func successResult(res *preflight.Result) *Result {
	out := newResult()
	out.MinFee = res.MinFee
	out.CPUInstructions = res.CPUInstructions
	out.MemoryBytes = res.MemoryBytes

	var err error
	if out.TransactionData, err = xdr.MarshalBase64(&res.TransactionData); err != nil {
		return marshalFailure(out, err)
	}
	// Footprint-expiration results have no value; their record carries an
	// empty string.
	if res.Value != (xdr.ScVal{}) {
		if out.Value, err = xdr.MarshalBase64(&res.Value); err != nil {
			return marshalFailure(out, err)
		}
	}
	out.Auth = make([]string, len(res.Auth))
	for i := range res.Auth {
		if out.Auth[i], err = xdr.MarshalBase64(&res.Auth[i]); err != nil {
			return marshalFailure(out, err)
		}
	}
	out.Events = make([]string, len(res.Events))
	for i := range res.Events {
		if out.Events[i], err = xdr.MarshalBase64(&res.Events[i]); err != nil {
			return marshalFailure(out, err)
		}
	}
	return out
}

// marshalFailure converts a half-built success record into an error-only one,
// keeping the one-or-the-other contract intact.
func marshalFailure(r *Result, err error) *Result {
	*r = Result{Error: fmt.Sprintf("encoding result: %v", err)}
	return r
}

// InvokeOp is the boundary entry point for contract invocations: base64 XDR
// payloads in, one owned result record out.
func InvokeOp(handle uintptr, bucketListSize uint64, opB64, sourceAccountB64 string, info ledger.Info) *Result {
	return guarded("invoke", func() (*preflight.Result, error) {
		snapshot, ok := lookupSnapshot(handle)
		if !ok {
			return nil, fmt.Errorf("unknown snapshot handle %d", handle)
		}
		factory, err := currentFactory()
		if err != nil {
			return nil, err
		}

		var op xdr.InvokeOp
		if err := xdr.UnmarshalBase64(opB64, &op); err != nil {
			return nil, fmt.Errorf("%w: invoke op: %v", preflight.ErrEncoding, err)
		}
		var source xdr.AccountID
		if err := xdr.UnmarshalBase64(sourceAccountB64, &source); err != nil {
			return nil, fmt.Errorf("%w: source account: %v", preflight.ErrEncoding, err)
		}

		return preflight.Invoke(preflight.InvokeParams{
			Snapshot:       snapshot,
			NewHost:        factory,
			Op:             op,
			SourceAccount:  source,
			LedgerInfo:     info,
			BucketListSize: bucketListSize,
		})
	})
}

// FootprintTTLOp is the boundary entry point for footprint-expiration and
// restoration operations.
func FootprintTTLOp(handle uintptr, bucketListSize uint64, opBodyB64, footprintB64 string, currentLedgerSeq uint32) *Result {
	return guarded("footprint_ttl", func() (*preflight.Result, error) {
		snapshot, ok := lookupSnapshot(handle)
		if !ok {
			return nil, fmt.Errorf("unknown snapshot handle %d", handle)
		}

		var body xdr.OperationBody
		if err := xdr.UnmarshalBase64(opBodyB64, &body); err != nil {
			return nil, fmt.Errorf("%w: operation body: %v", preflight.ErrEncoding, err)
		}
		var fp xdr.Footprint
		if err := xdr.UnmarshalBase64(footprintB64, &fp); err != nil {
			return nil, fmt.Errorf("%w: footprint: %v", preflight.ErrEncoding, err)
		}

		return preflight.FootprintTTL(preflight.FootprintTTLParams{
			Snapshot:         snapshot,
			Op:               body,
			Footprint:        fp,
			CurrentLedgerSeq: currentLedgerSeq,
			BucketListSize:   bucketListSize,
		})
	})
}
