// Package preflight estimates the resources and minimum fee of a contract
// operation by executing it against a read-only ledger snapshot in an embedded
// virtual machine, without committing any state change. Each call is an
// independent, stateless request/response; the package keeps no state between
// calls and is safe to invoke from concurrent goroutines as long as each call
// gets its own snapshot handle.
package preflight

import (
	"fmt"

	"github.com/meridianchain/preflight/host"
	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

// InvokeParams carries everything one contract-invocation preflight needs.
type InvokeParams struct {
	// Snapshot is the read-only ledger view for this call.
	Snapshot ledger.SnapshotSource

	// NewHost constructs the virtual machine for this call.
	NewHost host.Factory

	// Op is the candidate invocation. Empty Op.Auth switches the run into
	// auth-recording mode.
	Op xdr.InvokeOp

	// SourceAccount is the account that would submit the transaction.
	SourceAccount xdr.AccountID

	// LedgerInfo is the ledger context the machine executes under.
	LedgerInfo ledger.Info

	// BucketListSize is the caller's hint of current ledger size. Reserved
	// for deriving the fee schedule from live network state; the fixed
	// RateTable ignores it.
	BucketListSize uint64

	// Rates is the fee schedule. The zero value selects the defaults.
	Rates RateTable
}

// Result is a successful simulation outcome.
type Result struct {
	// Auth is the full set of authorization entries the transaction needs:
	// either the caller-supplied ones, or the recorded ones with empty
	// signature placeholders for the caller to sign.
	Auth []xdr.AuthorizationEntry

	// Value is the invocation's result value. Operations without one (the
	// footprint-expiration entry point) leave it zero.
	Value xdr.ScVal

	// TransactionData is the resource descriptor plus refundable fee, ready
	// to attach to the transaction.
	TransactionData xdr.TransactionData

	// MinFee is the minimum inclusion fee for the descriptor.
	MinFee int64

	// Events are all diagnostic events the machine emitted, captured
	// regardless of invocation success.
	Events []xdr.DiagnosticEvent

	// CPUInstructions and MemoryBytes are the raw consumed budget counters,
	// before the leeway applied to the charged descriptor.
	CPUInstructions uint64
	MemoryBytes     uint64
}

// Invoke runs one contract-invocation preflight.
func Invoke(p InvokeParams) (*Result, error) {
	storage := host.NewRecordingStorage(p.Snapshot)

	budget, err := host.NewBudgetFromConfig(p.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: deriving budget: %v", ErrIntegration, err)
	}

	h, err := p.NewHost(storage, budget)
	if err != nil {
		return nil, fmt.Errorf("%w: creating machine: %v", ErrEngineFault, err)
	}

	recordingAuth := len(p.Op.Auth) == 0
	if recordingAuth {
		err = h.SwitchToRecordingAuth()
	} else {
		err = h.SetAuthorizationEntries(p.Op.Auth)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: configuring authorization: %v", ErrEngineFault, err)
	}

	// Maximum verbosity up front: a failed invocation must still yield a
	// usable footprint and its events.
	if err := h.SetDiagnosticLevel(host.DiagnosticDebug); err != nil {
		return nil, fmt.Errorf("%w: setting diagnostics: %v", ErrEngineFault, err)
	}
	if err := h.SetSourceAccount(p.SourceAccount); err != nil {
		return nil, fmt.Errorf("%w: setting source account: %v", ErrEngineFault, err)
	}
	if err := h.SetLedgerInfo(p.LedgerInfo); err != nil {
		return nil, fmt.Errorf("%w: setting ledger info: %v", ErrEngineFault, err)
	}

	value, err := h.InvokeFunction(p.Op.Function)
	if err != nil {
		return nil, fmt.Errorf("%w: invoking function: %v", ErrEngineFault, err)
	}

	auth := p.Op.Auth
	if recordingAuth {
		payloads, err := h.RecordedAuthPayloads()
		if err != nil {
			return nil, fmt.Errorf("%w: harvesting recorded auth: %v", ErrEngineFault, err)
		}
		auth = make([]xdr.AuthorizationEntry, len(payloads))
		for i, payload := range payloads {
			auth[i], err = authEntryFromRecorded(payload)
			if err != nil {
				return nil, err
			}
		}
	}

	machineEvents, err := h.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: finishing machine: %v", ErrEngineFault, err)
	}
	events := host.DiagnosticEvents(machineEvents)

	resources, err := computeResources(p.Snapshot, storage.Footprint(), storage.Map(), budget, events)
	if err != nil {
		return nil, err
	}

	// Size the envelope with the final auth set: recorded entries grow the
	// operation and must be paid for.
	opBody := xdr.InvokeOperation(xdr.InvokeOp{Function: p.Op.Function, Auth: auth})
	txSize, err := estimateTransactionSize(opBody, resources.Footprint)
	if err != nil {
		return nil, err
	}

	minFee, refundable := p.Rates.orDefault().Fee(transactionResources(resources, txSize))
	return &Result{
		Auth:            auth,
		Value:           value,
		TransactionData: xdr.TransactionData{Resources: resources, RefundableFee: refundable},
		MinFee:          minFee,
		Events:          events,
		CPUInstructions: budget.CPUInstructionsConsumed(),
		MemoryBytes:     budget.MemoryBytesConsumed(),
	}, nil
}

// authEntryFromRecorded converts a recorded authorization payload into its
// canonical entry form. The machine guarantees address and nonce appear
// together or not at all; anything else is a bug upstream and is never
// guessed at.
func authEntryFromRecorded(p host.RecordedAuthPayload) (xdr.AuthorizationEntry, error) {
	switch {
	case p.Address != nil && p.Nonce != nil:
		return xdr.AuthorizationEntry{
			Credentials: xdr.Credentials{
				Type: xdr.CredentialsTypeAddress,
				Address: &xdr.AddressCredentials{
					Address: *p.Address,
					Nonce:   *p.Nonce,
					// The signature stays void with zero expiration; the
					// client fills it in when signing.
					SignatureExpirationLedger: 0,
					Signature:                 xdr.ScVoid(),
				},
			},
			RootInvocation: p.Invocation,
		}, nil
	case p.Address == nil && p.Nonce == nil:
		return xdr.AuthorizationEntry{
			Credentials:    xdr.SourceAccountCredentials(),
			RootInvocation: p.Invocation,
		}, nil
	default:
		return xdr.AuthorizationEntry{}, fmt.Errorf(
			"%w: recorded auth payload with address and nonce present independently (address set: %t, nonce set: %t)",
			ErrInvariant, p.Address != nil, p.Nonce != nil)
	}
}
