// Package host defines the engine-side contract with the embedded virtual
// machine: the capability interface the machine implements, the instruction
// and memory budget it charges against, and the recording storage view it
// reads and writes during a simulation.
package host

import (
	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

// DiagnosticLevel controls how much the machine reports while executing.
type DiagnosticLevel int

const (
	DiagnosticNone DiagnosticLevel = iota
	DiagnosticDebug
)

// String returns a human-readable name for the level.
func (l DiagnosticLevel) String() string {
	switch l {
	case DiagnosticNone:
		return "none"
	case DiagnosticDebug:
		return "debug"
	}
	return "unknown"
}

// RecordedAuthPayload is one authorization the machine observed would be
// required while running in auth-recording mode. Address and Nonce are either
// both set or both nil; the orchestrator treats any other combination as an
// invariant violation.
type RecordedAuthPayload struct {
	Address    *xdr.ScAddress
	Nonce      *int64
	Invocation xdr.Invocation
}

// Host is the opaque virtual-machine capability. One Host executes exactly one
// preflight call; it reads and writes through the RecordingStorage and charges
// the Budget it was constructed with.
//
// A failing contract invocation is reported in-band (an error-carrying result
// value plus diagnostic events); the error return of InvokeFunction is
// reserved for machine faults that make harvesting impossible.
type Host interface {
	// SwitchToRecordingAuth puts the machine in auth-recording mode: it
	// records which authorizations would be required instead of verifying
	// supplied ones.
	SwitchToRecordingAuth() error

	// SetAuthorizationEntries supplies pre-signed entries to replay in
	// enforcing mode.
	SetAuthorizationEntries(auth []xdr.AuthorizationEntry) error

	SetDiagnosticLevel(level DiagnosticLevel) error
	SetSourceAccount(account xdr.AccountID) error
	SetLedgerInfo(info ledger.Info) error

	// InvokeFunction executes the host function and returns its result value.
	InvokeFunction(fn xdr.HostFunction) (xdr.ScVal, error)

	// RecordedAuthPayloads returns the authorizations recorded so far. Only
	// meaningful after SwitchToRecordingAuth.
	RecordedAuthPayloads() ([]RecordedAuthPayload, error)

	// Finish releases the machine and yields the events it emitted. The
	// footprint and storage map are harvested from the RecordingStorage the
	// orchestrator handed to the factory.
	Finish() ([]Event, error)
}

// Factory constructs a Host for one call from its storage view and budget.
// The bridge layer registers the machine implementation; tests inject fakes.
type Factory func(storage *RecordingStorage, budget *Budget) (Host, error)
