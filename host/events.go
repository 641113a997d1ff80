package host

import "github.com/meridianchain/preflight/xdr"

// Event is one log record emitted by the machine, tagged with whether the
// call that emitted it ultimately failed.
type Event struct {
	FailedCall bool
	Event      xdr.ContractEvent
}

// DiagnosticEvents converts machine events to their wire form.
func DiagnosticEvents(events []Event) []xdr.DiagnosticEvent {
	out := make([]xdr.DiagnosticEvent, len(events))
	for i, e := range events {
		out[i] = xdr.DiagnosticEvent{
			InSuccessfulContractCall: !e.FailedCall,
			Event:                    e.Event,
		}
	}
	return out
}
