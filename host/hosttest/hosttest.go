// Package hosttest provides an in-memory snapshot source and a scriptable
// fake virtual machine for exercising the preflight pipeline without a real
// embedded machine.
package hosttest

import (
	"fmt"

	"github.com/meridianchain/preflight/host"
	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

// MemorySnapshot is a map-backed ledger.SnapshotSource.
type MemorySnapshot struct {
	entries  map[string]xdr.LedgerEntry
	settings map[xdr.ConfigSettingID]xdr.ConfigSettingEntry

	// EntryErr, when set, is returned by every GetLedgerEntry call.
	EntryErr error
}

// NewMemorySnapshot returns an empty snapshot.
func NewMemorySnapshot() *MemorySnapshot {
	return &MemorySnapshot{
		entries:  make(map[string]xdr.LedgerEntry),
		settings: make(map[xdr.ConfigSettingID]xdr.ConfigSettingEntry),
	}
}

// WithDefaultSettings installs the config settings a budget derivation needs,
// with generous limits.
func (s *MemorySnapshot) WithDefaultSettings() *MemorySnapshot {
	s.SetConfigSetting(xdr.ComputeSettingEntry(xdr.ComputeSettings{
		LedgerMaxInstructions:           1_000_000_000,
		TxMaxInstructions:               100_000_000,
		FeeRatePerInstructionsIncrement: 100,
		TxMemoryLimit:                   100 << 20,
	}))
	s.SetConfigSetting(xdr.CPUCostParamsEntry(xdr.ContractCostParams{{ConstTerm: 1, LinearTerm: 1}}))
	s.SetConfigSetting(xdr.MemCostParamsEntry(xdr.ContractCostParams{{ConstTerm: 1, LinearTerm: 1}}))
	return s
}

// SetEntry stores an entry under its key.
func (s *MemorySnapshot) SetEntry(key xdr.LedgerKey, entry xdr.LedgerEntry) {
	b, err := xdr.Marshal(&key)
	if err != nil {
		panic(fmt.Sprintf("hosttest: unencodable key: %v", err))
	}
	s.entries[string(b)] = entry
}

// SetConfigSetting stores a configuration setting.
func (s *MemorySnapshot) SetConfigSetting(entry xdr.ConfigSettingEntry) {
	s.settings[entry.ID] = entry
}

// RemoveConfigSetting deletes a setting, simulating malformed network state.
func (s *MemorySnapshot) RemoveConfigSetting(id xdr.ConfigSettingID) {
	delete(s.settings, id)
}

// GetLedgerEntry implements ledger.SnapshotSource.
func (s *MemorySnapshot) GetLedgerEntry(key xdr.LedgerKey) (xdr.LedgerEntry, bool, error) {
	if s.EntryErr != nil {
		return xdr.LedgerEntry{}, false, s.EntryErr
	}
	b, err := xdr.Marshal(&key)
	if err != nil {
		return xdr.LedgerEntry{}, false, err
	}
	entry, ok := s.entries[string(b)]
	return entry, ok, nil
}

// GetConfigSetting implements ledger.SnapshotSource.
func (s *MemorySnapshot) GetConfigSetting(id xdr.ConfigSettingID) (xdr.ConfigSettingEntry, error) {
	entry, ok := s.settings[id]
	if !ok {
		return xdr.ConfigSettingEntry{}, fmt.Errorf("config setting %d not found", id)
	}
	return entry, nil
}

// Script drives a FakeVM run: what the machine touches, consumes, records and
// returns.
type Script struct {
	// Touch is called during InvokeFunction with the run's storage view.
	Touch func(*host.RecordingStorage) error

	// CPU and Mem are charged to the budget during InvokeFunction.
	CPU uint64
	Mem uint64

	// Result is the invocation's return value.
	Result xdr.ScVal

	// InvokeErr, when set, is returned by InvokeFunction.
	InvokeErr error

	// PanicMsg, when non-empty, makes InvokeFunction panic to simulate an
	// internal machine fault.
	PanicMsg string

	// Payloads are the authorizations reported in recording mode.
	Payloads []host.RecordedAuthPayload

	// Events are the diagnostic events the machine emits.
	Events []host.Event
}

// FakeVM builds fake hosts from a script and remembers the last one for
// assertions.
type FakeVM struct {
	Script Script

	// LastHost is the host created by the most recent Factory call.
	LastHost *FakeHost
}

// NewFakeVM wraps a script.
func NewFakeVM(script Script) *FakeVM {
	return &FakeVM{Script: script}
}

// Factory returns a host.Factory producing fakes bound to this VM's script.
func (vm *FakeVM) Factory() host.Factory {
	return func(storage *host.RecordingStorage, budget *host.Budget) (host.Host, error) {
		vm.LastHost = &FakeHost{script: vm.Script, storage: storage, budget: budget}
		return vm.LastHost, nil
	}
}

// FakeHost is a scripted host.Host.
type FakeHost struct {
	script  Script
	storage *host.RecordingStorage
	budget  *host.Budget

	Recording    bool
	SuppliedAuth []xdr.AuthorizationEntry
	DiagLevel    host.DiagnosticLevel
	Source       xdr.AccountID
	Info         ledger.Info
	Finished     bool
}

// SwitchToRecordingAuth implements host.Host.
func (h *FakeHost) SwitchToRecordingAuth() error {
	h.Recording = true
	return nil
}

// SetAuthorizationEntries implements host.Host.
func (h *FakeHost) SetAuthorizationEntries(auth []xdr.AuthorizationEntry) error {
	h.SuppliedAuth = auth
	return nil
}

// SetDiagnosticLevel implements host.Host.
func (h *FakeHost) SetDiagnosticLevel(level host.DiagnosticLevel) error {
	h.DiagLevel = level
	return nil
}

// SetSourceAccount implements host.Host.
func (h *FakeHost) SetSourceAccount(account xdr.AccountID) error {
	h.Source = account
	return nil
}

// SetLedgerInfo implements host.Host.
func (h *FakeHost) SetLedgerInfo(info ledger.Info) error {
	h.Info = info
	return nil
}

// InvokeFunction implements host.Host.
func (h *FakeHost) InvokeFunction(xdr.HostFunction) (xdr.ScVal, error) {
	if h.script.PanicMsg != "" {
		panic(h.script.PanicMsg)
	}
	if h.script.Touch != nil {
		if err := h.script.Touch(h.storage); err != nil {
			return xdr.ScVal{}, err
		}
	}
	if h.script.CPU > 0 || h.script.Mem > 0 {
		if err := h.budget.Charge(h.script.CPU, h.script.Mem); err != nil {
			return xdr.ScVal{}, err
		}
	}
	return h.script.Result, h.script.InvokeErr
}

// RecordedAuthPayloads implements host.Host.
func (h *FakeHost) RecordedAuthPayloads() ([]host.RecordedAuthPayload, error) {
	return h.script.Payloads, nil
}

// Finish implements host.Host.
func (h *FakeHost) Finish() ([]host.Event, error) {
	h.Finished = true
	return h.script.Events, nil
}
