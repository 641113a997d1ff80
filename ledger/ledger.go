// Package ledger defines the read-only view of chain state the preflight
// engine runs against: per-call ledger metadata and the snapshot/query
// capability supplied by the hosting process.
package ledger

import (
	"crypto/sha256"

	"github.com/meridianchain/preflight/xdr"
)

// Info is the per-call ledger context. It is read-only; the engine never
// advances it.
type Info struct {
	ProtocolVersion   uint32
	SequenceNumber    uint32
	Timestamp         uint64
	NetworkPassphrase string
	BaseReserve       uint32

	MinTempEntryExpiration       uint32
	MinPersistentEntryExpiration uint32
	MaxEntryExpiration           uint32
	AutobumpLedgers              uint32
}

// NetworkID derives the network identifier from the passphrase.
func (i Info) NetworkID() xdr.Hash {
	return sha256.Sum256([]byte(i.NetworkPassphrase))
}

// SnapshotSource is a point-in-time, read-only query capability over ledger
// state. Implementations may block on I/O; they must be safe for use by one
// preflight call at a time.
type SnapshotSource interface {
	// GetLedgerEntry looks up a single entry. A missing entry is reported via
	// found=false, never as an error: it signals a not-yet-created entry.
	GetLedgerEntry(key xdr.LedgerKey) (entry xdr.LedgerEntry, found bool, err error)

	// GetConfigSetting returns a network configuration setting. Absence of a
	// required setting is an error; required protocol constants are then
	// unavailable and the call cannot proceed.
	GetConfigSetting(id xdr.ConfigSettingID) (xdr.ConfigSettingEntry, error)
}
