package host

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/meridianchain/preflight/ledger"
	"github.com/meridianchain/preflight/xdr"
)

// AccessType classifies how a simulation touched a ledger key.
type AccessType int

const (
	AccessReadOnly AccessType = iota
	AccessReadWrite
)

// String returns a human-readable name for the access class.
func (a AccessType) String() string {
	switch a {
	case AccessReadOnly:
		return "read_only"
	case AccessReadWrite:
		return "read_write"
	}
	return "unknown"
}

type footprintRecord struct {
	key    xdr.LedgerKey
	access AccessType
}

// Footprint maps every ledger key touched during a simulation to its access
// classification. Keys are indexed by their canonical encoding. It grows while
// the machine runs and is immutable once harvested.
type Footprint struct {
	records map[string]*footprintRecord
}

func newFootprint() *Footprint {
	return &Footprint{records: make(map[string]*footprintRecord)}
}

// record notes an access, upgrading read-only to read-write but never the
// other way around.
func (f *Footprint) record(enc string, key xdr.LedgerKey, access AccessType) {
	if r, ok := f.records[enc]; ok {
		if access == AccessReadWrite {
			r.access = AccessReadWrite
		}
		return
	}
	f.records[enc] = &footprintRecord{key: key, access: access}
}

// Access returns the classification for an encoded key.
func (f *Footprint) Access(enc string) (AccessType, bool) {
	r, ok := f.records[enc]
	if !ok {
		return 0, false
	}
	return r.access, true
}

// Len returns the number of classified keys.
func (f *Footprint) Len() int { return len(f.records) }

func (f *Footprint) keysWithAccess(access AccessType) []xdr.LedgerKey {
	encs := make([]string, 0, len(f.records))
	for enc, r := range f.records {
		if r.access == access {
			encs = append(encs, enc)
		}
	}
	// deterministic order: sort by canonical encoding
	sort.Strings(encs)
	keys := make([]xdr.LedgerKey, len(encs))
	for i, enc := range encs {
		keys[i] = f.records[enc].key
	}
	return keys
}

// ReadOnlyKeys returns the read-only keys in canonical order.
func (f *Footprint) ReadOnlyKeys() []xdr.LedgerKey { return f.keysWithAccess(AccessReadOnly) }

// ReadWriteKeys returns the read-write keys in canonical order.
func (f *Footprint) ReadWriteKeys() []xdr.LedgerKey { return f.keysWithAccess(AccessReadWrite) }

// ToXDR converts the footprint to its wire form.
func (f *Footprint) ToXDR() xdr.Footprint {
	return xdr.Footprint{
		ReadOnly:  f.ReadOnlyKeys(),
		ReadWrite: f.ReadWriteKeys(),
	}
}

// StorageEntry is one touched key and its value at end of execution. A nil
// Entry means the key was deleted during the simulation.
type StorageEntry struct {
	Key   xdr.LedgerKey
	Entry *xdr.LedgerEntry
}

// StorageMap is the end-of-execution view of every key the simulation
// touched, indexed by canonical key encoding.
type StorageMap map[string]StorageEntry

// RecordingStorage is a read-through view over a ledger snapshot that records
// every access into a footprint as it happens. Reads are satisfied from the
// overlay first and fall back to the snapshot; writes and deletes live only in
// the overlay, the snapshot is never mutated.
type RecordingStorage struct {
	snapshot  ledger.SnapshotSource
	footprint *Footprint
	overlay   map[string]*xdr.LedgerEntry
}

// NewRecordingStorage builds an empty recording view rooted at the snapshot.
func NewRecordingStorage(snapshot ledger.SnapshotSource) *RecordingStorage {
	return &RecordingStorage{
		snapshot:  snapshot,
		footprint: newFootprint(),
		overlay:   make(map[string]*xdr.LedgerEntry),
	}
}

func encodeKey(key xdr.LedgerKey) (string, error) {
	b, err := xdr.Marshal(&key)
	if err != nil {
		return "", errors.Wrap(err, "encoding ledger key")
	}
	return string(b), nil
}

// Get returns the current value for key, nil if the key does not exist. The
// access is recorded as read-only unless already classified read-write.
func (s *RecordingStorage) Get(key xdr.LedgerKey) (*xdr.LedgerEntry, error) {
	enc, err := encodeKey(key)
	if err != nil {
		return nil, err
	}
	s.footprint.record(enc, key, AccessReadOnly)
	if entry, ok := s.overlay[enc]; ok {
		return entry, nil
	}
	entry, found, err := s.snapshot.GetLedgerEntry(key)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot lookup")
	}
	if !found {
		s.overlay[enc] = nil
		return nil, nil
	}
	s.overlay[enc] = &entry
	return &entry, nil
}

// Has reports whether key currently exists, recording a read-only access.
func (s *RecordingStorage) Has(key xdr.LedgerKey) (bool, error) {
	entry, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// Put sets the value for key, recording a read-write access.
func (s *RecordingStorage) Put(key xdr.LedgerKey, entry xdr.LedgerEntry) error {
	enc, err := encodeKey(key)
	if err != nil {
		return err
	}
	s.footprint.record(enc, key, AccessReadWrite)
	s.overlay[enc] = &entry
	return nil
}

// Del marks key as deleted, recording a read-write access.
func (s *RecordingStorage) Del(key xdr.LedgerKey) error {
	enc, err := encodeKey(key)
	if err != nil {
		return err
	}
	s.footprint.record(enc, key, AccessReadWrite)
	s.overlay[enc] = nil
	return nil
}

// Footprint returns the footprint built so far.
func (s *RecordingStorage) Footprint() *Footprint { return s.footprint }

// Map returns the end-of-execution storage map: every touched key with its
// final value. Every key in the map has a footprint classification by
// construction.
func (s *RecordingStorage) Map() StorageMap {
	m := make(StorageMap, len(s.overlay))
	for enc, entry := range s.overlay {
		r := s.footprint.records[enc]
		m[enc] = StorageEntry{Key: r.key, Entry: entry}
	}
	return m
}
