package xdr

import (
	"fmt"

	xdr3 "github.com/stellar/go-xdr/xdr3"
)

// Hash is a 32-byte digest.
type Hash [32]byte

func (h *Hash) EncodeTo(e *xdr3.Encoder) error {
	_, err := e.EncodeFixedOpaque(h[:])
	return err
}

func (h *Hash) DecodeFrom(d *xdr3.Decoder) error {
	b, _, err := d.DecodeFixedOpaque(32)
	if err != nil {
		return err
	}
	copy(h[:], b)
	return nil
}

// Uint256 is a 32-byte big-endian integer, used for ed25519 public keys.
type Uint256 [32]byte

func (u *Uint256) EncodeTo(e *xdr3.Encoder) error {
	_, err := e.EncodeFixedOpaque(u[:])
	return err
}

func (u *Uint256) DecodeFrom(d *xdr3.Decoder) error {
	b, _, err := d.DecodeFixedOpaque(32)
	if err != nil {
		return err
	}
	copy(u[:], b)
	return nil
}

// AccountID is an ed25519 public key (key-type discriminant 0 on the wire).
type AccountID struct {
	Ed25519 Uint256
}

func (a *AccountID) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(0); err != nil {
		return err
	}
	return a.Ed25519.EncodeTo(e)
}

func (a *AccountID) DecodeFrom(d *xdr3.Decoder) error {
	t, _, err := d.DecodeInt()
	if err != nil {
		return err
	}
	if t != 0 {
		return fmt.Errorf("xdr: unknown public key type %d", t)
	}
	return a.Ed25519.DecodeFrom(d)
}

// ContractDataDurability classifies contract data entries by lifetime rules.
type ContractDataDurability int32

const (
	ContractDataTemporary ContractDataDurability = iota
	ContractDataPersistent
)

// LedgerKeyType discriminates the ledger key union.
type LedgerKeyType int32

const (
	LedgerKeyTypeAccount LedgerKeyType = iota
	LedgerKeyTypeContractData
	LedgerKeyTypeContractCode
	LedgerKeyTypeConfigSetting
)

// LedgerKeyAccount keys an account entry.
type LedgerKeyAccount struct {
	AccountID AccountID
}

// LedgerKeyContractData keys one piece of contract storage.
type LedgerKeyContractData struct {
	Contract   ScAddress
	Key        ScVal
	Durability ContractDataDurability
}

// LedgerKeyContractCode keys an uploaded code blob by hash.
type LedgerKeyContractCode struct {
	Hash Hash
}

// LedgerKeyConfigSetting keys a network configuration setting.
type LedgerKeyConfigSetting struct {
	ID ConfigSettingID
}

// LedgerKey identifies a ledger entry. Only the arm selected by Type is set.
type LedgerKey struct {
	Type          LedgerKeyType
	Account       *LedgerKeyAccount
	ContractData  *LedgerKeyContractData
	ContractCode  *LedgerKeyContractCode
	ConfigSetting *LedgerKeyConfigSetting
}

// AccountKey builds an account ledger key.
func AccountKey(id AccountID) LedgerKey {
	return LedgerKey{Type: LedgerKeyTypeAccount, Account: &LedgerKeyAccount{AccountID: id}}
}

// ContractDataKey builds a contract storage ledger key.
func ContractDataKey(contract ScAddress, key ScVal, durability ContractDataDurability) LedgerKey {
	return LedgerKey{
		Type: LedgerKeyTypeContractData,
		ContractData: &LedgerKeyContractData{
			Contract:   contract,
			Key:        key,
			Durability: durability,
		},
	}
}

// ContractCodeKey builds a code ledger key.
func ContractCodeKey(hash Hash) LedgerKey {
	return LedgerKey{Type: LedgerKeyTypeContractCode, ContractCode: &LedgerKeyContractCode{Hash: hash}}
}

// ConfigSettingKey builds a configuration setting ledger key.
func ConfigSettingKey(id ConfigSettingID) LedgerKey {
	return LedgerKey{Type: LedgerKeyTypeConfigSetting, ConfigSetting: &LedgerKeyConfigSetting{ID: id}}
}

func (k *LedgerKey) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(k.Type)); err != nil {
		return err
	}
	switch k.Type {
	case LedgerKeyTypeAccount:
		return k.Account.AccountID.EncodeTo(e)
	case LedgerKeyTypeContractData:
		if err := k.ContractData.Contract.EncodeTo(e); err != nil {
			return err
		}
		if err := k.ContractData.Key.EncodeTo(e); err != nil {
			return err
		}
		_, err := e.EncodeInt(int32(k.ContractData.Durability))
		return err
	case LedgerKeyTypeContractCode:
		return k.ContractCode.Hash.EncodeTo(e)
	case LedgerKeyTypeConfigSetting:
		_, err := e.EncodeInt(int32(k.ConfigSetting.ID))
		return err
	default:
		return fmt.Errorf("xdr: unknown LedgerKey type %d", k.Type)
	}
}

func (k *LedgerKey) DecodeFrom(d *xdr3.Decoder) error {
	t, _, err := d.DecodeInt()
	if err != nil {
		return err
	}
	*k = LedgerKey{Type: LedgerKeyType(t)}
	switch k.Type {
	case LedgerKeyTypeAccount:
		k.Account = new(LedgerKeyAccount)
		return k.Account.AccountID.DecodeFrom(d)
	case LedgerKeyTypeContractData:
		k.ContractData = new(LedgerKeyContractData)
		if err := k.ContractData.Contract.DecodeFrom(d); err != nil {
			return err
		}
		if err := k.ContractData.Key.DecodeFrom(d); err != nil {
			return err
		}
		dur, _, err := d.DecodeInt()
		if err != nil {
			return err
		}
		k.ContractData.Durability = ContractDataDurability(dur)
		return nil
	case LedgerKeyTypeContractCode:
		k.ContractCode = new(LedgerKeyContractCode)
		return k.ContractCode.Hash.DecodeFrom(d)
	case LedgerKeyTypeConfigSetting:
		k.ConfigSetting = new(LedgerKeyConfigSetting)
		id, _, err := d.DecodeInt()
		if err != nil {
			return err
		}
		k.ConfigSetting.ID = ConfigSettingID(id)
		return nil
	default:
		return fmt.Errorf("xdr: unknown LedgerKey type %d", t)
	}
}

// AccountEntry is the slice of account state the preflight engine cares
// about. Balances are in the smallest currency unit.
type AccountEntry struct {
	AccountID AccountID
	Balance   int64
	SeqNum    int64
}

func (a *AccountEntry) EncodeTo(e *xdr3.Encoder) error {
	if err := a.AccountID.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeHyper(a.Balance); err != nil {
		return err
	}
	_, err := e.EncodeHyper(a.SeqNum)
	return err
}

// ContractDataEntry is one piece of contract storage.
type ContractDataEntry struct {
	Contract            ScAddress
	Key                 ScVal
	Durability          ContractDataDurability
	Val                 ScVal
	ExpirationLedgerSeq uint32
}

func (c *ContractDataEntry) EncodeTo(e *xdr3.Encoder) error {
	if err := c.Contract.EncodeTo(e); err != nil {
		return err
	}
	if err := c.Key.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeInt(int32(c.Durability)); err != nil {
		return err
	}
	if err := c.Val.EncodeTo(e); err != nil {
		return err
	}
	_, err := e.EncodeUint(c.ExpirationLedgerSeq)
	return err
}

// ContractCodeEntry is an uploaded code blob.
type ContractCodeEntry struct {
	Hash                Hash
	Code                []byte
	ExpirationLedgerSeq uint32
}

func (c *ContractCodeEntry) EncodeTo(e *xdr3.Encoder) error {
	if err := c.Hash.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeOpaque(c.Code); err != nil {
		return err
	}
	_, err := e.EncodeUint(c.ExpirationLedgerSeq)
	return err
}

// LedgerEntryData mirrors the ledger key union with value payloads.
type LedgerEntryData struct {
	Type          LedgerKeyType
	Account       *AccountEntry
	ContractData  *ContractDataEntry
	ContractCode  *ContractCodeEntry
	ConfigSetting *ConfigSettingEntry
}

func (l *LedgerEntryData) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(l.Type)); err != nil {
		return err
	}
	switch l.Type {
	case LedgerKeyTypeAccount:
		return l.Account.EncodeTo(e)
	case LedgerKeyTypeContractData:
		return l.ContractData.EncodeTo(e)
	case LedgerKeyTypeContractCode:
		return l.ContractCode.EncodeTo(e)
	case LedgerKeyTypeConfigSetting:
		return l.ConfigSetting.EncodeTo(e)
	default:
		return fmt.Errorf("xdr: unknown LedgerEntryData type %d", l.Type)
	}
}

// LedgerEntry is a versioned key/value record in global chain state.
type LedgerEntry struct {
	LastModifiedLedgerSeq uint32
	Data                  LedgerEntryData
}

func (l *LedgerEntry) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeUint(l.LastModifiedLedgerSeq); err != nil {
		return err
	}
	return l.Data.EncodeTo(e)
}

// ContractDataLedgerEntry is a convenience constructor for the entry kind the
// engine touches most.
func ContractDataLedgerEntry(seq uint32, data ContractDataEntry) LedgerEntry {
	return LedgerEntry{
		LastModifiedLedgerSeq: seq,
		Data: LedgerEntryData{
			Type:         LedgerKeyTypeContractData,
			ContractData: &data,
		},
	}
}

// Footprint lists the ledger keys an operation may read and the ones it may
// also write. The sets are disjoint.
type Footprint struct {
	ReadOnly  []LedgerKey
	ReadWrite []LedgerKey
}

func encodeKeySlice(e *xdr3.Encoder, keys []LedgerKey) error {
	if _, err := e.EncodeUint(uint32(len(keys))); err != nil {
		return err
	}
	for i := range keys {
		if err := keys[i].EncodeTo(e); err != nil {
			return err
		}
	}
	return nil
}

func decodeKeySlice(d *xdr3.Decoder) ([]LedgerKey, error) {
	n, _, err := d.DecodeUint()
	if err != nil {
		return nil, err
	}
	// The count is untrusted; grow with the input instead of allocating up
	// front.
	var keys []LedgerKey
	for i := uint32(0); i < n; i++ {
		var key LedgerKey
		if err := key.DecodeFrom(d); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *Footprint) EncodeTo(e *xdr3.Encoder) error {
	if err := encodeKeySlice(e, f.ReadOnly); err != nil {
		return err
	}
	return encodeKeySlice(e, f.ReadWrite)
}

func (f *Footprint) DecodeFrom(d *xdr3.Decoder) error {
	ro, err := decodeKeySlice(d)
	if err != nil {
		return err
	}
	rw, err := decodeKeySlice(d)
	if err != nil {
		return err
	}
	f.ReadOnly, f.ReadWrite = ro, rw
	return nil
}
