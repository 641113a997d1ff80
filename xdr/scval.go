package xdr

import (
	"fmt"

	xdr3 "github.com/stellar/go-xdr/xdr3"
)

// ScValType discriminates the contract value union.
type ScValType int32

const (
	ScValTypeBool ScValType = iota
	ScValTypeVoid
	ScValTypeU32
	ScValTypeI32
	ScValTypeU64
	ScValTypeI64
	ScValTypeBytes
	ScValTypeSymbol
	ScValTypeVec
	ScValTypeAddress
)

// ScSymbol is a short identifier used for function and topic names.
type ScSymbol string

// ScAddressType discriminates account versus contract addresses.
type ScAddressType int32

const (
	ScAddressTypeAccount ScAddressType = iota
	ScAddressTypeContract
)

// ScAddress identifies either a classic account or a contract.
type ScAddress struct {
	Type       ScAddressType
	AccountID  *AccountID
	ContractID *Hash
}

// AccountAddress builds an account-typed ScAddress.
func AccountAddress(id AccountID) ScAddress {
	return ScAddress{Type: ScAddressTypeAccount, AccountID: &id}
}

// ContractAddress builds a contract-typed ScAddress.
func ContractAddress(id Hash) ScAddress {
	return ScAddress{Type: ScAddressTypeContract, ContractID: &id}
}

func (a *ScAddress) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(a.Type)); err != nil {
		return err
	}
	switch a.Type {
	case ScAddressTypeAccount:
		return a.AccountID.EncodeTo(e)
	case ScAddressTypeContract:
		return a.ContractID.EncodeTo(e)
	default:
		return fmt.Errorf("xdr: unknown ScAddress type %d", a.Type)
	}
}

func (a *ScAddress) DecodeFrom(d *xdr3.Decoder) error {
	v, _, err := d.DecodeInt()
	if err != nil {
		return err
	}
	a.Type = ScAddressType(v)
	switch a.Type {
	case ScAddressTypeAccount:
		a.AccountID = new(AccountID)
		return a.AccountID.DecodeFrom(d)
	case ScAddressTypeContract:
		a.ContractID = new(Hash)
		return a.ContractID.DecodeFrom(d)
	default:
		return fmt.Errorf("xdr: unknown ScAddress type %d", v)
	}
}

// ScVal is the tagged union of contract values. Only the arm selected by Type
// is populated.
type ScVal struct {
	Type    ScValType
	B       *bool
	U32     *uint32
	I32     *int32
	U64     *uint64
	I64     *int64
	Bytes   *[]byte
	Sym     *ScSymbol
	Vec     *[]ScVal
	Address *ScAddress
}

// ScVoid returns the void value.
func ScVoid() ScVal { return ScVal{Type: ScValTypeVoid} }

// ScBool wraps a bool.
func ScBool(b bool) ScVal { return ScVal{Type: ScValTypeBool, B: &b} }

// ScU64 wraps a uint64.
func ScU64(v uint64) ScVal { return ScVal{Type: ScValTypeU64, U64: &v} }

// ScI64 wraps an int64.
func ScI64(v int64) ScVal { return ScVal{Type: ScValTypeI64, I64: &v} }

// ScBytes wraps an opaque byte string.
func ScBytes(b []byte) ScVal { return ScVal{Type: ScValTypeBytes, Bytes: &b} }

// ScSym wraps a symbol.
func ScSym(s ScSymbol) ScVal { return ScVal{Type: ScValTypeSymbol, Sym: &s} }

// ScVec wraps a vector of values.
func ScVec(vs ...ScVal) ScVal { return ScVal{Type: ScValTypeVec, Vec: &vs} }

// ScAddr wraps an address.
func ScAddr(a ScAddress) ScVal { return ScVal{Type: ScValTypeAddress, Address: &a} }

func (v *ScVal) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(v.Type)); err != nil {
		return err
	}
	switch v.Type {
	case ScValTypeBool:
		_, err := e.EncodeBool(*v.B)
		return err
	case ScValTypeVoid:
		return nil
	case ScValTypeU32:
		_, err := e.EncodeUint(*v.U32)
		return err
	case ScValTypeI32:
		_, err := e.EncodeInt(*v.I32)
		return err
	case ScValTypeU64:
		_, err := e.EncodeUhyper(*v.U64)
		return err
	case ScValTypeI64:
		_, err := e.EncodeHyper(*v.I64)
		return err
	case ScValTypeBytes:
		_, err := e.EncodeOpaque(*v.Bytes)
		return err
	case ScValTypeSymbol:
		_, err := e.EncodeString(string(*v.Sym))
		return err
	case ScValTypeVec:
		if _, err := e.EncodeUint(uint32(len(*v.Vec))); err != nil {
			return err
		}
		for i := range *v.Vec {
			if err := (*v.Vec)[i].EncodeTo(e); err != nil {
				return err
			}
		}
		return nil
	case ScValTypeAddress:
		return v.Address.EncodeTo(e)
	default:
		return fmt.Errorf("xdr: unknown ScVal type %d", v.Type)
	}
}

func (v *ScVal) DecodeFrom(d *xdr3.Decoder) error {
	t, _, err := d.DecodeInt()
	if err != nil {
		return err
	}
	*v = ScVal{Type: ScValType(t)}
	switch v.Type {
	case ScValTypeBool:
		b, _, err := d.DecodeBool()
		if err != nil {
			return err
		}
		v.B = &b
	case ScValTypeVoid:
	case ScValTypeU32:
		u, _, err := d.DecodeUint()
		if err != nil {
			return err
		}
		v.U32 = &u
	case ScValTypeI32:
		i, _, err := d.DecodeInt()
		if err != nil {
			return err
		}
		v.I32 = &i
	case ScValTypeU64:
		u, _, err := d.DecodeUhyper()
		if err != nil {
			return err
		}
		v.U64 = &u
	case ScValTypeI64:
		i, _, err := d.DecodeHyper()
		if err != nil {
			return err
		}
		v.I64 = &i
	case ScValTypeBytes:
		b, _, err := d.DecodeOpaque(maxOpaqueLen)
		if err != nil {
			return err
		}
		v.Bytes = &b
	case ScValTypeSymbol:
		s, _, err := d.DecodeString(maxSymbolLen)
		if err != nil {
			return err
		}
		sym := ScSymbol(s)
		v.Sym = &sym
	case ScValTypeVec:
		n, _, err := d.DecodeUint()
		if err != nil {
			return err
		}
		// The count is untrusted; grow with the input instead of
		// allocating up front.
		var vec []ScVal
		for i := uint32(0); i < n; i++ {
			var elem ScVal
			if err := elem.DecodeFrom(d); err != nil {
				return err
			}
			vec = append(vec, elem)
		}
		v.Vec = &vec
	case ScValTypeAddress:
		v.Address = new(ScAddress)
		if err := v.Address.DecodeFrom(d); err != nil {
			return err
		}
	default:
		return fmt.Errorf("xdr: unknown ScVal type %d", t)
	}
	return nil
}
