// Package xdr defines the external-data-representation types exchanged with
// the ledger and across the preflight boundary: ledger keys and entries,
// contract invocation operations, authorization entries, diagnostic events and
// the transaction envelope. Encoding is delegated to the stellar go-xdr
// runtime; every type implements EncodeTo and, where the boundary needs to
// parse it, DecodeFrom.
package xdr

import (
	"bytes"
	"encoding/base64"
	"fmt"

	xdr3 "github.com/stellar/go-xdr/xdr3"
)

// Decode-side size limits. Boundary payloads are attacker-controlled, so
// every variable-length field is bounded before any allocation happens.
const (
	// maxSymbolLen bounds symbol and function names.
	maxSymbolLen = 32

	// maxOpaqueLen bounds opaque byte payloads, sized for uploaded contract
	// code.
	maxOpaqueLen = 16 << 20
)

// Encodable is implemented by every wire type in this package.
type Encodable interface {
	EncodeTo(*xdr3.Encoder) error
}

// Decodable is implemented by the types that arrive over the boundary and
// therefore need parsing.
type Decodable interface {
	DecodeFrom(*xdr3.Decoder) error
}

// Marshal returns the canonical XDR encoding of v.
func Marshal(v Encodable) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.EncodeTo(xdr3.NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses the XDR encoding in b into v. Trailing bytes are rejected.
func Unmarshal(b []byte, v Decodable) error {
	r := bytes.NewReader(b)
	if err := v.DecodeFrom(xdr3.NewDecoder(r)); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("xdr: %d trailing bytes after %T", r.Len(), v)
	}
	return nil
}

// MarshalBase64 returns the standard-base64 form of the canonical encoding.
// This is the representation used on the preflight boundary.
func MarshalBase64(v Encodable) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// UnmarshalBase64 parses a standard-base64 XDR payload into v.
func UnmarshalBase64(s string, v Decodable) error {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return Unmarshal(b, v)
}

// EncodedLen returns the byte length of the canonical encoding of v. The fee
// model charges by encoded size, so this is on the hot path of the resource
// calculator.
func EncodedLen(v Encodable) (uint32, error) {
	b, err := Marshal(v)
	if err != nil {
		return 0, err
	}
	return uint32(len(b)), nil
}
