package xdr

import (
	"fmt"

	xdr3 "github.com/stellar/go-xdr/xdr3"
)

// MuxedAccountType discriminates the muxed account union.
type MuxedAccountType int32

const (
	MuxedAccountTypeEd25519 MuxedAccountType = iota
	MuxedAccountTypeMuxedEd25519
)

// MuxedAccount is a transaction source address, optionally carrying a
// multiplexing id.
type MuxedAccount struct {
	Type    MuxedAccountType
	Ed25519 Uint256
	ID      uint64
}

func (m *MuxedAccount) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(m.Type)); err != nil {
		return err
	}
	switch m.Type {
	case MuxedAccountTypeEd25519:
		return m.Ed25519.EncodeTo(e)
	case MuxedAccountTypeMuxedEd25519:
		if _, err := e.EncodeUhyper(m.ID); err != nil {
			return err
		}
		return m.Ed25519.EncodeTo(e)
	default:
		return fmt.Errorf("xdr: unknown MuxedAccount type %d", m.Type)
	}
}

// MemoType discriminates the memo union.
type MemoType int32

const (
	MemoTypeNone MemoType = iota
	MemoTypeText
)

// Memo is the transaction memo. Only text memos are modelled; the size
// estimator needs nothing richer.
type Memo struct {
	Type MemoType
	Text string
}

func (m *Memo) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(m.Type)); err != nil {
		return err
	}
	if m.Type == MemoTypeText {
		_, err := e.EncodeString(m.Text)
		return err
	}
	return nil
}

// Preconditions is the transaction precondition union; only "none" is needed
// here.
type Preconditions struct{}

func (p *Preconditions) EncodeTo(e *xdr3.Encoder) error {
	_, err := e.EncodeInt(0)
	return err
}

// Operation is one transaction operation with an optional explicit source.
type Operation struct {
	SourceAccount *MuxedAccount
	Body          OperationBody
}

func (o *Operation) EncodeTo(e *xdr3.Encoder) error {
	if o.SourceAccount != nil {
		if _, err := e.EncodeBool(true); err != nil {
			return err
		}
		if err := o.SourceAccount.EncodeTo(e); err != nil {
			return err
		}
	} else {
		if _, err := e.EncodeBool(false); err != nil {
			return err
		}
	}
	return o.Body.EncodeTo(e)
}

// Resources is the resource descriptor charged to a transaction.
type Resources struct {
	Footprint         Footprint
	Instructions      uint32
	ReadBytes         uint32
	WriteBytes        uint32
	MetadataSizeBytes uint32
}

func (r *Resources) EncodeTo(e *xdr3.Encoder) error {
	if err := r.Footprint.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeUint(r.Instructions); err != nil {
		return err
	}
	if _, err := e.EncodeUint(r.ReadBytes); err != nil {
		return err
	}
	if _, err := e.EncodeUint(r.WriteBytes); err != nil {
		return err
	}
	_, err := e.EncodeUint(r.MetadataSizeBytes)
	return err
}

// TransactionData is the resource/fee extension attached to a transaction.
type TransactionData struct {
	Resources     Resources
	RefundableFee int64
}

func (t *TransactionData) EncodeTo(e *xdr3.Encoder) error {
	if err := t.Resources.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeHyper(t.RefundableFee); err != nil {
		return err
	}
	// extension point, v0
	_, err := e.EncodeInt(0)
	return err
}

// TransactionExt selects the transaction extension: 0 none, 1 resource data.
type TransactionExt struct {
	V    int32
	Data *TransactionData
}

func (x *TransactionExt) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(x.V); err != nil {
		return err
	}
	if x.V == 1 {
		return x.Data.EncodeTo(e)
	}
	return nil
}

// Transaction is the envelope payload the size estimator measures.
type Transaction struct {
	SourceAccount MuxedAccount
	Fee           uint32
	SeqNum        int64
	Cond          Preconditions
	Memo          Memo
	Operations    []Operation
	Ext           TransactionExt
}

func (t *Transaction) EncodeTo(e *xdr3.Encoder) error {
	if err := t.SourceAccount.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeUint(t.Fee); err != nil {
		return err
	}
	if _, err := e.EncodeHyper(t.SeqNum); err != nil {
		return err
	}
	if err := t.Cond.EncodeTo(e); err != nil {
		return err
	}
	if err := t.Memo.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeUint(uint32(len(t.Operations))); err != nil {
		return err
	}
	for i := range t.Operations {
		if err := t.Operations[i].EncodeTo(e); err != nil {
			return err
		}
	}
	return t.Ext.EncodeTo(e)
}

// DecoratedSignature is a signature with its public-key hint.
type DecoratedSignature struct {
	Hint      [4]byte
	Signature []byte
}

func (s *DecoratedSignature) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeFixedOpaque(s.Hint[:]); err != nil {
		return err
	}
	_, err := e.EncodeOpaque(s.Signature)
	return err
}

// TransactionEnvelope is a transaction plus its signatures.
type TransactionEnvelope struct {
	Tx         Transaction
	Signatures []DecoratedSignature
}

func (v *TransactionEnvelope) EncodeTo(e *xdr3.Encoder) error {
	if err := v.Tx.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeUint(uint32(len(v.Signatures))); err != nil {
		return err
	}
	for i := range v.Signatures {
		if err := v.Signatures[i].EncodeTo(e); err != nil {
			return err
		}
	}
	return nil
}

// ContractEventType classifies contract events.
type ContractEventType int32

const (
	ContractEventTypeSystem ContractEventType = iota
	ContractEventTypeContract
	ContractEventTypeDiagnostic
)

// ContractEvent is a structured execution log record emitted by the machine.
type ContractEvent struct {
	ContractID *Hash
	Type       ContractEventType
	Topics     []ScVal
	Data       ScVal
}

func (c *ContractEvent) EncodeTo(e *xdr3.Encoder) error {
	if c.ContractID != nil {
		if _, err := e.EncodeBool(true); err != nil {
			return err
		}
		if err := c.ContractID.EncodeTo(e); err != nil {
			return err
		}
	} else {
		if _, err := e.EncodeBool(false); err != nil {
			return err
		}
	}
	if _, err := e.EncodeInt(int32(c.Type)); err != nil {
		return err
	}
	if _, err := e.EncodeUint(uint32(len(c.Topics))); err != nil {
		return err
	}
	for i := range c.Topics {
		if err := c.Topics[i].EncodeTo(e); err != nil {
			return err
		}
	}
	return c.Data.EncodeTo(e)
}

// DiagnosticEvent is a contract event plus whether its call ultimately
// succeeded.
type DiagnosticEvent struct {
	InSuccessfulContractCall bool
	Event                    ContractEvent
}

func (v *DiagnosticEvent) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeBool(v.InSuccessfulContractCall); err != nil {
		return err
	}
	return v.Event.EncodeTo(e)
}
