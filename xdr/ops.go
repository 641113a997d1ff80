package xdr

import (
	"fmt"

	xdr3 "github.com/stellar/go-xdr/xdr3"
)

// InvokeContractArgs names the contract, function and arguments of a call.
type InvokeContractArgs struct {
	Contract ScAddress
	Function ScSymbol
	Args     []ScVal
}

func (a *InvokeContractArgs) EncodeTo(e *xdr3.Encoder) error {
	if err := a.Contract.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeString(string(a.Function)); err != nil {
		return err
	}
	if _, err := e.EncodeUint(uint32(len(a.Args))); err != nil {
		return err
	}
	for i := range a.Args {
		if err := a.Args[i].EncodeTo(e); err != nil {
			return err
		}
	}
	return nil
}

func (a *InvokeContractArgs) DecodeFrom(d *xdr3.Decoder) error {
	if err := a.Contract.DecodeFrom(d); err != nil {
		return err
	}
	fn, _, err := d.DecodeString(maxSymbolLen)
	if err != nil {
		return err
	}
	a.Function = ScSymbol(fn)
	n, _, err := d.DecodeUint()
	if err != nil {
		return err
	}
	// Append as elements arrive; the count is untrusted and must not drive
	// an allocation ahead of the input.
	a.Args = nil
	for i := uint32(0); i < n; i++ {
		var arg ScVal
		if err := arg.DecodeFrom(d); err != nil {
			return err
		}
		a.Args = append(a.Args, arg)
	}
	return nil
}

// HostFunctionType discriminates the host function union.
type HostFunctionType int32

const (
	HostFunctionTypeInvokeContract HostFunctionType = iota
	HostFunctionTypeUploadContractCode
)

// HostFunction is the unit of work a contract invocation operation asks the
// virtual machine to execute.
type HostFunction struct {
	Type           HostFunctionType
	InvokeContract *InvokeContractArgs
	UploadCode     *[]byte
}

// InvokeContractFunction wraps call arguments as a host function.
func InvokeContractFunction(args InvokeContractArgs) HostFunction {
	return HostFunction{Type: HostFunctionTypeInvokeContract, InvokeContract: &args}
}

func (f *HostFunction) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(f.Type)); err != nil {
		return err
	}
	switch f.Type {
	case HostFunctionTypeInvokeContract:
		return f.InvokeContract.EncodeTo(e)
	case HostFunctionTypeUploadContractCode:
		_, err := e.EncodeOpaque(*f.UploadCode)
		return err
	default:
		return fmt.Errorf("xdr: unknown HostFunction type %d", f.Type)
	}
}

func (f *HostFunction) DecodeFrom(d *xdr3.Decoder) error {
	t, _, err := d.DecodeInt()
	if err != nil {
		return err
	}
	*f = HostFunction{Type: HostFunctionType(t)}
	switch f.Type {
	case HostFunctionTypeInvokeContract:
		f.InvokeContract = new(InvokeContractArgs)
		return f.InvokeContract.DecodeFrom(d)
	case HostFunctionTypeUploadContractCode:
		code, _, err := d.DecodeOpaque(maxOpaqueLen)
		if err != nil {
			return err
		}
		f.UploadCode = &code
		return nil
	default:
		return fmt.Errorf("xdr: unknown HostFunction type %d", t)
	}
}

// Invocation is the tree of calls an authorization entry covers.
type Invocation struct {
	Contract       ScAddress
	Function       ScSymbol
	Args           []ScVal
	SubInvocations []Invocation
}

func (v *Invocation) EncodeTo(e *xdr3.Encoder) error {
	if err := v.Contract.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeString(string(v.Function)); err != nil {
		return err
	}
	if _, err := e.EncodeUint(uint32(len(v.Args))); err != nil {
		return err
	}
	for i := range v.Args {
		if err := v.Args[i].EncodeTo(e); err != nil {
			return err
		}
	}
	if _, err := e.EncodeUint(uint32(len(v.SubInvocations))); err != nil {
		return err
	}
	for i := range v.SubInvocations {
		if err := v.SubInvocations[i].EncodeTo(e); err != nil {
			return err
		}
	}
	return nil
}

func (v *Invocation) DecodeFrom(d *xdr3.Decoder) error {
	if err := v.Contract.DecodeFrom(d); err != nil {
		return err
	}
	fn, _, err := d.DecodeString(maxSymbolLen)
	if err != nil {
		return err
	}
	v.Function = ScSymbol(fn)
	n, _, err := d.DecodeUint()
	if err != nil {
		return err
	}
	v.Args = nil
	for i := uint32(0); i < n; i++ {
		var arg ScVal
		if err := arg.DecodeFrom(d); err != nil {
			return err
		}
		v.Args = append(v.Args, arg)
	}
	m, _, err := d.DecodeUint()
	if err != nil {
		return err
	}
	v.SubInvocations = nil
	for i := uint32(0); i < m; i++ {
		var sub Invocation
		if err := sub.DecodeFrom(d); err != nil {
			return err
		}
		v.SubInvocations = append(v.SubInvocations, sub)
	}
	return nil
}

// CredentialsType discriminates who authorizes an invocation.
type CredentialsType int32

const (
	CredentialsTypeSourceAccount CredentialsType = iota
	CredentialsTypeAddress
)

// AddressCredentials authorizes on behalf of an arbitrary address. Signature
// is void until the client signs.
type AddressCredentials struct {
	Address                   ScAddress
	Nonce                     int64
	SignatureExpirationLedger uint32
	Signature                 ScVal
}

func (c *AddressCredentials) EncodeTo(e *xdr3.Encoder) error {
	if err := c.Address.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeHyper(c.Nonce); err != nil {
		return err
	}
	if _, err := e.EncodeUint(c.SignatureExpirationLedger); err != nil {
		return err
	}
	return c.Signature.EncodeTo(e)
}

func (c *AddressCredentials) DecodeFrom(d *xdr3.Decoder) error {
	if err := c.Address.DecodeFrom(d); err != nil {
		return err
	}
	nonce, _, err := d.DecodeHyper()
	if err != nil {
		return err
	}
	c.Nonce = nonce
	exp, _, err := d.DecodeUint()
	if err != nil {
		return err
	}
	c.SignatureExpirationLedger = exp
	return c.Signature.DecodeFrom(d)
}

// Credentials is the authorization credentials union.
type Credentials struct {
	Type    CredentialsType
	Address *AddressCredentials
}

// SourceAccountCredentials builds credentials backed by the transaction source.
func SourceAccountCredentials() Credentials {
	return Credentials{Type: CredentialsTypeSourceAccount}
}

func (c *Credentials) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(c.Type)); err != nil {
		return err
	}
	switch c.Type {
	case CredentialsTypeSourceAccount:
		return nil
	case CredentialsTypeAddress:
		return c.Address.EncodeTo(e)
	default:
		return fmt.Errorf("xdr: unknown Credentials type %d", c.Type)
	}
}

func (c *Credentials) DecodeFrom(d *xdr3.Decoder) error {
	t, _, err := d.DecodeInt()
	if err != nil {
		return err
	}
	*c = Credentials{Type: CredentialsType(t)}
	switch c.Type {
	case CredentialsTypeSourceAccount:
		return nil
	case CredentialsTypeAddress:
		c.Address = new(AddressCredentials)
		return c.Address.DecodeFrom(d)
	default:
		return fmt.Errorf("xdr: unknown Credentials type %d", t)
	}
}

// AuthorizationEntry binds credentials to the invocation tree they cover.
type AuthorizationEntry struct {
	Credentials    Credentials
	RootInvocation Invocation
}

func (a *AuthorizationEntry) EncodeTo(e *xdr3.Encoder) error {
	if err := a.Credentials.EncodeTo(e); err != nil {
		return err
	}
	return a.RootInvocation.EncodeTo(e)
}

func (a *AuthorizationEntry) DecodeFrom(d *xdr3.Decoder) error {
	if err := a.Credentials.DecodeFrom(d); err != nil {
		return err
	}
	return a.RootInvocation.DecodeFrom(d)
}

// InvokeOp is the contract invocation operation: the host function to run and
// the authorization entries pre-supplied by the caller (empty when the caller
// wants them recorded).
type InvokeOp struct {
	Function HostFunction
	Auth     []AuthorizationEntry
}

func (o *InvokeOp) EncodeTo(e *xdr3.Encoder) error {
	if err := o.Function.EncodeTo(e); err != nil {
		return err
	}
	if _, err := e.EncodeUint(uint32(len(o.Auth))); err != nil {
		return err
	}
	for i := range o.Auth {
		if err := o.Auth[i].EncodeTo(e); err != nil {
			return err
		}
	}
	return nil
}

func (o *InvokeOp) DecodeFrom(d *xdr3.Decoder) error {
	if err := o.Function.DecodeFrom(d); err != nil {
		return err
	}
	n, _, err := d.DecodeUint()
	if err != nil {
		return err
	}
	o.Auth = nil
	for i := uint32(0); i < n; i++ {
		var entry AuthorizationEntry
		if err := entry.DecodeFrom(d); err != nil {
			return err
		}
		o.Auth = append(o.Auth, entry)
	}
	return nil
}

// OperationType discriminates the operation body union.
type OperationType int32

const (
	OperationTypeInvoke OperationType = iota
	OperationTypeBumpFootprintExpiration
	OperationTypeRestoreFootprint
)

func (t OperationType) String() string {
	switch t {
	case OperationTypeInvoke:
		return "invoke"
	case OperationTypeBumpFootprintExpiration:
		return "bump_footprint_expiration"
	case OperationTypeRestoreFootprint:
		return "restore_footprint"
	}
	return "unknown"
}

// BumpFootprintExpirationOp extends the lifetime of the entries in the
// transaction footprint.
type BumpFootprintExpirationOp struct {
	LedgersToExpire uint32
}

// RestoreFootprintOp brings expired entries in the footprint back to life.
type RestoreFootprintOp struct{}

// OperationBody is the operation union. Only the arm selected by Type is set.
type OperationBody struct {
	Type    OperationType
	Invoke  *InvokeOp
	Bump    *BumpFootprintExpirationOp
	Restore *RestoreFootprintOp
}

// InvokeOperation wraps an invoke op as an operation body.
func InvokeOperation(op InvokeOp) OperationBody {
	return OperationBody{Type: OperationTypeInvoke, Invoke: &op}
}

func (b *OperationBody) EncodeTo(e *xdr3.Encoder) error {
	if _, err := e.EncodeInt(int32(b.Type)); err != nil {
		return err
	}
	switch b.Type {
	case OperationTypeInvoke:
		return b.Invoke.EncodeTo(e)
	case OperationTypeBumpFootprintExpiration:
		_, err := e.EncodeUint(b.Bump.LedgersToExpire)
		return err
	case OperationTypeRestoreFootprint:
		return nil
	default:
		return fmt.Errorf("xdr: unknown OperationBody type %d", b.Type)
	}
}

func (b *OperationBody) DecodeFrom(d *xdr3.Decoder) error {
	t, _, err := d.DecodeInt()
	if err != nil {
		return err
	}
	*b = OperationBody{Type: OperationType(t)}
	switch b.Type {
	case OperationTypeInvoke:
		b.Invoke = new(InvokeOp)
		return b.Invoke.DecodeFrom(d)
	case OperationTypeBumpFootprintExpiration:
		b.Bump = new(BumpFootprintExpirationOp)
		n, _, err := d.DecodeUint()
		if err != nil {
			return err
		}
		b.Bump.LedgersToExpire = n
		return nil
	case OperationTypeRestoreFootprint:
		b.Restore = new(RestoreFootprintOp)
		return nil
	default:
		return fmt.Errorf("xdr: unknown OperationBody type %d", t)
	}
}
