package preflight

import "errors"

// Error taxonomy. Everything the engine returns wraps exactly one of these
// sentinels; the bridge flattens them to a single string, so the taxonomy is
// for internal tests and embedding Go callers only.
var (
	// ErrEncoding marks a malformed input payload.
	ErrEncoding = errors.New("malformed payload")

	// ErrIntegration marks missing or wrong-shaped data from the snapshot or
	// configuration capability.
	ErrIntegration = errors.New("snapshot integration failure")

	// ErrInvariant marks a storage/footprint inconsistency. It indicates a bug
	// in the engine or the machine, never bad user input.
	ErrInvariant = errors.New("internal consistency violation")

	// ErrEngineFault marks a machine failure that made harvesting impossible.
	ErrEngineFault = errors.New("engine fault")
)
