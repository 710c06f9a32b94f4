package order

import "errors"

// ErrLengthMismatch is returned by ValidateShape when inputs and outputs
// have different lengths. Non-retriable: the caller should reject the order
// without ever issuing an RPC call (spec.md §8 boundary behavior).
var ErrLengthMismatch = errors.New("order: len(inputs) != len(outputs)")

// ValidateShape checks the structural invariant required of every fillable
// order: len(inputs) == len(outputs). It does not inspect token identities
// or amounts — that is FillStrategy's job once a ChainRegistry is available.
func ValidateShape(o *Order) error {
	if len(o.Inputs) != len(o.Outputs) {
		return ErrLengthMismatch
	}
	return nil
}
