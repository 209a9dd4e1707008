package term

import "reflect"

// Equal is structural equality, used for saturation-set membership
// and as the unifier's fast path for syntactically identical terms.
func Equal(a, b Term) bool {
	return reflect.DeepEqual(a, b)
}
