package intern

import "github.com/productgraph/pgsched/types"

// keyOf computes the interning key for value. When typed is true the type
// tag is mixed into the key (PutTyped); otherwise the type hash half is
// zero so two Put calls for structurally equal values of different types
// still collide the way the plain Put contract promises ("equal values
// yield equal keys").
func keyOf(value any, typed bool) types.Key {
	valueHash := types.HashValue(value)
	var typeHash uint64
	if typed {
		typeHash = types.HashValue(typeTagValue(value))
	}
	return types.NewKey(valueHash, typeHash)
}

func typeTagValue(value any) string {
	return types.TypeTag(value)
}
