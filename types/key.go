// Package types holds the data model shared by every other package in
// pgsched: subjects, product types, selectors, rules, node states and the
// structured error values a node can settle into.
package types

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/mitchellh/hashstructure/v2"
)

// Key is an opaque, fixed-size identifier produced by the interning store.
// Two values that hash equally are treated as the same value; Key is safe
// to use as a map key and to compare with ==.
type Key [16]byte

func (k Key) String() string {
	return fmt.Sprintf("%x", [16]byte(k))
}

// IsZero reports whether k is the zero key, used as a sentinel for "no key".
func (k Key) IsZero() bool {
	return k == Key{}
}

// HashValue returns a stable 64-bit structural hash of v. Struct field
// order, not declaration order, is insignificant: hashstructure walks
// fields by name. Pointers are followed. A value that cannot be hashed
// (e.g. a function or channel field) falls back to its type tag alone so
// interning degrades to type-only identity rather than panicking.
func HashValue(v any) uint64 {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, &hashstructure.HashOptions{
		ZeroNil: true,
	})
	if err != nil {
		h, _ = hashstructure.Hash(TypeTag(v), hashstructure.FormatV2, nil)
	}
	return h
}

// TypeTag returns a stable name for v's Go type, used to keep e.g. an empty
// string and an empty struct from colliding under PutTyped.
func TypeTag(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

// NewKey packs a value hash and a type hash into a Key. The value hash
// occupies the high 8 bytes so Put and PutTyped of the same value produce
// keys that sort adjacently, which is convenient for debugging but not
// otherwise relied upon.
func NewKey(valueHash, typeHash uint64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[0:8], valueHash)
	binary.BigEndian.PutUint64(k[8:16], typeHash)
	return k
}
