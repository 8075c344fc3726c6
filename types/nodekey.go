package types

// NodeKey is a product-graph node's identity: subject, product, variants
// and the shape of the selector that produced the demand, each reduced to
// an opaque Key (ProductType is already an opaque tag and is kept as-is
// rather than being hashed again). Two demands that resolve to equal
// NodeKeys are, by construction, the same node.
type NodeKey struct {
	Subject  Key
	Product  ProductType
	Variants Key
	Selector Key
}
