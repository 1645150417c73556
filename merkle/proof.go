package merkle

// Path is the authentication path of one leaf, ordered from the leaf level up
type Path struct {
	Index    uint64
	Siblings []Digest
}

// Verify recomputes the root from cm and reports whether it equals root
func (p *Path) Verify(params Parameters, root Digest, cm Commitment) bool {
	if p == nil || len(p.Siblings) != params.Depth() {
		return false
	}
	if p.Index >= uint64(1)<<uint(len(p.Siblings)) {
		return false
	}

	node := params.HashLeaf(cm)
	position := p.Index
	for _, sibling := range p.Siblings {
		if position&1 == 0 {
			node = params.HashNodes(node, sibling)
		} else {
			node = params.HashNodes(sibling, node)
		}
		position >>= 1
	}
	return node == root
}
