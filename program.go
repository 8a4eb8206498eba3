// program.go - Compiled program input shape (§6 external interfaces)

package ga144

// CompiledNode is one node's worth of compiled image: its memory contents
// and optional initial register state. Mem entries left nil are untouched
// by loading (the node's ROM-backed reset still applies).
type CompiledNode struct {
	Coord Coord
	Mem   [RAMSize]*Word
	Len   int

	P     *uint16
	A     *uint32
	B     *uint16
	IO    *uint32
	Stack []uint32
}

// Program is the full input to the boot-stream builder and to direct
// (non-booted) loading: a set of per-node images plus any compile-time
// diagnostics gathered while building them.
type Program struct {
	Nodes  []CompiledNode
	Errors []CompileError
}

// NodeFor returns the CompiledNode targeting coord, if any.
func (p *Program) NodeFor(coord Coord) (CompiledNode, bool) {
	for _, n := range p.Nodes {
		if n.Coord == coord {
			return n, true
		}
	}
	return CompiledNode{}, false
}

// Coords returns the target coordinates of the program in the order they
// were added.
func (p *Program) Coords() []Coord {
	out := make([]Coord, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.Coord
	}
	return out
}
