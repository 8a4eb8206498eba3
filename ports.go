// ports.go - Inter-node port/channel rendezvous fabric

package ga144

// Direction identifies one of the four cardinal neighbor links of a node.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

// Port address constants (§6). RIGHT is not given a derivable value by
// spec.md ("RIGHT = 0x1D5 & mask" with no mask defined); PortRight below is
// an independently chosen value that keeps all five constants distinct
// while sharing the 0x1xx port-select high bits of the other four (see
// DESIGN.md, Open Question decisions).
const (
	PortLeft      = 0x1D5
	PortRight     = 0x175
	PortUp        = 0x145
	PortDown      = 0x115
	PortIO        = 0x15D
	PortMultiRDLU = 0x1A5
)

// portAddress maps a Direction to its single-port address.
var portAddress = [4]uint16{
	DirLeft:  PortLeft,
	DirRight: PortRight,
	DirUp:    PortUp,
	DirDown:  PortDown,
}

// directionFromAddress reports which single-port Direction addr names, if
// any.
func directionFromAddress(addr uint16) (Direction, bool) {
	switch addr {
	case PortLeft:
		return DirLeft, true
	case PortRight:
		return DirRight, true
	case PortUp:
		return DirUp, true
	case PortDown:
		return DirDown, true
	default:
		return 0, false
	}
}

// isPortAddress reports whether addr (already masked to the low 9 bits)
// designates a port or multiport rendezvous rather than RAM/ROM (§4.4:
// "addresses with bit 8 set are port/IO addresses").
func isPortAddress(addr uint16) bool {
	return addr&0x100 != 0
}

// isMultiport reports whether addr is the rdlu multiport alias.
func isMultiport(addr uint16) bool {
	return addr == PortMultiRDLU
}

// channel is the rendezvous slot for one physical link between two
// adjacent mesh positions, or between a mesh edge and the chip boundary.
// At most one writer and one reader may be queued at a time (§3 invariant).
// peerA/peerB are controller node indices; -1 marks an off-chip boundary,
// which never completes (§4.4 "node failures").
type channel struct {
	peerA, peerB int

	hasWriter   bool
	writerNode  int
	writerValue uint32

	hasReader  bool
	readerNode int
}

// otherEnd returns the node index on the far side of the channel from
// node, or -1 if that side is a chip boundary.
func (c *channel) otherEnd(node int) int {
	if c.peerA == node {
		return c.peerB
	}
	return c.peerA
}

// tryWrite attempts to deliver value from writerNode immediately to a
// reader already queued on this channel. It returns true if delivered.
// If no reader is waiting, the write is queued (single-port semantics) and
// the caller must block the writer.
func (c *channel) tryWrite(writerNode int, value uint32) (delivered bool, wokenReader int) {
	if c.hasReader {
		reader := c.readerNode
		c.hasReader = false
		c.readerNode = -1
		return true, reader
	}
	c.hasWriter = true
	c.writerNode = writerNode
	c.writerValue = value
	return false, -1
}

// tryRead attempts to take a value from a writer already queued on this
// channel. It returns the value, whether it was delivered, and the node
// index of the writer that was woken (-1 if none).
func (c *channel) tryRead(readerNode int) (value uint32, delivered bool, wokenWriter int) {
	if c.hasWriter {
		v := c.writerValue
		w := c.writerNode
		c.hasWriter = false
		c.writerNode = -1
		return v, true, w
	}
	c.hasReader = true
	c.readerNode = readerNode
	return 0, false, -1
}

// clearReader removes a pending reader registration, used when a multiport
// read is satisfied on one direction and must be un-registered from the
// others (§3 multiport semantics).
func (c *channel) clearReader(node int) {
	if c.hasReader && c.readerNode == node {
		c.hasReader = false
		c.readerNode = -1
	}
}

// clearWriter removes the pending single-port writer registration if node
// is the queued writer; a registration by any other node is left in place.
func (c *channel) clearWriter(node int) {
	if c.hasWriter && c.writerNode == node {
		c.hasWriter = false
		c.writerNode = -1
	}
}

// multiportDirections lists the directions a multiport address aliases.
// rdlu means "right, down, left, up" — every cardinal direction.
func multiportDirections(addr uint16) []Direction {
	if addr == PortMultiRDLU {
		return []Direction{DirRight, DirDown, DirLeft, DirUp}
	}
	return nil
}
