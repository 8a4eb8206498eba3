// validate.go - Concurrent per-node compile-time validation (§7 "Programmer
// errors: detected at compile or load time, surfaced to the caller as a
// list of {line, col, message}; the partial program may still load").
//
// Grounded on the fan-out-collect shape of the teacher's
// coprocessor_manager.go dispatch loop, rewritten here against
// golang.org/x/sync/errgroup since each node's validation is fully
// independent and the teacher's go.mod already carries errgroup as an
// indirect dependency this module is the first to import directly.

package ga144

import "golang.org/x/sync/errgroup"

// ValidateProgram checks every node image in p independently and
// concurrently, returning every CompileError found across all nodes
// (order is not significant across nodes; errors within one node appear
// in detection order). The program may still be loaded even if errors are
// returned — validation is advisory, not a load gate (§7).
func ValidateProgram(p *Program) []CompileError {
	results := make([][]CompileError, len(p.Nodes))

	var g errgroup.Group
	for i := range p.Nodes {
		i := i
		g.Go(func() error {
			results[i] = validateNode(p.Nodes[i])
			return nil
		})
	}
	_ = g.Wait() // validateNode never returns an error; it only appends findings

	var all []CompileError
	all = append(all, p.Errors...)
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// validateNode checks one CompiledNode for the malformed-image conditions
// §7 names ("malformed compiled image"): an out-of-range coordinate, a
// code length that doesn't fit the 64-word local memory, a P/B register
// init outside the valid 9-bit address space, and an initial stack deeper
// than the hardware stack. Word contents are not decoded here —
// EncodeWord (word.go) already rejects an illegal slot-3 opcode at the
// point a word is assembled, and every slot-3 field recovered from a
// stored Word is a multiple of 4 by construction of the XOR codec itself
// (§9), so there is nothing further to check once a word exists.
func validateNode(img CompiledNode) []CompileError {
	var errs []CompileError

	if !img.Coord.Valid() {
		errs = append(errs, CompileError{
			Coord:   uint16(img.Coord),
			Message: "coordinate is not a valid YXX mesh position",
		})
		return errs
	}

	if img.Len < 0 || img.Len > RAMSize {
		errs = append(errs, CompileError{
			Coord:   uint16(img.Coord),
			Message: "code length does not fit in 64-word local memory",
		})
	}

	if img.P != nil && *img.P > 0x1FF {
		errs = append(errs, CompileError{
			Coord:   uint16(img.Coord),
			Message: "initial P does not fit the 9-bit program counter",
		})
	}
	if img.B != nil && *img.B > 0x1FF {
		errs = append(errs, CompileError{
			Coord:   uint16(img.Coord),
			Message: "initial B does not fit the 9-bit address space",
		})
	}
	if len(img.Stack) > DataStackDepth {
		errs = append(errs, CompileError{
			Coord:   uint16(img.Coord),
			Message: "initial stack has more entries than the 8-deep data stack holds",
		})
	}

	return errs
}
