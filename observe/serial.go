// serial.go - Reconstructs bytes from a node's pin1 drive-state writes
// (spec.md §6 "the serial observer reads node 708's low two bits as pin1
// drive state and reconstructs bytes via the decoder of §4.8").
//
// Grounded on the teacher's terminal_io.go MMIO ring-buffer idiom (buffer
// + drain) and the ay_z80_bus.go/sid_6502_bus.go bus-tap sniffer pattern:
// this observer taps the I/O ring without participating in the write it
// observes.
package observe

import (
	ga144 "github.com/skmp/cubed-sub001"
)

// SerialObserver watches one node's tagged IO-register writes and
// reconstructs the RS232 byte stream its pin1 drive state encodes.
type SerialObserver struct {
	coord   ga144.Coord
	baud    int
	lastSeq uint64

	haveLevel bool
	level     bool
	lastTime  float64

	segments []ga144.BitSegment
	decoded  []byte
}

// NewSerialObserver returns an observer for coord's pin1 line at baud.
func NewSerialObserver(coord ga144.Coord, baud int) *SerialObserver {
	return &SerialObserver{coord: coord, baud: baud}
}

// pin1Level decodes the two-bit pin1 drive field the same way pin17 is
// decoded (§3): DriveHigh -> true, DriveLow -> false. Hi-Z/weak-pulldown
// writes don't change the line's logical level (§4.6's RS232 framing never
// drives those states).
func pin1Level(value uint32, current bool) bool {
	switch value & 0x3 {
	case ga144.Pin17DriveHigh:
		return true
	case ga144.Pin17DriveLow:
		return false
	default:
		return current
	}
}

// Poll reads every new record from ring targeting the observed coord and
// extends the reconstructed bit schedule, re-running the RS232 decoder
// over the accumulated schedule. Returns the number of records consumed.
func (s *SerialObserver) Poll(ring *ga144.IORing) int {
	records, startSeq := ring.Delta(s.lastSeq)
	if startSeq > s.lastSeq {
		s.lastSeq = startSeq
	}
	consumed := 0
	for _, rec := range records {
		s.lastSeq = rec.Seq + 1
		if rec.Coord != s.coord {
			continue
		}
		consumed++
		next := pin1Level(rec.Value, s.level)
		if !s.haveLevel {
			s.haveLevel = true
			s.level = next
			s.lastTime = rec.Timestamp
			continue
		}
		if dt := rec.Timestamp - s.lastTime; dt > 0 {
			s.segments = appendSegment(s.segments, s.level, dt)
		}
		s.level = next
		s.lastTime = rec.Timestamp
	}
	if consumed > 0 {
		decoded, err := ga144.DecodeRS232(s.segments, s.baud)
		if err == nil {
			s.decoded = decoded
		}
	}
	return consumed
}

// appendSegment merges a run into the schedule the same way the encoder
// does, so a long idle/drive period observed as many small writes decodes
// identically to one emitted as a single segment.
func appendSegment(segs []ga144.BitSegment, high bool, durationNS float64) []ga144.BitSegment {
	if n := len(segs); n > 0 && segs[n-1].High == high {
		segs[n-1].DurationNS += durationNS
		return segs
	}
	return append(segs, ga144.BitSegment{High: high, DurationNS: durationNS})
}

// Bytes returns the bytes decoded from the schedule observed so far. The
// result may grow as more writes are polled; a trailing partial frame
// (not yet terminated by its stop bit) is simply not included until it
// completes.
func (s *SerialObserver) Bytes() []byte {
	out := make([]byte, len(s.decoded))
	copy(out, s.decoded)
	return out
}
