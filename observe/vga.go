// vga.go - Decodes the tagged I/O ring's DAC/sync writes into a VGA frame
// (spec.md §6 "the VGA observer reads DAC nodes {117, 617, 717} and the
// sync node 217").
//
// Grounded on the teacher's video_vga.go DAC-register decode logic
// (writeDACData/readDACData, HSYNC/VSYNC status bits) and
// tools/font2rgba.go's raw-pixel-buffer-to-image.NRGBA conversion idiom,
// both repurposed here: there is no real DAC or CRT timing to emulate
// (spec.md §1 "Analog electrical behavior... modeled only as logical bit
// patterns"), so each DAC tagged write is read as one 8-bit channel sample
// of the pixel currently being scanned out, and HSYNC/VSYNC tagged writes
// from node 217 advance the scan position the way a real CRT's sync
// pulses would.
package observe

import (
	"image"

	"golang.org/x/image/draw"

	ga144 "github.com/skmp/cubed-sub001"
)

// FrameWidth and FrameHeight bound the rendered frame. Nothing in spec.md
// gives GA144's VGA firmware's exact resolution (it is a property of the
// guest program, not the chip); this is a generous bound sized to a
// classic VGA mode, with rendering simply stopping at the edge if a guest
// scans further.
const (
	FrameWidth  = 320
	FrameHeight = 240
)

// VGAObserver is a bus-tap sniffer (grounded on the teacher's
// ay_z80_bus.go / sid_6502_bus.go pattern of observing writes without
// participating in them) that decodes DAC and sync tagged writes into
// scanned-out pixels.
type VGAObserver struct {
	lastSeq uint64

	x, y       int
	r, g, b    uint8
	haveR      bool
	haveG      bool
	pixel      *image.NRGBA // 1x1 source used to stamp each decoded pixel
	frame      *image.NRGBA // frame under construction
	lastFrame  *image.NRGBA // most recently completed frame (nil until first VSYNC)
	frameCount int
}

// NewVGAObserver returns an observer with an empty frame buffer.
func NewVGAObserver() *VGAObserver {
	pixel := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	return &VGAObserver{
		frame: image.NewNRGBA(image.Rect(0, 0, FrameWidth, FrameHeight)),
		pixel: pixel,
	}
}

// Poll reads every new record from ring since the observer's last call and
// applies it, returning the number of records consumed.
func (v *VGAObserver) Poll(ring *ga144.IORing) int {
	records, startSeq := ring.Delta(v.lastSeq)
	if startSeq > v.lastSeq {
		// The ring wrapped past records we hadn't seen yet; resume from
		// what's still retained rather than erroring (§7 "ring buffer
		// overflow: silent overwrite").
		v.lastSeq = startSeq
	}
	for _, rec := range records {
		v.apply(rec)
		v.lastSeq = rec.Seq + 1
	}
	return len(records)
}

func (v *VGAObserver) apply(rec ga144.IORecord) {
	switch rec.Coord {
	case ga144.SyncNode:
		drive := (rec.Value >> 16) & 0x3
		switch drive {
		case ga144.SyncHSYNC:
			v.x = 0
			v.y++
		case ga144.SyncVSYNC:
			v.commitFrame()
			v.x, v.y = 0, 0
		}
	case ga144.DACNode0:
		v.r = uint8(rec.Value & 0xFF)
		v.haveR = true
	case ga144.DACNode1:
		v.g = uint8(rec.Value & 0xFF)
		v.haveG = true
	case ga144.DACNode2:
		b := uint8(rec.Value & 0xFF)
		if v.haveR && v.haveG {
			v.plot(v.x, v.y, v.r, v.g, b)
		}
		v.x++
		v.haveR, v.haveG = false, false
	}
}

// plot stamps one fully-sampled pixel into the frame under construction by
// compositing a 1x1 source image, following the teacher's font2rgba.go
// draw.Draw idiom rather than indexing Pix directly.
func (v *VGAObserver) plot(x, y int, r, g, b uint8) {
	if x < 0 || x >= FrameWidth || y < 0 || y >= FrameHeight {
		return
	}
	v.pixel.Pix[0], v.pixel.Pix[1], v.pixel.Pix[2], v.pixel.Pix[3] = r, g, b, 0xFF
	dstRect := image.Rect(x, y, x+1, y+1)
	draw.Draw(v.frame, dstRect, v.pixel, image.Point{}, draw.Src)
}

// commitFrame snapshots the frame under construction as LastFrame and
// starts a fresh one for the next VSYNC-to-VSYNC interval.
func (v *VGAObserver) commitFrame() {
	snap := image.NewNRGBA(v.frame.Bounds())
	draw.Draw(snap, snap.Bounds(), v.frame, image.Point{}, draw.Src)
	v.lastFrame = snap
	v.frameCount++
	v.frame = image.NewNRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
}

// LastFrame returns the most recently VSYNC-completed frame, or nil if no
// VSYNC has been observed yet.
func (v *VGAObserver) LastFrame() *image.NRGBA { return v.lastFrame }

// FrameCount reports how many VSYNCs have completed a frame.
func (v *VGAObserver) FrameCount() int { return v.frameCount }
