// ga144ctl - command-line front end for the GA144 mesh emulator library.
//
// Grounded on oisee-z80-optimizer's cmd/z80opt/main.go cobra subcommand
// wiring (root command + one cobra.Command per operation, flags owned by
// each subcommand) and the teacher's cmd/ie32to64 convention of keeping
// the only package main in a dedicated cmd/ directory separate from the
// library.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	ga144 "github.com/skmp/cubed-sub001"
	"github.com/skmp/cubed-sub001/observe"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ga144ctl",
		Short: "Drive the GA144 mesh emulator: boot-stream inspection, stepping, and I/O observation",
	}
	root.AddCommand(newBootCmd(), newStepCmd(), newRingCmd(), newMonitorCmd())
	return root
}

// nodeFlagSet registers a repeatable "--node coord=word" flag building a one-word
// CompiledNode per occurrence, the CLI's stand-in for a real compiler
// front end (out of scope per spec.md §1).
func nodeFlagSet(cmd *cobra.Command) *[]string {
	var nodes []string
	cmd.Flags().StringArrayVar(&nodes, "node", nil, `one node fill, "coord=word" (e.g. --node 709=0xAA), repeatable`)
	return &nodes
}

func parseNodes(specs []string) (*ga144.Program, error) {
	prog := &ga144.Program{}
	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --node %q: expected coord=word", spec)
		}
		coord, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid --node coord %q: %w", parts[0], err)
		}
		word, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid --node word %q: %w", parts[1], err)
		}
		w := ga144.RawData(uint32(word))
		var mem [ga144.RAMSize]*ga144.Word
		mem[0] = &w
		prog.Nodes = append(prog.Nodes, ga144.CompiledNode{
			Coord: ga144.Coord(coord),
			Mem:   mem,
			Len:   1,
		})
	}
	return prog, nil
}

func newBootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Build the async-boot wire byte stream for a set of node fills and print it",
	}
	nodes := nodeFlagSet(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		prog, err := parseNodes(*nodes)
		if err != nil {
			return err
		}
		if errs := ga144.ValidateProgram(prog); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
		}
		artifact, err := ga144.BuildBootStream(prog)
		if err != nil {
			return err
		}
		fmt.Printf("path (%d nodes): %v\n", len(artifact.Path), artifact.Path)
		fmt.Printf("wire nodes (%d): %v\n", len(artifact.WireNodes), artifact.WireNodes)
		fmt.Printf("%d words, %d bytes:\n", len(artifact.Words), len(artifact.Bytes))
		for i, b := range artifact.Bytes {
			fmt.Printf("%02X ", b)
			if (i+1)%16 == 0 {
				fmt.Println()
			}
		}
		fmt.Println()
		return nil
	}
	return cmd
}

func newStepCmd() *cobra.Command {
	var budget int
	var seed uint
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Load node fills directly, run the scheduler to completion or budget, and print a register snapshot",
	}
	nodes := nodeFlagSet(cmd)
	cmd.Flags().IntVar(&budget, "budget", 1_000_000, "scheduler event budget (step_until_done)")
	cmd.Flags().UintVar(&seed, "seed", 1, "thermal PRNG seed")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		prog, err := parseNodes(*nodes)
		if err != nil {
			return err
		}
		g := ga144.NewGA144(uint32(seed))
		g.LoadProgram(prog)
		done := g.StepUntilDone(budget)
		fmt.Printf("drained before budget: %v\n", done)
		for _, n := range prog.Nodes {
			snap, ok := g.Snapshot(n.Coord)
			if !ok {
				continue
			}
			fmt.Printf("node %03d: RAM[0]=0x%05X B=0x%03X P=0x%03X t=%.1fns\n", n.Coord, snap.RAM[0], snap.B, snap.P, snap.SimulatedTime)
		}
		return nil
	}
	return cmd
}

func newRingCmd() *cobra.Command {
	var budget int
	var seed uint
	cmd := &cobra.Command{
		Use:   "ring",
		Short: "Load node fills, step the scheduler, and dump the tagged I/O ring's contents",
	}
	nodes := nodeFlagSet(cmd)
	cmd.Flags().IntVar(&budget, "budget", 1_000_000, "scheduler event budget")
	cmd.Flags().UintVar(&seed, "seed", 1, "thermal PRNG seed")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		prog, err := parseNodes(*nodes)
		if err != nil {
			return err
		}
		g := ga144.NewGA144(uint32(seed))
		g.LoadProgram(prog)
		g.StepUntilDone(budget)
		records, startSeq := g.Ring().Delta(0)
		fmt.Printf("startSeq=%d entries=%d\n", startSeq, len(records))
		for _, r := range records {
			fmt.Printf("seq=%d coord=%03d value=0x%05X t=%.3fns\n", r.Seq, r.Coord, r.Value, r.Timestamp)
		}
		return nil
	}
	return cmd
}

func newMonitorCmd() *cobra.Command {
	var coord uint
	var baud int
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Interactively feed raw stdin bytes to a node's pin17 as RS232 and echo its pin1 output",
	}
	cmd.Flags().UintVar(&coord, "coord", ga144.BootNode, "target node coordinate")
	cmd.Flags().IntVar(&baud, "baud", 115200, "serial baud rate")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runMonitor(ga144.Coord(coord), baud)
	}
	return cmd
}

// runMonitor mirrors the teacher's TerminalHost: put stdin in raw mode,
// read bytes in a loop, translate CR to LF, and restore stdin on exit.
// Each byte read is RS232-encoded onto the target node's pin17, and the
// node's pin1 drive writes are decoded back and printed as they arrive.
func runMonitor(coord ga144.Coord, baud int) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)
	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("monitor: failed to set nonblocking stdin: %w", err)
	}
	defer syscall.SetNonblock(fd, false)

	fmt.Printf("ga144ctl monitor: node %03d @ %d baud (Ctrl-C to exit)\r\n", coord, baud)

	g := ga144.NewGA144(1)
	obs := observe.NewSerialObserver(coord, baud)

	buf := make([]byte, 1)
	for {
		n, err := syscall.Read(fd, buf)
		if n > 0 {
			b := buf[0]
			if b == '\r' {
				b = '\n'
			}
			if b == 0x03 { // Ctrl-C
				return nil
			}
			segs := ga144.EncodeRS232([]byte{b}, baud, 0)
			if err := g.EnqueueSerialBits(coord, segs); err != nil {
				fmt.Fprintf(os.Stderr, "\r\nmonitor: %v\r\n", err)
			}
			g.StepUntilDone(100000)
			obs.Poll(g.Ring())
			fmt.Printf("\r\nobserved: % X\r\n", obs.Bytes())
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}
