// Package glk implements the vm.Glk bridge: the single external capability
// a Glulx program can invoke. This is a minimal terminal-backed Glk, not the
// full windowing/event API -- enough selectors to drive character and line
// output and line input over stdio.
package glk

import (
	"bufio"
	"os"

	"github.com/zarf/glulxvm/vm"
)

// Glk selector numbers this implementation understands, matching the IDs
// the real Glk API assigns to the corresponding glk_* calls.
const (
	SelPutChar       = 0x0080
	SelPutCharUni    = 0x0128
	SelPutBuffer     = 0x0084
	SelPutBufferUni  = 0x012A
	SelGetCharStream = 0x0090
	SelGetLineStream = 0x0091
	SelStylehint     = 0x0032
	SelExit          = 0x002A
)

// Terminal is a synchronous, stdio-backed Glk implementation. Unlike a
// windowed Glk library it has nothing to poll: every selector either
// completes immediately or blocks on a single read, which is fine because
// the interpreter's dispatch loop is itself single-threaded and the glk
// opcode is the only place it ever yields control.
type Terminal struct {
	out *bufio.Writer
	in  *bufio.Reader
}

// NewTerminal builds a Glk capability reading from stdin and writing to
// stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		out: bufio.NewWriter(os.Stdout),
		in:  bufio.NewReader(os.Stdin),
	}
}

// Dispatch implements vm.Glk.
func (t *Terminal) Dispatch(v *vm.VM, selector uint32, args []uint32) uint32 {
	switch selector {
	case SelPutChar:
		t.out.WriteByte(byte(arg(args, 0)))
		t.out.Flush()
		return 1
	case SelPutCharUni:
		t.out.WriteRune(rune(arg(args, 0)))
		t.out.Flush()
		return 1
	case SelPutBuffer:
		t.writeMemBuffer(v, arg(args, 0), arg(args, 1))
		return 1
	case SelPutBufferUni:
		t.writeMemBufferUni(v, arg(args, 0), arg(args, 1))
		return 1
	case SelGetCharStream:
		r, _, err := t.in.ReadRune()
		if err != nil {
			return 0xFFFFFFFF // -1: end of input
		}
		return uint32(r)
	case SelGetLineStream:
		return t.readLine(v, arg(args, 0), arg(args, 1))
	case SelStylehint:
		return 0 // styling is a no-op on a plain terminal
	case SelExit:
		return 0
	default:
		return 0
	}
}

func arg(args []uint32, i int) uint32 {
	if i >= len(args) {
		return 0
	}
	return args[i]
}

// writeMemBuffer/writeMemBufferUni print length bytes/32-bit characters
// starting at addr straight out of VM memory, the shape glk_put_buffer and
// glk_put_buffer_uni expect their two arguments (address, length) to name.
func (t *Terminal) writeMemBuffer(v *vm.VM, addr, length uint32) {
	for i := uint32(0); i < length; i++ {
		t.out.WriteByte(byte(v.Mem.Byte(v.PC(), addr+i)))
	}
	t.out.Flush()
}

func (t *Terminal) writeMemBufferUni(v *vm.VM, addr, length uint32) {
	for i := uint32(0); i < length; i++ {
		t.out.WriteRune(rune(v.Mem.Long(v.PC(), addr+i*4)))
	}
	t.out.Flush()
}

// readLine reads one line from stdin into VM memory as Latin-1 bytes,
// returning the number of characters actually stored (glk_get_line_stream's
// contract: at most maxlen, trailing newline included if it fits).
func (t *Terminal) readLine(v *vm.VM, addr, maxlen uint32) uint32 {
	var n uint32
	for n < maxlen {
		b, err := t.in.ReadByte()
		if err != nil {
			break
		}
		v.Mem.SetByte(v.PC(), addr+n, uint32(b))
		n++
		if b == '\n' {
			break
		}
	}
	return n
}
