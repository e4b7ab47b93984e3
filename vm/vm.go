// Package vm implements the Glulx bytecode interpreter core: memory map,
// stack, operand decoder, dispatch loop, string decoder, heap allocator,
// save/restore, accelerated functions, gestalt, and search opcodes.
//
// A single VM value owns all interpreter state; the only process-wide
// choice left to the embedder is which Glk capability implementation to
// pass in.
package vm

import (
	"encoding/binary"
	"fmt"
)

const headerSize = 4 + 4 + 4*7 // "Glul" + version + 7 header words

// Glk is the single bridge to the outside world: the VM invokes it only
// through the glk opcode. This is the
// narrowest interface the core requires of it.
type Glk interface {
	// Dispatch executes Glk selector fn with the given arguments (already
	// popped from the value stack, in call order) and returns the 32-bit
	// result to store.
	Dispatch(v *VM, selector uint32, args []uint32) uint32
}

// Logger is the VM's optional diagnostic hook: fatal errors get
// a human-readable message and a pc; warnings are reported once. The core
// itself never depends on a concrete logging library.
type Logger interface {
	Warn(msg string)
	Fatal(msg string, pc uint32)
}

type nopLogger struct{}

func (nopLogger) Warn(string)          {}
func (nopLogger) Fatal(string, uint32) {}

// VM is the complete interpreter state.
type VM struct {
	Mem   *Memory
	Stack *Stack

	pc           uint32
	frameptr     uint32
	valstackbase uint32
	localsbase   uint32

	stringtable uint32
	iosysMode   uint32
	iosysRock   uint32

	protectStart uint32
	protectEnd   uint32

	ramstart      uint32
	endgamefile   uint32
	origendmem    uint32
	stacksize     uint32
	startfuncaddr uint32
	decodingTable uint32
	checksum      uint32

	// gameFile is the pristine loaded image, kept for Restart and as the
	// ROM-XOR baseline when writing CMem chunks.
	gameFile []byte

	rng      *rng
	heap     *heapState
	strCache *stringCache
	accel    accelTable
	undo     *undoChain

	// strStack is the in-process compressed-string decode stack
	// (vm/string.go): nonempty exactly while a streamstr is in progress.
	// Whenever decoding must suspend for an indirect function-reference or
	// filter-character call, every frame here is serialized onto the real
	// call stack (suspendStrStack) and this slice is cleared, so the chain
	// rides in the same 16-byte call stubs that save/restore/undo already
	// snapshot instead of a side channel those would miss.
	strStack []strFrame

	glk Glk
	log Logger

	// saveHook/restoreHook deliver and retrieve a save opcode's IFZS bytes;
	// the core has no opinion on where a save file actually lives (disk,
	// Glk stream, embedder-chosen storage) so the front end supplies these.
	saveHook    func([]byte) error
	restoreHook func() ([]byte, error)

	errcode error
}

// SetSaveHooks wires the save/restore opcodes to an embedder-supplied
// persistence mechanism. Either may be nil, in which case the corresponding
// opcode always reports failure.
func (v *VM) SetSaveHooks(save func([]byte) error, restore func() ([]byte, error)) {
	v.saveHook = save
	v.restoreHook = restore
}

// IOSys output disciplines.
const (
	IOSysNull   = 0
	IOSysFilter = 1
	IOSysGlk    = 2
)

// gestaltVersion is the terp spec version reported by gestalt selector 0.
const gestaltVersion = 0x00030103

// New constructs a VM. glkImpl may be nil, in which case the glk opcode
// always returns 0 (no I/O capability attached). log may be nil.
func New(glkImpl Glk, log Logger) *VM {
	if log == nil {
		log = nopLogger{}
	}
	return &VM{glk: glkImpl, log: log, accel: newAccelTable(), undo: newUndoChain(defaultMaxUndoLevel), rng: newRNG()}
}

// LoadImage reads and validates a Glulx game-file header,
// allocates the stack, and stores the image. image must already be
// unwrapped from any Blorb container. Call Restart afterward to build
// memory and enter the start function.
func (v *VM) LoadImage(image []byte) error {
	if len(image) < headerSize {
		return fatalf(0, "game file too short to contain a header")
	}
	if string(image[0:4]) != "Glul" {
		return fatalf(0, "not a Glulx game file (missing 'Glul' signature)")
	}

	ramstart := binary.BigEndian.Uint32(image[8:12])
	endgamefile := binary.BigEndian.Uint32(image[12:16])
	origendmem := binary.BigEndian.Uint32(image[16:20])
	stacksize := binary.BigEndian.Uint32(image[20:24])
	startfuncaddr := binary.BigEndian.Uint32(image[24:28])
	decodingTable := binary.BigEndian.Uint32(image[28:32])
	checksum := binary.BigEndian.Uint32(image[32:36])

	if ramstart&0xFF != 0 || endgamefile&0xFF != 0 || origendmem&0xFF != 0 || stacksize&0xFF != 0 {
		v.log.Warn("one of the segment boundaries in the header is not 256-byte aligned")
	}
	if ramstart < 0x100 || endgamefile < ramstart || origendmem < endgamefile {
		return fatalf(0, "the segment boundaries in the header are in an impossible order")
	}
	if stacksize < 0x100 {
		return fatalf(0, "the stack size in the header is too small")
	}
	if uint32(len(image)) < endgamefile {
		return fatalf(0, "the game file ended unexpectedly")
	}

	v.ramstart = ramstart
	v.endgamefile = endgamefile
	v.origendmem = origendmem
	v.stacksize = stacksize
	v.startfuncaddr = startfuncaddr
	v.decodingTable = decodingTable
	v.checksum = checksum
	v.gameFile = make([]byte, len(image))
	copy(v.gameFile, image)

	v.Stack = newStack(stacksize)
	return nil
}

// VerifyChecksum recomputes the header checksum: the sum of
// every 32-bit big-endian word from offset 0 to endgamefile, treating the
// stored checksum word as zero. Returns true iff it matches.
func (v *VM) VerifyChecksum() bool {
	return v.computeChecksum() == v.checksum
}

func (v *VM) computeChecksum() uint32 {
	var sum uint32
	img := v.gameFile
	for off := uint32(0); off+4 <= v.endgamefile; off += 4 {
		if off == 32 { // the checksum word itself
			continue
		}
		sum += binary.BigEndian.Uint32(img[off:])
	}
	return sum
}

// Restart resets the VM to its initial state: reloads ROM+initial RAM,
// clears registers, and enters the start function. Called both at startup
// and by the restart opcode. Bytes within the protect range are preserved
// across the reset.
func (v *VM) Restart() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				err = fe
				return
			}
			panic(r)
		}
	}()

	var saved []byte
	if v.protectEnd > v.protectStart && v.Mem != nil {
		saved = append([]byte(nil), v.Mem.Slice(v.protectStart, v.protectEnd)...)
	}

	v.Mem = newMemory(v.origendmem, v.ramstart)
	copy(v.Mem.bytes, v.gameFile[:v.endgamefile])
	// bytes [endgamefile, origendmem) are already zero from newMemory.

	if saved != nil {
		copy(v.Mem.bytes[v.protectStart:v.protectEnd], saved)
	}

	v.Stack.setSP(0)
	v.frameptr = 0
	v.pc = 0
	v.valstackbase = 0
	v.localsbase = 0
	v.stringtable = v.decodingTable
	v.strCache = nil
	v.strStack = nil
	v.heap = nil
	v.errcode = nil

	v.enterFunction(v.startfuncaddr, nil)
	return nil
}

// Protect sets the RAM range preserved across restart/restore.
func (v *VM) Protect(start, length uint32) {
	v.protectStart = start
	v.protectEnd = start + length
}

func (v *VM) fatal(format string, args ...any) {
	err := fatalf(v.pc, format, args...)
	v.log.Fatal(err.Msg, err.PC)
	panic(err)
}

// Run executes instructions until quit or a fatal error. It recovers a
// *FatalError panic into v.errcode rather than letting it escape.
func (v *VM) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				v.errcode = fe
				err = fe
				return
			}
			panic(r)
		}
	}()

	for v.errcode == nil {
		v.step()
	}
	if v.errcode == errProgramFinished {
		return nil
	}
	return v.errcode
}

// Step executes exactly one instruction, recovering fatal errors the same
// way Run does. Used by the disassembler/debugger front end.
func (v *VM) Step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				v.errcode = fe
				err = fe
				return
			}
			panic(r)
		}
	}()
	v.step()
	if v.errcode != nil && v.errcode != errProgramFinished {
		return v.errcode
	}
	return nil
}

// PC reports the current program counter, mostly for disassembly/debugging.
func (v *VM) PC() uint32 { return v.pc }

// Err reports the error that stopped execution, if any.
func (v *VM) Err() error { return v.errcode }

func (v *VM) String() string {
	return fmt.Sprintf("VM{pc=%06x sp=%06x frameptr=%06x endmem=%06x}", v.pc, v.Stack.SP(), v.frameptr, v.Mem.Size())
}
