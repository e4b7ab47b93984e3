package vm

import (
	"encoding/binary"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// buildImage assembles a minimal Glulx game file: a valid header, the start
// function (whose bytecode is supplied by the caller) at address 0x100, and
// extraRAM zero-filled bytes past end of file for the function to use as
// scratch globals.
func buildImage(funcBytes []byte, extraRAM uint32) []byte {
	return buildImageVersion(funcBytes, extraRAM, 0x00030100)
}

// buildImageVersion is buildImage with an explicit header version word, so
// tests can construct two images that differ only in their identity chunk.
func buildImageVersion(funcBytes []byte, extraRAM, version uint32) []byte {
	const ramstart = 0x100
	endgamefile := ramstart + uint32(len(funcBytes))
	origendmem := endgamefile + extraRAM

	img := make([]byte, endgamefile)
	copy(img[0:4], "Glul")
	binary.BigEndian.PutUint32(img[4:8], version)
	binary.BigEndian.PutUint32(img[8:12], ramstart)
	binary.BigEndian.PutUint32(img[12:16], endgamefile)
	binary.BigEndian.PutUint32(img[16:20], origendmem)
	binary.BigEndian.PutUint32(img[20:24], 0x1000)
	binary.BigEndian.PutUint32(img[24:28], ramstart)
	binary.BigEndian.PutUint32(img[28:32], 0)
	copy(img[ramstart:], funcBytes)

	var sum uint32
	for off := uint32(0); off+4 <= endgamefile; off += 4 {
		if off == 32 {
			continue
		}
		sum += binary.BigEndian.Uint32(img[off:])
	}
	binary.BigEndian.PutUint32(img[32:36], sum)
	return img
}

// stackFunc wraps body in a type-0xC0 (stack-args) function header with no
// locals.
func stackFunc(body []byte) []byte {
	return append([]byte{0xC0, 0x00, 0x00}, body...)
}

func u32be(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func newTestVM(t *testing.T, image []byte) *VM {
	t.Helper()
	v := New(nil, nil)
	assert(t, v.LoadImage(image) == nil, "LoadImage failed")
	assert(t, v.VerifyChecksum(), "checksum should verify for a freshly built image")
	assert(t, v.Restart() == nil, "Restart failed")
	return v
}

func TestAddAndQuit(t *testing.T) {
	// add 2 3 -> global; quit
	add := []byte{0x10, 0x11, 0x07, 0x02, 0x03}
	add = append(add, u32be(0)...) // patched below once we know the global's address
	quit := []byte{0x81, 0x20}     // opcode 0x120 (quit), no operands

	body := append(add, quit...)
	fn := stackFunc(body)

	global := uint32(0x100 + len(fn)) // first byte past end of file
	// Patch the store operand's address (last 4 bytes of the add instruction)
	// before the image is built, so the header checksum covers it.
	addrOff := 3 + 3 + 2 // funcHeader(3) + opcode/modebytes(3) + two load bodies(2)
	copy(fn[addrOff:addrOff+4], u32be(global))
	image := buildImage(fn, 4)

	v := newTestVM(t, image)
	err := v.Run()
	assert(t, err == nil, "expected clean quit, got %v", err)
	assert(t, v.Mem.Long(0, global) == 5, "expected 2+3 stored at global, got %d", v.Mem.Long(0, global))
}

func TestDivisionByZero(t *testing.T) {
	div := []byte{0x13, 0x01, 0x00, 0x01} // div 1 0 -> discard
	image := buildImage(stackFunc(div), 0)

	v := newTestVM(t, image)
	err := v.Run()
	fe, ok := err.(*FatalError)
	assert(t, ok, "expected a *FatalError, got %v (%T)", err, err)
	assert(t, fe.Msg == "division by zero", "expected division-by-zero error, got %q", fe.Msg)
}

func TestUnrecognizedOpcode(t *testing.T) {
	image := buildImage(stackFunc([]byte{0x7F}), 0) // 0x7F is not an assigned opcode
	v := newTestVM(t, image)
	err := v.Run()
	fe, ok := err.(*FatalError)
	assert(t, ok, "expected a *FatalError, got %v (%T)", err, err)
	assert(t, fe.PC == 0x100+4, "fatal error should point just past the unrecognized opcode byte, got pc %06x", fe.PC)
}

func TestInfiniteRecursionOverflowsStack(t *testing.T) {
	const startAddr = 0x100
	// callf startAddr -> discard, forever.
	callf := []byte{0x81, 0x60, 0x03}
	callf = append(callf, u32be(startAddr)...)
	image := buildImage(stackFunc(callf), 0)

	v := newTestVM(t, image)
	err := v.Run()
	_, ok := err.(*FatalError)
	assert(t, ok, "expected recursion to exhaust the stack with a *FatalError, got %v", err)
}

func TestChecksumRejectsCorruption(t *testing.T) {
	image := buildImage(stackFunc([]byte{0x81, 0x20}), 0)
	image[0x100] ^= 0xFF // corrupt a byte covered by the checksum

	v := New(nil, nil)
	assert(t, v.LoadImage(image) == nil, "LoadImage failed")
	assert(t, !v.VerifyChecksum(), "checksum should not verify after corruption")
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	image := buildImage(stackFunc([]byte{0x81, 0x20}), 4)
	v := newTestVM(t, image)

	global := uint32(len(image))
	v.Mem.SetLong(0, global, 0xCAFEBABE)

	data, err := v.SaveState()
	assert(t, err == nil, "SaveState failed: %v", err)

	v.Mem.SetLong(0, global, 0)
	assert(t, v.RestoreState(data) == nil, "RestoreState failed")
	assert(t, v.Mem.Long(0, global) == 0xCAFEBABE, "restored memory does not match saved state")
}

func TestSaveRestorePreservesGrownMemory(t *testing.T) {
	image := buildImage(stackFunc([]byte{0x81, 0x20}), 0)
	v := newTestVM(t, image)

	origSize := v.Mem.Size()
	v.Mem.Resize(origSize + 16) // simulate RAM grown by malloc/setmemsize
	v.Mem.SetLong(0, origSize, 0xDEADBEEF)

	data, err := v.SaveState()
	assert(t, err == nil, "SaveState failed: %v", err)

	b := newTestVM(t, image)
	assert(t, b.Mem.Size() == origSize, "sanity: fresh VM should start at the pre-growth size")
	assert(t, b.RestoreState(data) == nil, "RestoreState failed")
	assert(t, b.Mem.Size() == origSize+16, "restore should grow memory back to the saved endmem, got %06x", b.Mem.Size())
	assert(t, b.Mem.Long(0, origSize) == 0xDEADBEEF, "restored memory in the grown region does not match saved state")
}

func TestStrFrameChainSurvivesSuspension(t *testing.T) {
	image := buildImage(stackFunc([]byte{0x81, 0x20}), 0)
	v := newTestVM(t, image)
	spBefore := v.Stack.SP()

	v.strStack = []strFrame{
		{kind: strKindCompressed, cursorByte: 0x1234, cursorBit: 5},
		{kind: strKindRaw8, cursorByte: 0x5678},
	}
	depth := v.suspendStrStack()
	assert(t, depth == 2, "expected to serialize 2 frames, got %d", depth)
	assert(t, len(v.strStack) == 0, "strStack should be cleared after suspending")
	assert(t, v.Stack.SP() == spBefore+2*callStubSize, "expected 2 call stubs pushed onto the real stack, sp is %06x", v.Stack.SP())

	v.resumeStrStack(depth)
	assert(t, v.Stack.SP() == spBefore, "resuming should pop exactly what suspending pushed")
	assert(t, len(v.strStack) == 2, "expected 2 frames restored, got %d", len(v.strStack))
	assert(t, v.strStack[0].kind == strKindCompressed && v.strStack[0].cursorByte == 0x1234 && v.strStack[0].cursorBit == 5,
		"bottom frame mismatch: %+v", v.strStack[0])
	assert(t, v.strStack[1].kind == strKindRaw8 && v.strStack[1].cursorByte == 0x5678,
		"top frame mismatch: %+v", v.strStack[1])
}

func TestSaveRestoreRejectsForeignGame(t *testing.T) {
	imageA := buildImage(stackFunc([]byte{0x81, 0x20}), 0)
	imageB := buildImageVersion(stackFunc([]byte{0x81, 0x20}), 0, 0x00030200) // different identity chunk

	a := newTestVM(t, imageA)
	data, err := a.SaveState()
	assert(t, err == nil, "SaveState failed: %v", err)

	b := newTestVM(t, imageB)
	assert(t, b.RestoreState(data) != nil, "restoring a save from a different game should fail")
}

func TestShiftClamping(t *testing.T) {
	assert(t, shiftl(1, 32) == 0, "shiftl by >=32 should clamp to 0")
	assert(t, ushiftr(0xFFFFFFFF, 32) == 0, "ushiftr by >=32 should clamp to 0")
	assert(t, sshiftr(0xFFFFFFFF, 32) == 0xFFFFFFFF, "sshiftr by >=32 on a negative value should sign-fill with all 1s")
	assert(t, sshiftr(0x7FFFFFFF, 32) == 0, "sshiftr by >=32 on a positive value should clamp to 0")
}

func TestRandomPortableSeed(t *testing.T) {
	r1 := newRNG()
	r1.Reseed(12345)
	r2 := newRNG()
	r2.Reseed(12345)

	for i := 0; i < 1000; i++ {
		a, b := r1.next(), r2.next()
		assert(t, a == b, "MT19937 streams diverged at step %d: %08x vs %08x", i, a, b)
	}
}

func TestRandomZeroSeedIsNative(t *testing.T) {
	r := newRNG()
	r.Reseed(0)
	assert(t, r.native, "seeding with 0 should switch to the native, non-deterministic source")
}
