package vm

// Function header types, matching the "C0"/"C1" bytes glulxe
// reads at the start of every callable function.
const (
	funcTypeStack = 0xC0 // arguments left on the value stack, with a count
	funcTypeLocal = 0xC1 // arguments copied into the first locals
)

// localsGroup is one (size, count) pair from a function's locals-format
// list: count locals, each size bytes wide.
type localsGroup struct {
	size  byte
	count byte
}

// readLocalsFormat reads the locals-format list starting right after a
// function's type byte, returning each group and the address just past the
// terminating (0,0) pair.
func (v *VM) readLocalsFormat(addr uint32) ([]localsGroup, uint32) {
	var groups []localsGroup
	for {
		size := byte(v.Mem.Byte(v.pc, addr))
		count := byte(v.Mem.Byte(v.pc, addr+1))
		addr += 2
		if size == 0 {
			break
		}
		groups = append(groups, localsGroup{size: size, count: count})
	}
	return groups, addr
}

// localsLayout computes the total (padded) size of the locals described by
// groups, laid out back to back starting at offset 0, each group aligned to
// its own element size.
func localsLayout(groups []localsGroup) uint32 {
	var pos uint32
	for _, g := range groups {
		if g.size > 1 && pos%uint32(g.size) != 0 {
			pos += uint32(g.size) - pos%uint32(g.size)
		}
		pos += uint32(g.size) * uint32(g.count)
	}
	return pos
}

// enterFunction builds a new call frame at the current stack pointer and
// transfers control to addr, with the given already-evaluated arguments
// (in source order, args[0] is the function's first parameter). The frame
// header written to the stack (frame length and locals offset, followed by
// a copy of the locals-format list) is structured exactly so that a
// later return can recompute localsbase/valstackbase purely by re-reading
// it, without needing extra call-stub fields.
func (v *VM) enterFunction(addr uint32, args []uint32) {
	functype := v.Mem.Byte(v.pc, addr)
	if functype != funcTypeStack && functype != funcTypeLocal {
		v.fatal("invalid function header at %06x", addr)
	}

	groups, listEnd := v.readLocalsFormat(addr + 1)
	localsSize := localsLayout(groups)

	frameptr := v.Stack.SP()
	listStart := addr + 1
	listLen := listEnd - listStart

	localsPos := uint32(8) + listLen
	firstAlign := uint32(1)
	if len(groups) > 0 {
		firstAlign = uint32(groups[0].size)
	}
	if firstAlign > 1 && localsPos%firstAlign != 0 {
		localsPos += firstAlign - localsPos%firstAlign
	}

	frameLen := localsPos + localsSize
	if frameLen%4 != 0 {
		frameLen += 4 - frameLen%4
	}

	v.Stack.setSP(frameptr + frameLen)
	v.Stack.SetLong(v.pc, frameptr+0, frameLen)
	v.Stack.SetLong(v.pc, frameptr+4, localsPos)

	for i := uint32(0); i < listLen; i++ {
		v.Stack.SetByte(v.pc, frameptr+8+i, v.Mem.Byte(v.pc, listStart+i))
	}
	for i := frameptr + 8 + listLen; i < frameptr+localsPos; i++ {
		v.Stack.SetByte(v.pc, i, 0)
	}

	localsbase := frameptr + localsPos
	for i := uint32(0); i < localsSize; i++ {
		v.Stack.SetByte(v.pc, localsbase+i, 0)
	}

	v.frameptr = frameptr
	v.localsbase = localsbase
	v.valstackbase = frameptr + frameLen

	switch functype {
	case funcTypeLocal:
		v.storeLocalArgs(groups, localsbase, args)
	case funcTypeStack:
		for i := len(args) - 1; i >= 0; i-- {
			v.Stack.Push4(v.pc, args[i])
		}
		v.Stack.Push4(v.pc, uint32(len(args)))
	}

	v.pc = addr + (listEnd - addr)
}

// storeLocalArgs copies args into the first locals in declaration order,
// narrowing each to its local's width; locals beyond len(args) stay zero.
func (v *VM) storeLocalArgs(groups []localsGroup, localsbase uint32, args []uint32) {
	pos := uint32(0)
	ai := 0
	for _, g := range groups {
		if g.size > 1 && pos%uint32(g.size) != 0 {
			pos += uint32(g.size) - pos%uint32(g.size)
		}
		for c := byte(0); c < g.count; c++ {
			if ai < len(args) {
				switch g.size {
				case 1:
					v.Stack.SetByte(v.pc, localsbase+pos, args[ai])
				case 2:
					v.Stack.SetWord(v.pc, localsbase+pos, args[ai])
				default:
					v.Stack.SetLong(v.pc, localsbase+pos, args[ai])
				}
				ai++
			}
			pos += uint32(g.size)
		}
	}
}

// performCall pushes a call stub recording where the eventual return value
// should go and what to resume, then enters the callee -- or, if addr names
// an accelerated function, computes its result directly and delivers the
// return without ever building a frame.
func (v *VM) performCall(addr uint32, args []uint32, stub callStub) {
	if result, ok := v.tryAccel(addr, args); ok {
		v.deliverReturn(stub, result)
		return
	}
	v.Stack.pushCallStub(v.pc, stub)
	v.enterFunction(addr, args)
}

// performTailcall discards the current frame without disturbing the call
// stub beneath it (which still names the original caller), then enters the
// new function as if it had been called directly by that caller.
func (v *VM) performTailcall(addr uint32, args []uint32) {
	if result, ok := v.tryAccel(addr, args); ok {
		v.leaveFunction(result)
		return
	}
	v.Stack.setSP(v.frameptr)
	v.enterFunction(addr, args)
}

// leaveFunction pops the current frame and its call stub, delivers retval
// to the stub's destination, and resumes the caller. If no call stub
// remains (the outermost function is returning), execution is finished.
func (v *VM) leaveFunction(retval uint32) {
	v.Stack.setSP(v.frameptr)
	if v.Stack.SP() == 0 {
		v.errcode = errProgramFinished
		return
	}

	stub := v.Stack.popCallStub(v.pc)
	v.frameptr = stub.frameptr
	v.pc = stub.pc

	frameLen := v.Stack.Long(v.pc, v.frameptr+0)
	localsPos := v.Stack.Long(v.pc, v.frameptr+4)
	v.localsbase = v.frameptr + localsPos
	v.valstackbase = v.frameptr + frameLen

	v.deliverReturn(stub, retval)
}

// deliverReturn routes a function's return value either to an ordinary
// store destination or, for stubs pushed by the string decoder, back into
// the decode-resume path (vm/string.go).
func (v *VM) deliverReturn(stub callStub, retval uint32) {
	switch stub.destType {
	case destDiscard, destMainMemory, destLocal, destPushStack:
		v.storeResult(storeTarget{destType: stub.destType, destAddr: stub.destAddr}, retval)
	case destResumeString, destResumeCharFn:
		v.resumeStringCall(stub, retval)
	default:
		v.fatal("unknown call stub destination type %d", stub.destType)
	}
}

// popArguments pops count 4-byte values off the value stack into a slice in
// call order (array[0] is the first argument), mirroring pop_arguments in
// the original C interpreter.
func (v *VM) popArguments(count uint32) []uint32 {
	args := make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		args[i] = v.Stack.Pop4(v.pc, v.valstackbase)
	}
	return args
}
