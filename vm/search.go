package vm

// Search option bits, shared by linearsearch/binarysearch/linkedsearch
// shared by the three search opcodes.
const (
	searchKeyIndirect       = 1 << 0
	searchZeroKeyTerminates = 1 << 1
	searchReturnIndex       = 1 << 2
)

// keyBytes renders a search opcode's key operand as keysize bytes to
// compare against a field in memory. When indirect is set, key is itself an
// address of the keysize-byte value (used for keys wider than 4 bytes);
// otherwise key is the inline value, taken from its low keysize bytes.
func (v *VM) keyBytes(key, keysize uint32, indirect bool) []byte {
	buf := make([]byte, keysize)
	if indirect {
		for i := uint32(0); i < keysize; i++ {
			buf[i] = byte(v.Mem.Byte(v.pc, key+i))
		}
		return buf
	}
	for i := uint32(0); i < keysize; i++ {
		shift := (keysize - 1 - i) * 8
		buf[i] = byte(key >> shift)
	}
	return buf
}

func (v *VM) fieldBytes(addr, keysize uint32) []byte {
	buf := make([]byte, keysize)
	for i := uint32(0); i < keysize; i++ {
		buf[i] = byte(v.Mem.Byte(v.pc, addr+i))
	}
	return buf
}

func bytesEqual(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bytesAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// bytesCompare returns -1, 0, or 1 as unsigned big-endian byte strings.
func bytesCompare(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// LinearSearch implements the linearsearch opcode: scan numstructs records
// of structsize bytes starting at start, each containing a keysize-byte key
// at keyoffset, for one matching key. numstructs of 0xFFFFFFFF means
// unbounded (only ZeroKeyTerminates can end the scan). Returns the matching
// struct's address (or its index, if ReturnIndex is set), or
// 0/0xFFFFFFFF if not found.
func (v *VM) LinearSearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) uint32 {
	returnIndex := options&searchReturnIndex != 0
	zeroTerm := options&searchZeroKeyTerminates != 0
	indirect := options&searchKeyIndirect != 0

	want := v.keyBytes(key, keysize, indirect)

	for i := uint32(0); numstructs == 0xFFFFFFFF || i < numstructs; i++ {
		addr := start + i*structsize
		field := v.fieldBytes(addr+keyoffset, keysize)

		if zeroTerm && bytesAllZero(field) {
			break
		}
		if bytesEqual(field, want) {
			if returnIndex {
				return i
			}
			return addr
		}
	}

	if returnIndex {
		return 0xFFFFFFFF
	}
	return 0
}

// BinarySearch implements the binarysearch opcode, assuming the records are
// sorted in ascending key order (unsigned byte-string comparison).
func (v *VM) BinarySearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) uint32 {
	returnIndex := options&searchReturnIndex != 0
	indirect := options&searchKeyIndirect != 0
	want := v.keyBytes(key, keysize, indirect)

	lo, hi := uint32(0), numstructs
	for lo < hi {
		mid := lo + (hi-lo)/2
		addr := start + mid*structsize
		field := v.fieldBytes(addr+keyoffset, keysize)

		switch cmp := bytesCompare(field, want); {
		case cmp == 0:
			if returnIndex {
				return mid
			}
			return addr
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}

	if returnIndex {
		return 0xFFFFFFFF
	}
	return 0
}

// LinkedSearch implements the linkedsearch opcode: walk a singly linked
// list starting at start, each record containing a key at keyoffset and a
// next-pointer at nextoffset; a next value of 0 ends the list.
func (v *VM) LinkedSearch(key, keysize, start, keyoffset, nextoffset, options uint32) uint32 {
	zeroTerm := options&searchZeroKeyTerminates != 0
	indirect := options&searchKeyIndirect != 0
	want := v.keyBytes(key, keysize, indirect)

	addr := start
	for addr != 0 {
		field := v.fieldBytes(addr+keyoffset, keysize)
		if zeroTerm && bytesAllZero(field) {
			return 0
		}
		if bytesEqual(field, want) {
			return addr
		}
		addr = v.Mem.Long(v.pc, addr+nextoffset)
	}
	return 0
}
