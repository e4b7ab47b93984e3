package vm

import (
	"bytes"
	"fmt"

	"github.com/zarf/glulxvm/internal/ifio"
)

// ifhdSize is the number of leading game-file bytes recorded in a save
// file's IFhd chunk, used to verify a save matches the game it was taken
// from.
const ifhdSize = 128

// SaveState writes a complete Quetzal-style IFZS save of the VM's current
// state: an IFhd identity chunk, a CMem compressed-RAM chunk, a Stks chunk,
// and (if the heap is active) a MAll chunk.
func (v *VM) SaveState() ([]byte, error) {
	var chunks []ifio.Chunk

	hdr := ifhdSize
	if hdr > len(v.gameFile) {
		hdr = len(v.gameFile)
	}
	chunks = append(chunks, ifio.Chunk{ID: "IFhd", Data: append([]byte(nil), v.gameFile[:hdr]...)})
	chunks = append(chunks, ifio.Chunk{ID: "CMem", Data: v.encodeCMem()})
	chunks = append(chunks, ifio.Chunk{ID: "Stks", Data: append([]byte(nil), v.Stack.Slice(0, v.Stack.SP())...)})

	if blocks := v.HeapBlocks(); len(blocks) > 0 {
		chunks = append(chunks, ifio.Chunk{ID: "MAll", Data: encodeMAll(v.heap.start, blocks)})
	}

	var buf bytes.Buffer
	if err := ifio.WriteForm(&buf, "IFZS", chunks); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RestoreState reconstructs VM state from a save file produced by
// SaveState (or a compatible interpreter), verifying it matches the
// currently loaded game.
func (v *VM) RestoreState(data []byte) error {
	form, err := ifio.ReadForm(data)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if form.SubType != "IFZS" {
		return fmt.Errorf("restore: not a Glulx save file (FORM type %q)", form.SubType)
	}

	ifhd := form.Find("IFhd")
	if ifhd == nil {
		return fmt.Errorf("restore: save file has no IFhd chunk")
	}
	hdr := ifhdSize
	if hdr > len(v.gameFile) {
		hdr = len(v.gameFile)
	}
	if !bytes.Equal(ifhd, v.gameFile[:hdr]) {
		return fmt.Errorf("restore: save file does not match the running game")
	}

	cmem := form.Find("CMem")
	if cmem == nil {
		return fmt.Errorf("restore: save file has no CMem chunk")
	}
	// Bytes in the protect range keep their current values across a restore.
	var protected []byte
	if v.protectEnd > v.protectStart && v.protectEnd <= v.Mem.Size() {
		protected = append([]byte(nil), v.Mem.Slice(v.protectStart, v.protectEnd)...)
	}
	if err := v.decodeCMem(cmem); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if protected != nil && v.protectEnd <= v.Mem.Size() {
		copy(v.Mem.Slice(v.protectStart, v.protectEnd), protected)
	}

	stks := form.Find("Stks")
	if stks == nil {
		return fmt.Errorf("restore: save file has no Stks chunk")
	}
	v.restoreStack(stks)

	if mall := form.Find("MAll"); mall != nil {
		start, blocks, err := decodeMAll(mall)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		v.RestoreHeap(start, blocks)
	} else {
		v.heap = nil
	}

	return nil
}

// encodeCMem writes the current endmem as a leading 4-byte big-endian long,
// then XORs current RAM against the original ROM image (zero beyond its
// length) and run-length-encodes the resulting zero bytes: a 0x00 byte is
// followed by a count byte meaning (count+1) zero bytes in a row; any
// non-zero byte is stored literally. Most of a running game's RAM is
// unchanged from ROM, so this is small. Grounded on serial.c's
// write_memstate, which writes endmem before the XOR-RLE stream.
func (v *VM) encodeCMem() []byte {
	ram := v.Mem.Slice(v.ramstart, v.Mem.Size())
	romTail := v.gameFile[v.ramstart:min32(v.endgamefile, v.Mem.Size())]

	xored := make([]byte, len(ram))
	for i := range ram {
		var rb byte
		if i < len(romTail) {
			rb = romTail[i]
		}
		xored[i] = ram[i] ^ rb
	}

	out := appendU32(nil, v.Mem.Size())
	i := 0
	for i < len(xored) {
		if xored[i] != 0 {
			out = append(out, xored[i])
			i++
			continue
		}
		run := 0
		for i+run < len(xored) && xored[i+run] == 0 && run < 256 {
			run++
		}
		out = append(out, 0x00, byte(run-1))
		i += run
	}
	return out
}

// decodeCMem reads the leading endmem long and resizes memory to match
// before XOR-decoding the rest, exactly as serial.c's read_memstate calls
// change_memsize(newlen) ahead of decoding. A game that grew RAM via
// malloc/setmemsize before save must restore into a VM resized to match,
// or the XOR pass below would run against the wrong-sized (and possibly
// too-small) RAM region.
func (v *VM) decodeCMem(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("truncated CMem chunk")
	}
	endmem := readU32(data[0:4])
	if endmem < v.ramstart {
		return fmt.Errorf("CMem endmem %06x is below ramstart", endmem)
	}
	data = data[4:]

	v.Mem.Resize(endmem)
	romTail := v.gameFile[v.ramstart:min32(v.endgamefile, endmem)]

	var xored []byte
	for i := 0; i < len(data); {
		if data[i] != 0 {
			xored = append(xored, data[i])
			i++
			continue
		}
		if i+1 >= len(data) {
			return fmt.Errorf("truncated CMem run")
		}
		count := int(data[i+1]) + 1
		for j := 0; j < count; j++ {
			xored = append(xored, 0)
		}
		i += 2
	}

	ram := v.Mem.Slice(v.ramstart, v.Mem.Size())
	for i := range ram {
		var rb byte
		if i < len(romTail) {
			rb = romTail[i]
		}
		var xb byte
		if i < len(xored) {
			xb = xored[i]
		}
		ram[i] = xb ^ rb
	}
	return nil
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// restoreStack loads raw stack bytes and recomputes frameptr/localsbase/
// valstackbase by walking call frames from the bottom, since neither is
// stored explicitly in the Stks chunk.
func (v *VM) restoreStack(data []byte) {
	copy(v.Stack.bytes, data)
	for i := len(data); i < len(v.Stack.bytes); i++ {
		v.Stack.bytes[i] = 0
	}
	v.Stack.setSP(uint32(len(data)))

	var frameptr uint32
	for frameptr < uint32(len(data)) {
		frameLen := v.Stack.Long(0, frameptr+0)
		if frameptr+frameLen >= uint32(len(data)) {
			break
		}
		frameptr += frameLen
	}
	v.frameptr = frameptr
	if frameptr < uint32(len(data)) {
		localsPos := v.Stack.Long(0, frameptr+4)
		v.localsbase = frameptr + localsPos
		v.valstackbase = uint32(len(data))
	}
}

func encodeMAll(start uint32, blocks []heapBlock) []byte {
	out := make([]byte, 0, 4+8*len(blocks))
	out = appendU32(out, start)
	for _, b := range blocks {
		out = appendU32(out, b.addr)
		out = appendU32(out, b.size)
	}
	return out
}

func decodeMAll(data []byte) (uint32, []heapBlock, error) {
	if len(data) < 4 || (len(data)-4)%8 != 0 {
		return 0, nil, fmt.Errorf("malformed MAll chunk")
	}
	start := readU32(data[0:4])
	var blocks []heapBlock
	for i := 4; i < len(data); i += 8 {
		blocks = append(blocks, heapBlock{addr: readU32(data[i : i+4]), size: readU32(data[i+4 : i+8])})
	}
	return start, blocks, nil
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func readU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
