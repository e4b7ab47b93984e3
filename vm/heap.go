package vm

import "sort"

// heapBlock is one allocated region of the extended-memory heap.
type heapBlock struct {
	addr uint32
	size uint32
}

// heapState tracks the malloc/mfree heap that lives above endmem once the
// game first calls malloc. Free space between blocks is
// implicit: it is whatever lies between one block's end and the next
// block's start (or the heap's start/end), so coalescing is automatic and
// there is no separate free-list to maintain.
type heapState struct {
	start  uint32 // address of the first byte available to the heap
	blocks []heapBlock
}

func newHeap(start uint32) *heapState {
	return &heapState{start: start}
}

// sortedBlocks returns the allocated blocks ordered by address; kept sorted
// incrementally by Alloc so this is effectively free, but cheap to assert.
func (h *heapState) sortedBlocks() []heapBlock {
	return h.blocks
}

// heapAlloc finds the first gap (first-fit, lowest address) at least size bytes
// wide among the free space between allocated blocks, growing the VM's
// memory to make room if every existing gap is too small. It returns the
// address of the new block.
func (v *VM) heapAlloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	h := v.heap
	cursor := h.start
	for _, b := range h.blocks {
		if b.addr-cursor >= size {
			break
		}
		cursor = b.addr + b.size
	}

	needEnd := cursor + size
	if needEnd > v.Mem.Size() {
		v.Mem.Resize(needEnd)
	}

	h.blocks = append(h.blocks, heapBlock{addr: cursor, size: size})
	sort.Slice(h.blocks, func(i, j int) bool { return h.blocks[i].addr < h.blocks[j].addr })
	return cursor
}

// heapFree removes the block at addr, if any. Freeing an address that was never
// allocated (or was already freed) is a no-op warning, not a fatal error,
// matching glulxe's lenient mfree.
func (v *VM) heapFree(addr uint32) {
	h := v.heap
	if h == nil {
		return
	}
	for i, b := range h.blocks {
		if b.addr == addr {
			h.blocks = append(h.blocks[:i], h.blocks[i+1:]...)
			v.maybeShrinkHeap()
			return
		}
	}
	v.log.Warn("mfree of an address that was not allocated")
}

// maybeShrinkHeap deactivates the heap and restores endmem to its
// pre-allocation size once every block has been freed: an
// empty heap is indistinguishable from no heap at all.
func (v *VM) maybeShrinkHeap() {
	h := v.heap
	if h == nil || len(h.blocks) > 0 {
		return
	}
	if h.start < v.origendmem {
		return
	}
	v.Mem.Resize(h.start)
	v.heap = nil
}

// opMalloc services the malloc opcode, lazily creating the heap at the
// current end of memory on first use.
func (v *VM) opMalloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	if v.heap == nil {
		v.heap = newHeap(v.Mem.Size())
	}
	return v.heapAlloc(size)
}

// opMfree services the mfree opcode.
func (v *VM) opMfree(addr uint32) {
	if addr == 0 {
		return
	}
	v.heapFree(addr)
}

// HeapBlocks exposes the current allocation list for save-file MAll chunks.
func (v *VM) HeapBlocks() []heapBlock {
	if v.heap == nil {
		return nil
	}
	return v.heap.sortedBlocks()
}

// RestoreHeap reinstates a heap from a save file's MAll chunk (blocks in
// address order, non-overlapping) at the given start address. decodeCMem
// already resizes memory to the saved endmem, which covers every block, but
// memory is grown here too in case a MAll chunk ever arrives detached from
// its CMem (a hand-edited or foreign save file).
func (v *VM) RestoreHeap(start uint32, blocks []heapBlock) {
	if len(blocks) == 0 {
		v.heap = nil
		return
	}
	h := newHeap(start)
	h.blocks = append([]heapBlock(nil), blocks...)
	sort.Slice(h.blocks, func(i, j int) bool { return h.blocks[i].addr < h.blocks[j].addr })

	var need uint32 = start
	for _, b := range h.blocks {
		if end := b.addr + b.size; end > need {
			need = end
		}
	}
	if need > v.Mem.Size() {
		v.Mem.Resize(need)
	}

	v.heap = h
}
