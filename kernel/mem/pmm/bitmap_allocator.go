package pmm

import (
	"kidneyos/kernel"
	"kidneyos/kernel/mem"
	"math/bits"
	"unsafe"
)

// arenaPages sets the size of the simulated physical memory pool that backs
// every frame and stack allocation made by the kernel. 49152 pages is 192MiB:
// enough for 128 thread stacks (the identifier allocator's default cap, see
// kernel/thread) plus headroom for the Go heap that goruntime bootstraps on
// top of this allocator.
//
// A real port would derive this from the memory map handed to the kernel by
// the bootloader; this kernel has no bootloader integration in scope so the
// pool is a static array living in the kernel's BSS segment instead.
const arenaPages = 49152

// freeBitmapWords is the number of uint64 words needed to hold one bit per
// page in the arena, rounded up.
const freeBitmapWords = (arenaPages + 63) / 64

var arena [arenaPages * uint64(mem.PageSize)]byte

// FrameAllocator is the BitmapAllocator instance that backs every frame,
// stack and early heap-growth allocation performed by the kernel.
var FrameAllocator BitmapAllocator

// BitmapAllocator implements a physical frame allocator that tracks frame
// reservations across a single fixed-size memory pool using a bitmap. A
// cleared bit means the corresponding frame is free.
type BitmapAllocator struct {
	base uintptr

	// totalPages and freePages track allocator-wide accounting so callers
	// can cheaply check for exhaustion without scanning the bitmap.
	totalPages uint32
	freePages  uint32

	// freeBitmap holds one bit per frame in the pool. It is a fixed-size
	// array, not a slice: init runs before goruntime.Init has proven the Go
	// allocator safe to use (see kernel/kmain), so it must not make() a
	// backing array on the heap, the same reason arena above is static.
	freeBitmap [freeBitmapWords]uint64

	initialized bool
}

var (
	errOutOfMemory   = &kernel.Error{Module: "pmm", Message: "no free frames available"}
	errInvalidRegion = &kernel.Error{Module: "pmm", Message: "region size must be a multiple of the page size"}
)

func (alloc *BitmapAllocator) init() {
	// Frames are page numbers, so the pool starts at the first page boundary
	// inside the arena; if the arena itself is not page-aligned, its last
	// partial page is not used.
	arenaStart := uintptr(unsafe.Pointer(&arena[0]))
	alloc.base = (arenaStart + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
	alloc.totalPages = arenaPages
	if alloc.base != arenaStart {
		alloc.totalPages--
	}
	alloc.freePages = alloc.totalPages
	// alloc.freeBitmap is already all-zero (a cleared bit means free), so
	// no explicit initialization is needed.
	alloc.initialized = true
}

// Init prepares the frame allocator for use. It must be called exactly once,
// before any other kernel subsystem attempts to allocate memory.
func Init() *kernel.Error {
	FrameAllocator.init()
	return nil
}

// AllocFrame reserves and returns a single free physical frame.
func (alloc *BitmapAllocator) AllocFrame() (Frame, *kernel.Error) {
	if !alloc.initialized {
		alloc.init()
	}

	for wordIndex, word := range alloc.freeBitmap {
		if word == ^uint64(0) {
			continue
		}

		bitIndex := bits.TrailingZeros64(^word)
		pageIndex := uint32(wordIndex)*64 + uint32(bitIndex)
		if pageIndex >= alloc.totalPages {
			break
		}

		alloc.freeBitmap[wordIndex] |= 1 << uint(bitIndex)
		alloc.freePages--
		return alloc.frameAt(pageIndex), nil
	}

	return InvalidFrame, errOutOfMemory
}

// FreeFrame releases a previously allocated frame back to the pool.
func (alloc *BitmapAllocator) FreeFrame(f Frame) {
	pageIndex := alloc.pageIndex(f.Address())
	wordIndex, bitIndex := pageIndex/64, pageIndex%64
	alloc.freeBitmap[wordIndex] &^= 1 << uint(bitIndex)
	alloc.freePages++
}

// AllocRegion reserves a contiguous run of frames large enough to hold size
// bytes and returns the (identity-mapped) address of the first frame. It is
// used both to back thread stacks and to grow the Go heap during early boot.
func (alloc *BitmapAllocator) AllocRegion(size mem.Size) (uintptr, *kernel.Error) {
	if !alloc.initialized {
		alloc.init()
	}

	if size == 0 || size%mem.PageSize != 0 {
		return 0, errInvalidRegion
	}
	pageCount := uint32(size / mem.PageSize)
	if pageCount > alloc.freePages {
		return 0, errOutOfMemory
	}

	runStart, runLen := uint32(0), uint32(0)
	for pageIndex := uint32(0); pageIndex < alloc.totalPages; pageIndex++ {
		if alloc.bitSet(pageIndex) {
			runLen = 0
			continue
		}

		if runLen == 0 {
			runStart = pageIndex
		}
		runLen++

		if runLen == pageCount {
			for p := runStart; p < runStart+runLen; p++ {
				alloc.setBit(p)
			}
			alloc.freePages -= pageCount
			return alloc.frameAt(runStart).Address(), nil
		}
	}

	return 0, errOutOfMemory
}

// FreeRegion releases a region previously returned by AllocRegion.
func (alloc *BitmapAllocator) FreeRegion(base uintptr, size mem.Size) {
	pageCount := uint32(size / mem.PageSize)
	startIndex := alloc.pageIndex(base)
	for p := startIndex; p < startIndex+pageCount; p++ {
		alloc.clearBit(p)
	}
	alloc.freePages += pageCount
}

func (alloc *BitmapAllocator) frameAt(pageIndex uint32) Frame {
	return Frame((alloc.base + uintptr(pageIndex)*uintptr(mem.PageSize)) >> mem.PageShift)
}

func (alloc *BitmapAllocator) pageIndex(addr uintptr) uint32 {
	return uint32((addr - alloc.base) >> mem.PageShift)
}

func (alloc *BitmapAllocator) bitSet(pageIndex uint32) bool {
	wordIndex, bitIndex := pageIndex/64, pageIndex%64
	return alloc.freeBitmap[wordIndex]&(1<<uint(bitIndex)) != 0
}

func (alloc *BitmapAllocator) setBit(pageIndex uint32) {
	wordIndex, bitIndex := pageIndex/64, pageIndex%64
	alloc.freeBitmap[wordIndex] |= 1 << uint(bitIndex)
}

func (alloc *BitmapAllocator) clearBit(pageIndex uint32) {
	wordIndex, bitIndex := pageIndex/64, pageIndex%64
	alloc.freeBitmap[wordIndex] &^= 1 << uint(bitIndex)
}

// AllocStack reserves a contiguous, page-aligned region of the requested
// size for use as a thread's stack, zeroing it so a reused region never
// leaks a previous tenant's data into the new thread.
func AllocStack(size mem.Size) (uintptr, *kernel.Error) {
	base, err := FrameAllocator.AllocRegion(size)
	if err != nil {
		return 0, err
	}
	kernel.Memset(base, 0, uintptr(size))
	return base, nil
}

// FreeStack releases a stack region previously returned by AllocStack.
func FreeStack(base uintptr, size mem.Size) {
	FrameAllocator.FreeRegion(base, size)
}

// EarlyReserveRegion reserves address space for the Go allocator to grow the
// heap into. It shares its implementation (and its pool of backing frames)
// with AllocStack: both are contiguous-run reservations against the same
// physical arena.
func EarlyReserveRegion(size mem.Size) (uintptr, *kernel.Error) {
	return FrameAllocator.AllocRegion(size)
}
