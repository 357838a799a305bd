package pmm

import (
	"kidneyos/kernel/mem"
	"reflect"
	"testing"
	"unsafe"
)

func TestAllocFreeFrame(t *testing.T) {
	var alloc BitmapAllocator
	alloc.init()

	f1, err := alloc.AllocFrame()
	if err != nil {
		t.Fatal(err)
	}
	f2, err := alloc.AllocFrame()
	if err != nil {
		t.Fatal(err)
	}
	if f1 == f2 {
		t.Fatalf("expected distinct frames, got %d twice", f1)
	}

	alloc.FreeFrame(f1)
	f3, err := alloc.AllocFrame()
	if err != nil {
		t.Fatal(err)
	}
	if f3 != f1 {
		t.Fatalf("expected freed frame %d to be reused; got %d", f1, f3)
	}
}

func TestAllocRegionContiguous(t *testing.T) {
	var alloc BitmapAllocator
	alloc.init()

	size := 16 * mem.PageSize
	base, err := alloc.AllocRegion(size)
	if err != nil {
		t.Fatal(err)
	}

	startIndex := alloc.pageIndex(base)
	for p := startIndex; p < startIndex+16; p++ {
		if !alloc.bitSet(p) {
			t.Fatalf("expected page %d to be marked reserved", p)
		}
	}

	alloc.FreeRegion(base, size)
	for p := startIndex; p < startIndex+16; p++ {
		if alloc.bitSet(p) {
			t.Fatalf("expected page %d to be released", p)
		}
	}
}

func TestAllocRegionRejectsUnalignedSize(t *testing.T) {
	var alloc BitmapAllocator
	alloc.init()

	if _, err := alloc.AllocRegion(mem.PageSize - 1); err == nil {
		t.Fatal("expected an error for a non-page-multiple size")
	}
}

func TestAllocStackZeroesReusedMemory(t *testing.T) {
	FrameAllocator = BitmapAllocator{}
	size := 4 * mem.PageSize

	base, err := AllocStack(size)
	if err != nil {
		t.Fatal(err)
	}
	region := regionBytes(base, size)
	for i := range region {
		region[i] = 0xab
	}
	FreeStack(base, size)

	base2, err := AllocStack(size)
	if err != nil {
		t.Fatal(err)
	}
	if base2 != base {
		t.Fatalf("expected the freed run to be reused; got a different base address")
	}

	for i, b := range regionBytes(base2, size) {
		if b != 0 {
			t.Fatalf("expected byte %d of the reused stack to be zeroed; got %#x", i, b)
		}
	}
}

func regionBytes(base uintptr, size mem.Size) []byte {
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Data: base,
		Len:  int(size),
		Cap:  int(size),
	}))
}

func TestAllocRegionExhaustion(t *testing.T) {
	var alloc BitmapAllocator
	alloc.init()
	alloc.totalPages = 4
	alloc.freePages = 4

	if _, err := alloc.AllocRegion(3 * mem.PageSize); err != nil {
		t.Fatal(err)
	}
	if _, err := alloc.AllocRegion(2 * mem.PageSize); err == nil {
		t.Fatal("expected allocation to fail once the pool is exhausted")
	}
}
