package thread

import "testing"

func TestIDAllocatorAllocatesLowestFree(t *testing.T) {
	a := newIDAllocator()

	first, ok := a.allocate()
	if !ok || first != 0 {
		t.Fatalf("expected first allocation to be id 0, got %d ok=%t", first, ok)
	}

	second, ok := a.allocate()
	if !ok || second != 1 {
		t.Fatalf("expected second allocation to be id 1, got %d ok=%t", second, ok)
	}

	a.release(first)

	third, ok := a.allocate()
	if !ok || third != 0 {
		t.Fatalf("expected released id 0 to be reused, got %d ok=%t", third, ok)
	}
}

func TestIDAllocatorExhaustion(t *testing.T) {
	a := newIDAllocator()

	for i := 0; i < MaxThreads; i++ {
		if _, ok := a.allocate(); !ok {
			t.Fatalf("expected allocation %d to succeed", i)
		}
	}

	if _, ok := a.allocate(); ok {
		t.Fatal("expected allocator to be exhausted after MaxThreads allocations")
	}
}

func TestIDString(t *testing.T) {
	if got, want := ID(42).String(), "42"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got, want := ID(0).String(), "0"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestIDAllocatorReleaseUnallocatedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected release of an unallocated id to panic")
		}
	}()

	a := newIDAllocator()
	a.release(5)
}
