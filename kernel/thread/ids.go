// Package thread implements KidneyOS's threading core: thread control
// records, the table that owns them, the stack layout a fresh thread resumes
// into, the architecture-specific context switcher, a pluggable scheduling
// policy, and the runtime that ties them together into yield/block/wake/
// exit/kill/join.
package thread

import "math/bits"

// MaxThreads bounds the number of simultaneously live threads. The id space
// is dense (ids in [0, MaxThreads)), which lets both the allocator and the
// Table use flat arrays instead of maps.
const MaxThreads = 128

// ID identifies a thread for its entire lifetime, and may be reused once the
// thread that held it has been reaped.
type ID uint16

// String renders id in decimal, for panic messages and kfmt's %v verb.
func (id ID) String() string {
	return itoa(int(id))
}

// idAllocator hands out the lowest free ID in [0, MaxThreads) using a
// word-level bitmap scan, and takes them back on release.
type idAllocator struct {
	free [(MaxThreads + 63) / 64]uint64
}

func newIDAllocator() *idAllocator {
	a := &idAllocator{}
	for i := range a.free {
		a.free[i] = ^uint64(0)
	}
	// clear any bits beyond MaxThreads in the last word so allocate never
	// hands out an out-of-range id.
	if rem := MaxThreads % 64; rem != 0 {
		a.free[len(a.free)-1] = (uint64(1) << uint(rem)) - 1
	}
	return a
}

// allocate returns the lowest free id and marks it reserved, or false if the
// allocator is exhausted.
func (a *idAllocator) allocate() (ID, bool) {
	for word := range a.free {
		if a.free[word] == 0 {
			continue
		}

		bit := bits.TrailingZeros64(a.free[word])
		a.free[word] &^= uint64(1) << uint(bit)
		return ID(word*64 + bit), true
	}
	return 0, false
}

// release returns id to the free pool. Releasing an id that was not
// currently allocated is a contract violation and panics, matching the
// core's fatal-assertion policy for bugs rather than runtime conditions.
func (a *idAllocator) release(id ID) {
	word, bit := int(id)/64, uint(int(id)%64)
	if a.free[word]&(uint64(1)<<bit) != 0 {
		panic("thread: release of an id that was not allocated")
	}
	a.free[word] |= uint64(1) << bit
}
