package thread

import (
	"unsafe"

	ksync "kidneyos/kernel/sync"
)

// pendingSet pins startRecords that are reachable only through a raw
// uintptr embedded in a freshly built thread's stack image, which the
// garbage collector does not scan (kernel stacks come from the pmm arena,
// not from Go's own stack allocator). A record is pinned from the moment
// createTCR builds the stack until goRunThread has read it back out on the
// new thread's first run.
var (
	pendingLock ksync.Spinlock
	pendingSet  []*startRecord
)

// pinStart keeps rec reachable to the garbage collector until
// clearPendingStart(rec) is called.
func pinStart(rec *startRecord) {
	pendingLock.Acquire()
	pendingSet = append(pendingSet, rec)
	pendingLock.Release()
}

// clearPendingStart unpins the startRecord at recPtr. It is a no-op if
// recPtr is not currently pinned, which should not happen in practice but
// is harmless if it does.
func clearPendingStart(recPtr uintptr) {
	pendingLock.Acquire()
	defer pendingLock.Release()

	for i, rec := range pendingSet {
		if uintptr(unsafe.Pointer(rec)) != recPtr {
			continue
		}
		pendingSet[i] = pendingSet[len(pendingSet)-1]
		pendingSet[len(pendingSet)-1] = nil
		pendingSet = pendingSet[:len(pendingSet)-1]
		return
	}
}
