package thread

import ksync "kidneyos/kernel/sync"

// borrowState tracks whether a slot's TCR is currently lent out via borrow.
type borrowState uint8

const (
	notBorrowed borrowState = iota
	borrowed
)

// table is the sole owner of every live TCR. It hands out an id and stores
// the record on add, and only ever exposes a TCR again through the
// borrow/restore pair the context switcher uses, or by remove, which
// transfers ownership back out permanently.
//
// The table is a process-wide singleton (the runtime's rt.table) and is protected
// by a spinlock since it is mutated with interrupts disabled but still
// wants a well-defined contract if that discipline is ever violated.
type table struct {
	lock  ksync.Spinlock
	ids   *idAllocator
	slots [MaxThreads]*TCR
	state [MaxThreads]borrowState
}

func newTable() *table {
	return &table{ids: newIDAllocator()}
}

// add allocates an id, installs tcr under it (overwriting whatever id field
// was already set on tcr) and returns the new id. Returns false if the id
// space is exhausted.
func (tb *table) add(tcr *TCR) (ID, bool) {
	tb.lock.Acquire()
	defer tb.lock.Release()

	id, ok := tb.ids.allocate()
	if !ok {
		return 0, false
	}

	tcr.id = id
	tb.slots[id] = tcr
	tb.state[id] = notBorrowed
	return id, true
}

// remove takes back permanent ownership of id's TCR, releasing the id.
// Panics if id is currently borrowed or was never added, both contract
// violations rather than runtime conditions.
func (tb *table) remove(id ID) *TCR {
	tb.lock.Acquire()
	defer tb.lock.Release()

	if tb.state[id] == borrowed {
		panic("thread: remove of a borrowed id")
	}
	tcr := tb.slots[id]
	if tcr == nil {
		panic("thread: remove of an unknown id")
	}

	tb.slots[id] = nil
	tb.ids.release(id)
	return tcr
}

// borrow lends id's TCR to the caller. The id remains reserved and a second
// borrow before restore (or releaseReserved) panics.
func (tb *table) borrow(id ID) *TCR {
	tb.lock.Acquire()
	defer tb.lock.Release()

	if tb.state[id] == borrowed {
		panic("thread: re-entrant borrow of id " + itoa(int(id)))
	}
	tcr := tb.slots[id]
	if tcr == nil {
		panic("thread: borrow of an unknown id")
	}

	tb.state[id] = borrowed
	return tcr
}

// restore ends a borrow, making tcr visible to future borrows and removes
// again. tcr must be the (possibly mutated) record obtained from borrow.
func (tb *table) restore(tcr *TCR) {
	tb.lock.Acquire()
	defer tb.lock.Release()

	if tb.state[tcr.id] != borrowed {
		panic("thread: restore of an id that was not borrowed")
	}
	tb.slots[tcr.id] = tcr
	tb.state[tcr.id] = notBorrowed
}

// releaseReserved frees an id whose TCR was borrowed out and will not be
// restored, used only when reaping a thread out of the switcher envelope.
func (tb *table) releaseReserved(id ID) {
	tb.lock.Acquire()
	defer tb.lock.Release()

	if tb.state[id] != borrowed {
		panic("thread: releaseReserved of an id that was not borrowed")
	}
	tb.slots[id] = nil
	tb.state[id] = notBorrowed
	tb.ids.release(id)
}

// lookup returns id's TCR without taking a borrow. The runtime's wake, exit,
// kill and join paths use it, with interrupts disabled, to read and update
// a TCR that is not being switched; it must never be used to obtain a pointer
// that outlives the caller's critical section.
func (tb *table) lookup(id ID) *TCR {
	tb.lock.Acquire()
	defer tb.lock.Release()

	return tb.slots[id]
}

// itoa avoids pulling in strconv (and its dependency on the not-yet-verified
// heap in early boot paths) for a handful of panic messages.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
