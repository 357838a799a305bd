package thread

// Scheduler is the ready-queue policy boundary the Runtime depends on. It
// owns no TCRs, only an unordered multiset of ids; the Runtime coordinates
// with the Table so that every id handed to a Scheduler exists there until
// Pop returns it.
type Scheduler interface {
	// Push enqueues a ready id.
	Push(id ID)
	// Pop chooses the next ready id and removes it. The second return
	// value is false if the ready set is empty.
	Pop() (ID, bool)
	// Remove forcibly drops id from the ready set, used on kill/exit for
	// a thread that happens to be Ready. A no-op if id is not present.
	Remove(id ID)
}
