package thread

import (
	"kidneyos/kernel"
	"kidneyos/kernel/cpu"
	"kidneyos/kernel/kfmt"
	"kidneyos/kernel/mem"
	"kidneyos/kernel/mem/pmm"
	ksync "kidneyos/kernel/sync"
)

// idlePriority is the priority stamped on the idle thread's TCR. FIFO
// ignores it; it exists purely for a scheduler that does interpret priority
// to see the idle thread as the least eligible.
const idlePriority = -1

var (
	errNoFreeIDs  = &kernel.Error{Module: "thread", Message: "no free thread ids"}
	errUnknownID  = &kernel.Error{Module: "thread", Message: "unknown thread id"}
	errNotBlocked = &kernel.Error{Module: "thread", Message: "target thread is not blocked"}
)

// runtime holds the running id and orchestrates yield, block, wake, exit,
// kill and join. It is the only component that mutates the globally visible
// running-thread pointer.
type runtime struct {
	table     *table
	scheduler Scheduler

	// current is the TCR of the presently running thread. It is set by
	// whichever yield call switches into it, immediately before the
	// switch, so it is always correct by the time the switch returns.
	current *TCR

	// handoff is the TCR of the thread that most recently switched away
	// from itself, set immediately before every call to contextSwitch.
	// Whichever thread resumes next reads it in afterSwitch to decide
	// whether to reap it.
	handoff *TCR

	idleID ID
}

var rt *runtime

// Init sets up the Thread Table, the default FIFO scheduler, wraps the
// calling (bootstrap) execution into the kernel thread, and creates the
// idle thread. After Init returns, Create/Yield/Block/Wake/Exit/Kill/Join
// are safe to call.
func Init() *kernel.Error {
	rt = &runtime{
		table:     newTable(),
		scheduler: NewFIFOScheduler(),
	}

	// The kernel thread's stack is the one we are already running on; it
	// is captured lazily the first time some other thread switches away
	// from it, so no stack fields need to be filled in here.
	kernelTCR := &TCR{status: Running, ownsStack: false}
	if _, ok := rt.table.add(kernelTCR); !ok {
		return errNoFreeIDs
	}
	rt.current = kernelTCR

	idleTCR, kerr := createTCR(idleLoop, nil, idlePriority)
	if kerr != nil {
		return kerr
	}
	idleID, ok := rt.table.add(idleTCR)
	if !ok {
		pmm.FreeStack(idleTCR.stackBase, mem.Size(idleTCR.stackSize))
		return errNoFreeIDs
	}
	rt.idleID = idleID
	// Deliberately never pushed to rt.scheduler: yield falls back to it
	// directly whenever the scheduler is empty, so it never competes for
	// or occupies a slot in the ready set.

	ksync.SetYieldFunc(Yield)
	kfmt.SetThreadContext(panicContext)

	return nil
}

// panicContext reports the running thread's id and lifecycle status for
// kfmt.Panic's diagnostic output. Installed via kfmt.SetThreadContext.
func panicContext() string {
	cur := rt.current
	return "thread " + cur.id.String() + " (" + cur.status.String() + ")"
}

// idleLoop is the idle thread's entry function: the ready-set floor that
// guarantees yield's pop never fails.
func idleLoop(_ interface{}) int {
	for {
		cpu.EnableInterrupts()
		Yield()
	}
}

// createTCR allocates a stack and builds the initial frames for an ordinary
// thread, but does not install it in the Table or scheduler; callers decide
// that (Create pushes to the scheduler, Init's idle bootstrap does not).
func createTCR(entry ThreadFunction, arg interface{}, priority int) (*TCR, *kernel.Error) {
	stackBase, kerr := pmm.AllocStack(mem.Size(ordinaryStackSize))
	if kerr != nil {
		return nil, kerr
	}

	rec := &startRecord{entry: entry, arg: arg}
	pinStart(rec)

	sp := buildStack(stackBase, ordinaryStackSize, rec)

	return &TCR{
		stackPointer: sp,
		stackBase:    stackBase,
		stackSize:    ordinaryStackSize,
		status:       Ready,
		priority:     priority,
		ownsStack:    true,
	}, nil
}

// Create allocates a stack, builds the initial frames, installs the new
// thread's TCR in the Table and pushes it onto the scheduler's ready set.
func Create(entry ThreadFunction, arg interface{}, priority int) (ID, *kernel.Error) {
	tcr, kerr := createTCR(entry, arg, priority)
	if kerr != nil {
		return 0, kerr
	}

	id, ok := rt.table.add(tcr)
	if !ok {
		pmm.FreeStack(tcr.stackBase, mem.Size(tcr.stackSize))
		return 0, errNoFreeIDs
	}

	rt.scheduler.Push(id)
	return id, nil
}

// RunningID returns the id of the currently executing thread. Observability
// only.
func RunningID() ID {
	return rt.current.id
}

// Yield gives up the remainder of the current thread's timeslice while
// remaining runnable. It is the entry point the timer tick's handler calls
// at end-of-slice, and is also safe to call cooperatively.
func Yield() {
	yield(Ready)
}

// Block suspends the calling thread until a later Wake(RunningID()).
func Block() {
	yield(Blocked)
}

// Wake transitions a Blocked thread back to Ready and pushes it onto the
// scheduler. Returns an error, and makes no state change, if id is unknown
// or not currently Blocked.
func Wake(id ID) *kernel.Error {
	cpu.DisableInterrupts()
	defer cpu.EnableInterrupts()

	tcr := rt.table.lookup(id)
	if tcr == nil || tcr.status != Blocked {
		return errNotBlocked
	}

	wakeLocked(id, tcr)
	return nil
}

// wakeLocked assumes interrupts are already disabled and tcr is id's TCR.
func wakeLocked(id ID, tcr *TCR) {
	tcr.status = Ready
	rt.scheduler.Push(id)
}

// Exit marks the calling thread Dying, records code as its exit status,
// wakes any joiners, and yields; it never returns.
func Exit(code int) {
	cur := rt.current
	cur.exitStatus = code
	cur.hasExited = true

	// Interrupts stay disabled from here straight through the call into
	// yield (which itself disables them again, harmlessly, before the
	// switch): if a timer tick preempted between clearing cur.waiters and
	// entering yield, a Join racing in that window would append itself to
	// a waiters list that already got its wakeups and never be woken.
	cpu.DisableInterrupts()
	for _, w := range cur.waiters {
		if waiter := rt.table.lookup(w); waiter != nil {
			waiter.joinResult = code
			wakeLocked(w, waiter)
		}
	}
	cur.waiters = nil

	yield(Dying)
	panic("thread: Exit returned")
}

// Kill forcibly transitions a Ready or Blocked thread to Dying, removes it
// from the scheduler and wakes its joiners, then reaps it immediately: since
// a killed thread is by construction not running, nothing can be using its
// stack. Returns an error if id is unknown, and panics (a contract
// violation, not a runtime condition) if asked to kill the running thread or
// the idle thread.
func Kill(id ID) *kernel.Error {
	cpu.DisableInterrupts()
	defer cpu.EnableInterrupts()

	if id == rt.idleID {
		panic("thread: the idle thread cannot be killed")
	}

	tcr := rt.table.lookup(id)
	if tcr == nil {
		return errUnknownID
	}
	if tcr.status == Running {
		panic("thread: cannot kill the running thread; call Exit instead")
	}

	rt.scheduler.Remove(id)
	tcr.status = Dying
	tcr.exitStatus = -1

	for _, w := range tcr.waiters {
		if waiter := rt.table.lookup(w); waiter != nil {
			waiter.joinResult = tcr.exitStatus
			wakeLocked(w, waiter)
		}
	}
	tcr.waiters = nil

	removed := rt.table.remove(id)
	if removed.ownsStack {
		pmm.FreeStack(removed.stackBase, mem.Size(removed.stackSize))
	}
	return nil
}

// Join blocks until the thread identified by id has exited, then returns
// the code it exited with. Returns an absent-operand error, with no state
// change, if id names a thread that was never created or has already been
// reaped.
func Join(id ID) (int, *kernel.Error) {
	cpu.DisableInterrupts()

	tcr := rt.table.lookup(id)
	if tcr == nil {
		cpu.EnableInterrupts()
		return 0, errUnknownID
	}

	if tcr.status == Dying {
		code := tcr.exitStatus
		cpu.EnableInterrupts()
		return code, nil
	}

	tcr.waiters = append(tcr.waiters, rt.current.id)
	cpu.EnableInterrupts()

	Block()

	return rt.current.joinResult, nil
}

// yield implements the composite operation described by the Thread Runtime:
// transition the current thread to next, hand off to whichever thread the
// scheduler (or the idle fallback) names next, and resume here once this
// thread is chosen again.
func yield(next Status) {
	from := rt.current
	from.status = next
	if next == Ready && from.id != rt.idleID {
		rt.scheduler.Push(from.id)
	}

	cpu.DisableInterrupts()

	nextID, ok := rt.scheduler.Pop()
	if !ok {
		nextID = rt.idleID
	}

	// The caller is the only thread ready to run: keep running it instead
	// of switching it onto its own stack.
	if nextID == from.id {
		from.status = Running
		cpu.EnableInterrupts()
		return
	}

	toTCR := rt.table.borrow(nextID)
	if toTCR.status != Ready {
		panic("thread: switch to a thread that is not Ready")
	}
	fromTCR := rt.table.borrow(from.id)

	toTCR.status = Running
	rt.handoff = fromTCR
	rt.current = toTCR

	contextSwitch(fromTCR, toTCR)

	// Execution resumes here only once some other thread's yield (or, for
	// a freshly created thread, prepareThread) switches back into this
	// one; rt.current and rt.handoff were set correctly by whichever
	// thread performed that switch.
	afterSwitch()
}

// afterSwitch restores the borrows taken by yield around contextSwitch and,
// if the thread just switched away from was Dying, reaps it. It runs on the
// resuming side of every switch, whether that side is a thread resuming
// inside yield or a freshly created thread's first entry via prepareThread.
//
//go:nosplit
func afterSwitch() {
	outgoing := rt.handoff
	if outgoing.status == Dying {
		reap(outgoing)
	} else {
		rt.table.restore(outgoing)
	}

	rt.table.restore(rt.current)
	cpu.EnableInterrupts()
}

// reap releases a Dying thread's id and, unless its stack was borrowed
// rather than owned (the kernel thread), frees its stack region. Called
// only from afterSwitch, on a different thread than the one being reaped.
func reap(tcr *TCR) {
	rt.table.releaseReserved(tcr.id)
	if tcr.ownsStack {
		pmm.FreeStack(tcr.stackBase, mem.Size(tcr.stackSize))
	}
}
