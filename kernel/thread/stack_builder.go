package thread

import (
	"reflect"
	"unsafe"
)

// ThreadFunction is a thread's entry point. Its return value becomes the
// thread's exit code, delivered to whoever calls Join on it.
type ThreadFunction func(arg interface{}) int

// startRecord carries the entry function and argument for a freshly created
// thread across the context switch that first resumes it. A pointer to one
// is embedded, as a plain machine word, in the Run frame the Stack Builder
// writes onto the new thread's raw stack; the raw stack is not scanned by
// the Go garbage collector, so the runtime additionally pins the record in
// pendingSet (see pending.go) until goRunThread has consumed it.
type startRecord struct {
	entry ThreadFunction
	arg   interface{}
}

// switcherFrame is the lowest (closest to the stack pointer) frame of a
// freshly built thread's stack image. Field order matters: it mirrors,
// low address to high, exactly what switch_386.s pushes before storing esp
// and pops after loading it, so that resuming a suspended real thread and
// resuming a freshly built one are indistinguishable to the switcher.
type switcherFrame struct {
	edi, esi, ebx, ebp uint32
	eip                uintptr // address of prepareThread
}

// prepareFrame sits directly above switcherFrame. prepareThread's own RET
// pops this word, tail-calling into runThread.
type prepareFrame struct {
	eip uintptr // address of runThread
}

// runFrame sits at the top of the image. arg is the pointer runThread reads
// once it is reached; retAddr is zero so that an accidental return out of
// the entry function's frame traps immediately instead of running off into
// unrelated memory.
type runFrame struct {
	retAddr uintptr
	arg     uintptr
}

// buildStack lays out a fresh thread's initial stack image inside
// [stackBase, stackBase+stackSize) and returns the saved stack pointer to
// store in the TCR: the address the Context Switcher should resume from the
// first time this thread is picked.
func buildStack(stackBase, stackSize uintptr, rec *startRecord) uintptr {
	cursor := stackBase + stackSize

	cursor -= unsafe.Sizeof(runFrame{})
	*(*runFrame)(unsafe.Pointer(cursor)) = runFrame{
		retAddr: 0,
		arg:     uintptr(unsafe.Pointer(rec)),
	}

	cursor -= unsafe.Sizeof(prepareFrame{})
	*(*prepareFrame)(unsafe.Pointer(cursor)) = prepareFrame{
		eip: funcPC(runThread),
	}

	cursor -= unsafe.Sizeof(switcherFrame{})
	*(*switcherFrame)(unsafe.Pointer(cursor)) = switcherFrame{
		eip: funcPC(prepareThread),
	}

	return cursor
}

// funcPC returns the entry address of a compiled function. Used only to
// embed the address of the assembly trampolines into a stack image; the
// value never needs to be called through Go, only reached by RET.
func funcPC(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// prepareThread and runThread are implemented in switch_386.s. prepareThread
// re-enables interrupts and reconciles the runtime's running id, then tail
// calls into runThread by RET, which reads the startRecord left on the Run
// frame and dispatches into goRunThread.
func prepareThread()
func runThread()

// exitFn is a seam over Exit so tests can observe the exit code goRunThread
// produces without actually tearing down the calling goroutine.
var exitFn = Exit

// goRunThread is called from runThread once it has recovered the pointer to
// the startRecord the Stack Builder embedded in the Run frame. It invokes
// the thread's entry function and feeds the return value into the exit
// path; it never returns.
//
//go:nosplit
func goRunThread(recPtr uintptr) {
	rec := (*startRecord)(unsafe.Pointer(recPtr))
	entry, arg := rec.entry, rec.arg
	clearPendingStart(recPtr)

	code := entry(arg)
	exitFn(code)
	panic("thread: exitFn returned")
}
