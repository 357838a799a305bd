package thread

// contextSwitch is a seam over switchImpl so tests can replace the actual
// register-swapping assembly with a fake that just records calls, the same
// function-variable mocking idiom used throughout this kernel for anything
// that ultimately bottoms out in hardware or hand-written assembly.
var contextSwitch = switchImpl

// switchImpl performs the context switch described by the Context Switcher
// component: it pushes the four callee-saved registers, stores the current
// stack pointer into from.stackPointer, loads the stack pointer from
// to.stackPointer, and pops the four registers back. Implemented in
// switch_386.s.
//
// Both from and to must remain valid for the duration of the call. The
// caller must have already set from's status to Ready, Blocked or Dying and
// to's status to Running, and must have interrupts disabled; switchImpl
// itself never touches the interrupt flag.
func switchImpl(from, to *TCR)
