package kfmt

import (
	"kidneyos/kernel"
	"kidneyos/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	// threadContextFn is set by the thread runtime during its own Init so
	// that a panic occurring after threading has started can report which
	// thread was running and what state it was in. It defaults to a stub
	// reporting no context, since Panic is also reachable during early
	// boot before Init has run.
	threadContextFn = func() string { return "" }

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// SetThreadContext installs the function Panic calls to obtain a diagnostic
// line describing the threading core's state (the running thread's id and
// lifecycle status) at the moment of a kernel panic.
func SetThreadContext(fn func() string) {
	threadContextFn = fn
}

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic never return. Panic also works as a redirection target
// for calls to panic() (resolved via runtime.gopanic)
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	printLine := Printf
	if ctx := threadContextFn(); ctx != "" && outputSink != nil {
		pw := &PrefixWriter{Sink: outputSink, Prefix: []byte("[" + ctx + "] ")}
		printLine = func(format string, args ...interface{}) { Fprintf(pw, format, args...) }
	}

	printLine("\n-----------------------------------\n")
	if err != nil {
		printLine("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	printLine("*** kernel panic: system halted ***")
	printLine("\n-----------------------------------\n")

	cpuHaltFn()
}

// panicString serves as a redirect target for runtime.throw
//go:redirect-from runtime.throw
func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}
