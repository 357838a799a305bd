// Package kmain sequences the boot-time initialization of every subsystem
// the threading core depends on, then starts the first thread. It is the
// only Go symbol the rt0 startup assembly needs to know about.
package kmain

import (
	"kidneyos/kernel"
	"kidneyos/kernel/driver/serial"
	"kidneyos/kernel/goruntime"
	"kidneyos/kernel/irq"
	"kidneyos/kernel/kfmt"
	"kidneyos/kernel/mem/pmm"
	"kidneyos/kernel/thread"
)

// Kmain is invoked by the rt0 assembly once it has set up a stack large
// enough for Go code to run on. It brings up, in the order the rest of the
// kernel depends on: the physical memory arena, the Go runtime's own
// bootstrap hooks, console output, interrupt handling and the timer, and
// finally the threading core itself, before creating and yielding into the
// first real thread.
//
// Kmain is not expected to return; if it does, the rt0 code halts the CPU.
//
//go:noinline
func Kmain(initial thread.ThreadFunction, initialArg interface{}) {
	var err *kernel.Error
	if err = pmm.Init(); err != nil {
		kfmt.Panic(err)
	} else if err = goruntime.Init(); err != nil {
		kfmt.Panic(err)
	}

	serial.Default.Init()
	kfmt.SetOutputSink(&serial.Default)

	irq.Init()
	irq.InstallTimer()

	if err = thread.Init(); err != nil {
		kfmt.Panic(err)
	}
	irq.SetTickFunc(thread.Yield)

	if _, err = thread.Create(initial, initialArg, 0); err != nil {
		kfmt.Panic(err)
	}

	for {
		thread.Yield()
	}
}
