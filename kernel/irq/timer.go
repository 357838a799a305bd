package irq

import (
	"sync/atomic"

	"kidneyos/kernel/cpu"
)

const (
	pitCommandPort = 0x43
	pitChannel0    = 0x40
)

// writePITCommand writes the PIT's mode/command register.
func writePITCommand(cmd uint8) {
	cpu.PortWriteByte(pitCommandPort, cmd)
}

// writePITReload loads channel's 16-bit countdown reload value, low byte
// first as the lo/hi access mode above requires.
func writePITReload(channel uint16, reload uint16) {
	port := pitChannel0 + channel
	cpu.PortWriteByte(port, uint8(reload&0xff))
	cpu.PortWriteByte(port, uint8(reload>>8))
}

// pitFrequency is the PIT's fixed input clock in Hz.
const pitFrequency = 3579545 / 3

// pitReload is the value we program the PIT to count down from before firing
// IRQ0. 0xffff is the largest reload the 16-bit counter allows, which
// minimizes how often the handler runs.
const pitReload = 0xffff

// TickIntervalNanos is the wall-clock time between consecutive timer
// interrupts at the reload value programmed by InstallTimer.
const TickIntervalNanos = uint64(pitReload) * 1_000_000_000 / pitFrequency

var ticks uint64

// Ticks returns the number of timer interrupts delivered since InstallTimer
// was called.
func Ticks() uint64 {
	return atomic.LoadUint64(&ticks)
}

// tickFn is invoked, with interrupts still disabled, on every timer
// interrupt after the PIC has been acknowledged. It is the thread runtime's
// hook for preemption: installing a tick function that calls into Yield with
// a Ready disposition is what turns cooperative scheduling into
// preemptive scheduling. It defaults to a no-op so the timer can be
// installed before a thread runtime exists at all.
var tickFn = func() {}

// SetTickFunc installs the function invoked on every timer interrupt.
func SetTickFunc(fn func()) {
	tickFn = fn
}

// InstallTimer programs the PIT to fire IRQ0 roughly every
// TickIntervalNanos and registers the handler that acknowledges the
// interrupt, advances the tick counter and invokes the installed tick
// function.
func InstallTimer() {
	initPIT()
	HandleInterrupt(TimerVector, func(InterruptNumber, *Regs, *Frame) {
		atomic.AddUint64(&ticks, 1)
		sendEOI(0)
		tickFn()
	})
}

// initPIT programs channel 0 of the 8253/8254 PIT in mode 2 (rate
// generator), lo/hi byte access, with reload value pitReload.
func initPIT() {
	const channel0LoHiRateGenerator = 0b00110100
	writePITCommand(channel0LoHiRateGenerator)
	writePITReload(0, pitReload)
}
