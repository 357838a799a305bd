// Package cpu exposes the small set of privileged, architecture-specific
// primitives that the kernel needs and that Go cannot express directly:
// toggling the interrupt flag, halting the processor and talking to I/O
// ports. Each declaration below is implemented in cpu_386.s.
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// SaveFlagsAndDisable disables interrupt handling and returns the previous
// value of the flags register so it can later be restored via RestoreFlags.
func SaveFlagsAndDisable() uint32

// RestoreFlags restores the flags register to a value previously obtained
// from SaveFlagsAndDisable. If interrupts were enabled at that point, this
// re-enables them.
func RestoreFlags(flags uint32)

// Halt stops instruction execution until the next interrupt arrives.
func Halt()

// PortWriteByte writes a uint8 value to the requested I/O port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested I/O port.
func PortReadByte(port uint16) uint8
