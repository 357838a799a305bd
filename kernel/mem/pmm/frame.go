// Package pmm implements physical memory management for the kernel. Since
// the thread core only needs virtual memory in the form of thread stacks and
// the Go heap used by goruntime, this package deliberately skips page-table
// management: the kernel is assumed to run inside a single identity-mapped
// address space established once by the bootloader, so a physical address
// and its corresponding virtual address are always the same number.
package pmm

import "kidneyos/kernel/mem"

// Frame describes a physical memory page index.
type Frame uintptr

// InvalidFrame is returned by page allocators when they fail to reserve the
// requested frame. Built from ^uintptr(0) rather than a fixed-width
// constant since uintptr is 32 bits on this kernel's 386 target.
const InvalidFrame = Frame(^uintptr(0))

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the (identity-mapped) address of the memory pointed to by
// this frame.
func (f Frame) Address() uintptr {
	return uintptr(f << mem.PageShift)
}
