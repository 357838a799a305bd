// Package serial drives the 16550-compatible UART at the standard COM1
// address so kfmt.Printf output (and the initial panic message) reaches the
// outside world before any TTY or video driver exists.
package serial

import "kidneyos/kernel/cpu"

const (
	ioBase = 0x3f8

	rbr = ioBase     // receiver buffer register, read-only
	thr = ioBase     // transmitter holding register, write-only
	ier = ioBase + 1 // interrupt enable register
	fcr = ioBase + 2 // FIFO control register, write-only
	lcr = ioBase + 3 // line control register
	mcr = ioBase + 4 // modem control register
	lsr = ioBase + 5 // line status register, read-only

	lsrTransmitEmpty = 0x20
)

var (
	portWriteByte = cpu.PortWriteByte
	portReadByte  = cpu.PortReadByte
)

// Port is an io.Writer over the COM1 UART. The zero value is not ready for
// use; call Init once before the first Write.
type Port struct {
	initialized bool
}

// Default is the COM1 port kfmt.SetOutputSink is wired to during boot.
var Default Port

// Init programs the UART for 38400 baud, 8N1, enables its FIFOs, and
// verifies the port is wired up correctly by looping a byte back to itself
// over the internal loopback path. Panics if the loopback byte does not
// come back unchanged, since that means output written afterward would
// silently go nowhere.
func (p *Port) Init() {
	portWriteByte(ier, 0x00)
	portWriteByte(lcr, 0x80) // enable the divisor latch
	portWriteByte(thr, 0x03) // divisor low byte: 38400 baud
	portWriteByte(ier, 0x00) // divisor high byte
	portWriteByte(lcr, 0x03) // 8 bits, no parity, one stop bit; latch off
	portWriteByte(fcr, 0xc7) // enable and clear both FIFOs, 14-byte trigger
	portWriteByte(mcr, 0x0b)

	portWriteByte(mcr, 0x1e) // enable loopback for the self-test below
	const probe = 0xae
	portWriteByte(thr, probe)
	if portReadByte(rbr) != probe {
		panic("serial: loopback self-test failed")
	}
	portWriteByte(mcr, 0x0f) // disable loopback

	p.initialized = true
}

// Write implements io.Writer, blocking on each byte until the transmitter
// holding register is empty.
func (p *Port) Write(data []byte) (int, error) {
	if !p.initialized {
		p.Init()
	}

	for _, b := range data {
		for portReadByte(lsr)&lsrTransmitEmpty == 0 {
		}
		portWriteByte(thr, b)
	}
	return len(data), nil
}
