package irq

import "kidneyos/kernel/cpu"

// The two 8259 Programmable Interrupt Controllers default to delivering IRQs
// on vectors 0x08-0x0f and 0x70-0x77, which collide with the CPU's own
// exception vectors. picRemap moves them out of the way before interrupts
// are ever enabled.
const (
	pic1Cmd  = 0x20
	pic1Data = 0x21
	pic2Cmd  = 0xa0
	pic2Data = 0xa1

	icw1Init = 0x10
	icw1ICW4 = 0x01
	icw4_8086 = 0x01

	picEOI = 0x20

	pic1Offset = uint8(irqBase)
	pic2Offset = pic1Offset + 8
)

// picRemap reprograms both PICs so IRQ0-7 arrive on vectors pic1Offset..+7
// and IRQ8-15 on pic2Offset..+7, then unmasks every line.
func picRemap() {
	cpu.PortWriteByte(pic1Cmd, icw1Init|icw1ICW4)
	ioWait()
	cpu.PortWriteByte(pic2Cmd, icw1Init|icw1ICW4)
	ioWait()

	cpu.PortWriteByte(pic1Data, pic1Offset)
	ioWait()
	cpu.PortWriteByte(pic2Data, pic2Offset)
	ioWait()

	// tell PIC1 it has a slave on IRQ2, and tell PIC2 its cascade identity
	cpu.PortWriteByte(pic1Data, 4)
	ioWait()
	cpu.PortWriteByte(pic2Data, 2)
	ioWait()

	cpu.PortWriteByte(pic1Data, icw4_8086)
	ioWait()
	cpu.PortWriteByte(pic2Data, icw4_8086)
	ioWait()

	cpu.PortWriteByte(pic1Data, 0)
	cpu.PortWriteByte(pic2Data, 0)
}

// maskIRQ prevents irq from reaching the CPU.
func maskIRQ(irq uint8) {
	port := uint16(pic1Data)
	if irq >= 8 {
		port = pic2Data
		irq -= 8
	}
	mask := cpu.PortReadByte(port) | (1 << irq)
	cpu.PortWriteByte(port, mask)
}

// unmaskIRQ allows irq to reach the CPU.
func unmaskIRQ(irq uint8) {
	port := uint16(pic1Data)
	if irq >= 8 {
		port = pic2Data
		irq -= 8
	}
	mask := cpu.PortReadByte(port) &^ (1 << irq)
	cpu.PortWriteByte(port, mask)
}

// sendEOI acknowledges the interrupt so the PIC will deliver further ones.
func sendEOI(irq uint8) {
	if irq >= 8 {
		cpu.PortWriteByte(pic2Cmd, picEOI)
	}
	cpu.PortWriteByte(pic1Cmd, picEOI)
}

// ioWait burns a handful of cycles writing to an unused port, giving the PIC
// time to process the previous command on real hardware.
func ioWait() {
	cpu.PortWriteByte(0x80, 0)
}
