package hart

import "rvcore/hart/mmio"

// Hart is a single RISC-V hart's privileged-architecture state: the CSR
// file, the trap/privilege state machine, the page-table walker cache,
// physical memory, the reservation set, and the small set of MMIO devices
// wired at fixed physical addresses. It is not safe for concurrent use
// from multiple goroutines: a Hart models one sequential thread of
// execution and is driven synchronously by a single external executor.
type Hart struct {
	XLEN int

	PC, NextPC  uint64
	ICount      uint64
	Priv        Privilege
	TrapState   uint64
	PendingTrap uint64
	FaultData   uint64

	csr [4096]uint64

	mem *sparseMemory
	ptw map[uint64]ptwEntry

	reservations map[uint64]byte

	ToHost, FromHost uint64
	toHostWrCnt      int
	hostOutput       []byte
	Stopped          bool
	ExitCode         uint64

	CLINT  *mmio.CLINT
	UART   *mmio.UART
	HFROSC *mmio.HFROSC
}

// New constructs a Hart for the given register width and reset vector.
// XLEN must be 32 or 64.
func New(xlen int, resetVector uint64) *Hart {
	h := &Hart{
		XLEN:         xlen,
		PC:           resetVector,
		NextPC:       resetVector,
		Priv:         Machine,
		mem:          newSparseMemory(),
		ptw:          make(map[uint64]ptwEntry),
		reservations: make(map[uint64]byte),
		ToHost:       0xF0001000,
		FromHost:     0xF0001040,
		CLINT:        &mmio.CLINT{},
		UART:         mmio.NewUART(),
		HFROSC:       &mmio.HFROSC{},
	}
	h.csr[csrMisa] = h.misa()
	return h
}

func (h *Hart) xlenMask() uint64 {
	if h.XLEN == 32 {
		return 0xFFFFFFFF
	}
	return 0xFFFFFFFFFFFFFFFF
}

// misa returns the fixed ISA-identification constant for this hart.
func (h *Hart) misa() uint64 {
	const extensions = (1 << 0) | (1 << 8) | (1 << 12) | (1 << 18) | (1 << 20) // A I M S U
	if h.XLEN == 32 {
		return uint64(1)<<30 | extensions
	}
	return uint64(2)<<62 | extensions
}

// ReadMem fills out with len(out) bytes read from the physical address
// space, without consulting the page-table walker or MMIO hooks. The
// memory path uses it once an address has been translated and matched no
// MMIO hook, and the tohost protocol uses it to reassemble the host cell.
func (h *Hart) ReadMem(addr uint64, out []byte) {
	h.mem.readAt(addr, out)
}

// WriteMem stores in into the physical address space directly, bypassing
// translation and MMIO hooks. Used by the ELF loader.
func (h *Hart) WriteMem(addr uint64, in []byte) {
	h.mem.writeAt(addr, in)
}
