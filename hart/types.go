// Package hart implements the privileged-architecture core of a single
// RISC-V hart: the CSR file, the U/S/M privilege and trap state machine,
// the Sv32/Sv39/Sv48/Sv57/Sv64 page-table walker, the physical memory path
// with MMIO hooks, and the load-reserved/store-conditional reservation set.
//
// Instruction decode and execution are not part of this package; callers
// drive a Hart purely through Read, Write, EnterTrap, LeaveTrap, V2P and
// WaitUntil, the same surface a decode/execute loop would call into.
package hart

import "fmt"

// Privilege is a RISC-V privilege level. Values match the encoding used in
// mstatus.MPP/SPP and in delegation CSRs.
type Privilege uint8

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

func (p Privilege) String() string {
	switch p {
	case User:
		return "U"
	case Supervisor:
		return "S"
	case Machine:
		return "M"
	default:
		return fmt.Sprintf("Privilege(%d)", uint8(p))
	}
}

// Space names the address space an AddrT targets.
type Space uint8

const (
	SpaceMem Space = iota
	SpaceCSR
	SpaceFence
	SpaceRes
)

// AccessType is a bitmask describing the nature of an access.
type AccessType uint32

const (
	AccFetch    AccessType = 1 << iota // instruction fetch
	AccRead                            // load
	AccWrite                           // store
	AccDebug                           // debugger-initiated; traps propagate synchronously
	AccPhysical                        // bypass V2P translation
)

func (t AccessType) is(flag AccessType) bool { return t&flag != 0 }

// AddrT is the address an executor presents to Read/Write/V2P.
type AddrT struct {
	Space Space
	Type  AccessType
	Val   uint64
}

// TrapError is the distinguished error type architectural traps are raised
// with. The top-level Read/Write latches it into Hart.TrapState; a
// DEBUG-tagged access instead receives it directly.
type TrapError struct {
	Cause   uint64
	BadAddr uint64
	HasAddr bool
}

func (e *TrapError) Error() string {
	if e.HasAddr {
		return fmt.Sprintf("trap cause=%d badaddr=%#x", e.Cause, e.BadAddr)
	}
	return fmt.Sprintf("trap cause=%d", e.Cause)
}

func trap(cause uint64) *TrapError { return &TrapError{Cause: cause} }

func trapAt(cause, addr uint64) *TrapError {
	return &TrapError{Cause: cause, BadAddr: addr, HasAddr: true}
}

// Exception causes (mcause/scause with the interrupt bit clear).
const (
	CauseInstrMisaligned   = 0
	CauseInstrAccessFault  = 1
	CauseIllegalInstr      = 2
	CauseBreakpoint        = 3
	CauseLoadMisaligned    = 4
	CauseLoadAccessFault   = 5
	CauseStoreMisaligned   = 6
	CauseStoreAccessFault  = 7
	CauseEcallU            = 8
	CauseEcallS            = 9
	CauseEcallM            = 11
	CauseInstrPageFault    = 12
	CauseLoadPageFault     = 13
	CauseStorePageFault    = 15
)

// Interrupt causes (bit position within mip/mie/mideleg).
const (
	IrqUSoft   = 0
	IrqSSoft   = 1
	IrqMSoft   = 3
	IrqUTimer  = 4
	IrqSTimer  = 5
	IrqMTimer  = 7
	IrqUExt    = 8
	IrqSExt    = 9
	IrqMExt    = 11
)
