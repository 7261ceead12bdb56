package hart

// EnterTrap reifies a pending trap, switching privilege and redirecting
// control flow the way a real hart's trap-entry microcode does. flags
// encodes the trap id in its low 16 bits (0 for a synchronous exception,
// nonzero for an interrupt) and the cause in bits [16:31); faultPC is the
// instruction address the trap is attributed to. It returns the new
// NextPC.
func (h *Hart) EnterTrap(flags uint64, faultPC uint64) uint64 {
	trapID := flags & 0xFFFF
	cause := (flags >> 16) & 0x7FFF
	isInterrupt := trapID != 0

	if !isInterrupt && cause == 11 {
		cause = 8 + uint64(h.Priv)
	}

	newPriv := h.delegate(cause, isInterrupt)

	if isInterrupt {
		h.setEPC(newPriv, h.NextPC)
		h.PendingTrap = 0
	} else {
		h.setEPC(newPriv, faultPC)
		h.setTVal(newPriv, h.FaultData)
		h.FaultData = 0
	}

	causeBits := cause
	if isInterrupt {
		causeBits |= uint64(1) << (h.XLEN - 1)
	}
	h.setCause(newPriv, causeBits)

	prevPriv := h.Priv
	h.setPIEBit(newPriv, h.ieBit(prevPriv))
	h.setXPP(newPriv, prevPriv)
	h.setIEBit(newPriv, false)
	h.setIEBit(prevPriv, false)

	ivec := h.tvec(newPriv)
	next := ivec &^ 1
	if isInterrupt && ivec&1 != 0 {
		next += 4 * cause
	}

	h.Priv = newPriv
	h.NextPC = next
	h.TrapState = 0
	return h.NextPC
}

// delegate resolves which privilege level a trap lands in, walking the
// M->S->U delegation chain no further than the current privilege allows.
func (h *Hart) delegate(cause uint64, isInterrupt bool) Privilege {
	if h.Priv == Machine {
		return Machine
	}
	delegReg := h.csr[csrMedeleg]
	if isInterrupt {
		delegReg = h.csr[csrMideleg]
	}
	if delegReg&(uint64(1)<<cause) == 0 {
		return Machine
	}
	if h.Priv == Supervisor {
		return Supervisor
	}
	delegReg2 := h.csr[csrSedeleg]
	if isInterrupt {
		delegReg2 = h.csr[csrSideleg]
	}
	if delegReg2&(uint64(1)<<cause) == 0 {
		return Supervisor
	}
	return User
}

func (h *Hart) epcAddr(p Privilege) uint16 {
	switch p {
	case Machine:
		return csrMepc
	case Supervisor:
		return csrSepc
	default:
		return csrUepc
	}
}

func (h *Hart) tvalAddr(p Privilege) uint16 {
	switch p {
	case Machine:
		return csrMtval
	case Supervisor:
		return csrStval
	default:
		return csrUtval
	}
}

func (h *Hart) causeAddr(p Privilege) uint16 {
	switch p {
	case Machine:
		return csrMcause
	case Supervisor:
		return csrScause
	default:
		return csrUcause
	}
}

func (h *Hart) tvecAddr(p Privilege) uint16 {
	switch p {
	case Machine:
		return csrMtvec
	case Supervisor:
		return csrStvec
	default:
		return csrUtvec
	}
}

func (h *Hart) setEPC(p Privilege, v uint64)   { h.csr[h.epcAddr(p)] = v }
func (h *Hart) setTVal(p Privilege, v uint64)  { h.csr[h.tvalAddr(p)] = v }
func (h *Hart) setCause(p Privilege, v uint64) { h.csr[h.causeAddr(p)] = v }
func (h *Hart) tvec(p Privilege) uint64        { return h.csr[h.tvecAddr(p)] }

// LeaveTrap implements xRET: instPriv names which return instruction
// fired (0=URET, 1=SRET, 3=MRET). It returns the restored NextPC.
func (h *Hart) LeaveTrap(instPriv uint64) uint64 {
	ip := Privilege(instPriv)

	if h.Priv == Supervisor && ip == Supervisor && h.tsr() {
		h.TrapState = (1 << 31) | (CauseIllegalInstr << 16)
		return h.PC
	}

	ppl := h.xPP(ip)
	h.NextPC = h.csr[h.epcAddr(ip)]
	h.setIEBit(ppl, h.pieBit(ip))
	h.Priv = ppl
	h.UpdatePendingInterrupt()
	return h.NextPC
}

// UpdatePendingInterrupt recomputes PendingTrap from mip/mie/mideleg and
// the current privilege's interrupt-enable state. M-level candidates are
// considered first; within a level, the lowest-numbered bit wins, so with
// the fixed bit assignments software interrupts (bits 0-3) take priority
// over timer interrupts (bits 4-7), which take priority over external
// interrupts (bits 8-11).
func (h *Hart) UpdatePendingInterrupt() {
	ena := h.csr[csrMip] & h.csr[csrMie]

	mEnabled := h.Priv != Machine || h.ieBit(Machine)
	mCandidates := uint64(0)
	if mEnabled {
		mCandidates = ena &^ h.csr[csrMideleg]
	}
	if bit, ok := lowestSetBit(mCandidates); ok {
		h.PendingTrap = (bit << 16) | 1
		return
	}

	sEnabled := h.Priv == User || (h.Priv == Supervisor && h.ieBit(Supervisor))
	sCandidates := uint64(0)
	if sEnabled {
		sCandidates = ena & h.csr[csrMideleg]
	}
	if bit, ok := lowestSetBit(sCandidates); ok {
		h.PendingTrap = (bit << 16) | 1
		return
	}

	h.PendingTrap = 0
}

func lowestSetBit(v uint64) (uint64, bool) {
	if v == 0 {
		return 0, false
	}
	for i := uint64(0); i < 64; i++ {
		if v&(1<<i) != 0 {
			return i, true
		}
	}
	return 0, false
}

// WaitUntil implements WFI's privileged gate: in S-mode with mstatus.TW
// set, WFI is illegal. Otherwise it has no observable effect here — idling
// until an interrupt is pending is the executor's responsibility.
func (h *Hart) WaitUntil(flags uint64) {
	if h.Priv == Supervisor && h.tw() {
		h.TrapState = (1 << 31) | (CauseIllegalInstr << 16)
	}
}
