package hart

// csrKind tags how a CSR address is dispatched. This mirrors the source's
// per-register callback table, expressed as a small tagged variant instead
// of a table of member-function pointers.
type csrKind uint8

const (
	csrDefault csrKind = iota // plain storage, no side effects
	csrReadOnly               // reads the raw slot; any write is illegal
	csrCallback               // dispatches through csrTag
)

type csrTag uint8

const (
	tagNone csrTag = iota
	tagStatus
	tagIE
	tagIP
	tagSatp
	tagCycle
	tagInstret
	tagCycleHigh
	tagInstretHigh
)

type csrEntry struct {
	kind csrKind
	tag  csrTag
}

// csrTable is built once; it is small enough (4096 entries) that a plain
// array beats a map for this hot path.
var csrTable = buildCSRTable()

func buildCSRTable() [4096]csrEntry {
	var t [4096]csrEntry

	t[csrMisa] = csrEntry{kind: csrReadOnly}
	t[csrMvendorid] = csrEntry{kind: csrReadOnly}
	t[csrMarchid] = csrEntry{kind: csrReadOnly}
	t[csrMimpid] = csrEntry{kind: csrReadOnly}
	t[csrMhartid] = csrEntry{kind: csrReadOnly}

	for _, a := range []uint16{csrMstatus, csrSstatus, csrUstatus} {
		t[a] = csrEntry{kind: csrCallback, tag: tagStatus}
	}
	for _, a := range []uint16{csrMie, csrSie, csrUie} {
		t[a] = csrEntry{kind: csrCallback, tag: tagIE}
	}
	for _, a := range []uint16{csrMip, csrSip, csrUip} {
		t[a] = csrEntry{kind: csrCallback, tag: tagIP}
	}
	t[csrSatp] = csrEntry{kind: csrCallback, tag: tagSatp}

	t[csrCycle] = csrEntry{kind: csrCallback, tag: tagCycle}
	t[csrMcycle] = csrEntry{kind: csrCallback, tag: tagCycle}
	t[csrInstret] = csrEntry{kind: csrCallback, tag: tagInstret}
	t[csrMinstret] = csrEntry{kind: csrCallback, tag: tagInstret}
	t[csrCycleh] = csrEntry{kind: csrCallback, tag: tagCycleHigh}
	t[csrMcycleh] = csrEntry{kind: csrCallback, tag: tagCycleHigh}
	t[csrInstreth] = csrEntry{kind: csrCallback, tag: tagInstretHigh}
	t[csrMinstreth] = csrEntry{kind: csrCallback, tag: tagInstretHigh}
	for a := uint16(hpmcounter3Base); a <= hpmcounter3Base+28; a++ {
		t[a] = csrEntry{kind: csrReadOnly}
	}
	for a := uint16(hpmcounter3hBase); a <= hpmcounter3hBase+28; a++ {
		t[a] = csrEntry{kind: csrReadOnly}
	}
	for a := uint16(mhpmcounter3Base); a <= mhpmcounter3Base+28; a++ {
		t[a] = csrEntry{kind: csrReadOnly}
	}
	for a := uint16(mhpmcounter3hBase); a <= mhpmcounter3hBase+28; a++ {
		t[a] = csrEntry{kind: csrReadOnly}
	}

	return t
}

// ReadCSR implements the read half of the CSR dispatch described for the
// CSR file: default storage, read-only rejection, or a registered
// callback.
func (h *Hart) ReadCSR(addr uint16) (uint64, error) {
	if addr >= 4096 {
		return 0, trap(CauseIllegalInstr)
	}
	e := csrTable[addr]
	switch e.kind {
	case csrReadOnly:
		return h.csr[addr], nil
	case csrCallback:
		return h.csrCallbackRead(addr, e.tag)
	default:
		return h.csr[addr], nil
	}
}

// WriteCSR implements the write half.
func (h *Hart) WriteCSR(addr uint16, val uint64) error {
	if addr >= 4096 {
		return trap(CauseIllegalInstr)
	}
	e := csrTable[addr]
	switch e.kind {
	case csrReadOnly:
		return trap(CauseIllegalInstr)
	case csrCallback:
		return h.csrCallbackWrite(addr, e.tag, val)
	default:
		h.csr[addr] = val
		return nil
	}
}

func csrPrivOf(addr uint16) Privilege {
	return Privilege((addr >> 8) & 0b11)
}

func (h *Hart) csrCallbackRead(addr uint16, tag csrTag) (uint64, error) {
	switch tag {
	case tagStatus:
		req := csrPrivOf(addr)
		if h.Priv < req {
			return 0, trap(CauseIllegalInstr)
		}
		return h.mstatus() & h.statusMask(req), nil
	case tagIE:
		req := csrPrivOf(addr)
		if h.Priv < req {
			return 0, trap(CauseIllegalInstr)
		}
		return h.csr[csrMie] & ieMask(req), nil
	case tagIP:
		// Known, deliberately reproduced quirk: reads the mie-backed slot
		// instead of mip.
		req := csrPrivOf(addr)
		if h.Priv < req {
			return 0, trap(CauseIllegalInstr)
		}
		return h.csr[csrMie] & ieMask(req), nil
	case tagSatp:
		if h.Priv == Supervisor && h.tvm() {
			return 0, trapAt(CauseIllegalInstr, h.PC)
		}
		return h.csr[csrSatp], nil
	case tagCycle, tagInstret:
		return h.ICount, nil
	case tagCycleHigh, tagInstretHigh:
		// Matches the upstream read_cycle: the high half only exists on
		// RV32; RV64 guests reading it fault, same as an unmapped CSR.
		if h.XLEN != 32 {
			return 0, trap(CauseIllegalInstr)
		}
		return h.ICount >> 32, nil
	default:
		return h.csr[addr], nil
	}
}

func (h *Hart) csrCallbackWrite(addr uint16, tag csrTag, val uint64) error {
	switch tag {
	case tagStatus:
		req := csrPrivOf(addr)
		if h.Priv < req {
			return trap(CauseIllegalInstr)
		}
		mask := h.statusMask(req)
		h.setMstatus(h.mstatus()&^mask | val&mask)
		h.UpdatePendingInterrupt()
		return nil
	case tagIE:
		req := csrPrivOf(addr)
		if h.Priv < req {
			return trap(CauseIllegalInstr)
		}
		mask := ieMask(req)
		h.csr[csrMie] = h.csr[csrMie]&^mask | val&mask
		h.UpdatePendingInterrupt()
		return nil
	case tagIP:
		req := csrPrivOf(addr)
		if h.Priv < req {
			return trap(CauseIllegalInstr)
		}
		mask := ieMask(req)
		h.csr[csrMip] = h.csr[csrMip]&^mask | val&mask
		h.UpdatePendingInterrupt()
		return nil
	case tagSatp:
		if h.Priv == Supervisor && h.tvm() {
			return trapAt(CauseIllegalInstr, h.PC)
		}
		h.csr[csrSatp] = val
		return nil
	case tagCycle, tagInstret, tagCycleHigh, tagInstretHigh:
		return trap(CauseIllegalInstr)
	default:
		h.csr[addr] = val
		return nil
	}
}
