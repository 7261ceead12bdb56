package hart

// PTE permission/structural bits.
const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7
)

// vmInfo describes the paging mode currently configured by satp.
type vmInfo struct {
	Levels  int
	IdxBits int
	PTESize int
	PTBase  uint64
}

func (h *Hart) decodeVMInfo() vmInfo {
	satp := h.csr[csrSatp]
	if h.XLEN == 32 {
		mode := (satp >> 31) & 1
		if mode == 0 {
			return vmInfo{}
		}
		return vmInfo{Levels: 2, IdxBits: 10, PTESize: 4, PTBase: (satp & 0x3FFFFF) << 12}
	}
	mode := (satp >> 60) & 0xF
	base := (satp & 0xFFFFFFFFFFF) << 12
	switch mode {
	case 0:
		return vmInfo{}
	case 8:
		return vmInfo{Levels: 3, IdxBits: 9, PTESize: 8, PTBase: base} // Sv39
	case 9:
		return vmInfo{Levels: 4, IdxBits: 9, PTESize: 8, PTBase: base} // Sv48
	case 10:
		return vmInfo{Levels: 5, IdxBits: 9, PTESize: 8, PTBase: base} // Sv57
	case 11:
		return vmInfo{Levels: 6, IdxBits: 9, PTESize: 8, PTBase: base} // Sv64
	default:
		return vmInfo{}
	}
}

// ptwEntry is a cached leaf translation; superpages are flattened to the
// requested page's granularity at insertion time.
type ptwEntry struct {
	PhysPage uint64 // physical page number, already combined with vpn low bits
	Flags    uint8  // the leaf PTE's low permission/A/D byte
}

// FlushPTW invalidates the whole page-table-walk cache. Called on
// SFENCE.VMA; a bare write to satp does not flush on its own.
func (h *Hart) FlushPTW() {
	h.ptw = make(map[uint64]ptwEntry)
}

// V2P translates addr according to the active paging mode, consulting and
// populating the PTW cache. Non-MEM accesses and PHYSICAL-tagged accesses
// pass through unchanged (masked to XLEN).
func (h *Hart) V2P(addr AddrT) (uint64, error) {
	if addr.Space != SpaceMem || addr.Type.is(AccPhysical) {
		return addr.Val & h.xlenMask(), nil
	}

	effPriv := h.Priv
	if !addr.Type.is(AccFetch) && h.mprv() {
		effPriv = h.mpp()
	}

	vm := h.decodeVMInfo()
	if vm.Levels == 0 || effPriv == Machine {
		return addr.Val & h.xlenMask(), nil
	}

	va := addr.Val
	vpn := va >> pageShift

	if e, ok := h.ptw[vpn]; ok {
		needA := uint8(pteA)
		if addr.Type.is(AccWrite) {
			needA |= pteD
		}
		if e.Flags&needA == needA {
			return (e.PhysPage << pageShift) | (va & pageMask), nil
		}
		delete(h.ptw, vpn)
	}

	vaBits := pageShift + vm.Levels*vm.IdxBits
	topMask := h.xlenMask() &^ (uint64(1)<<(vaBits-1) - 1)
	top := va & topMask
	if top != 0 && top != topMask {
		return 0, h.pageFaultFor(addr, va)
	}

	sMode := effPriv == Supervisor
	sum := h.sum()
	mxr := h.mxr()

	base := vm.PTBase
	for i := vm.Levels - 1; i >= 0; i-- {
		ptshift := uint(i * vm.IdxBits)
		idx := (va >> (pageShift + ptshift)) & (uint64(1)<<vm.IdxBits - 1)
		pteAddr := base + idx*uint64(vm.PTESize)

		buf := make([]byte, vm.PTESize)
		if err := h.Read(AddrT{Space: SpaceMem, Type: AccRead | AccPhysical, Val: pteAddr}, vm.PTESize, buf); err != nil {
			return 0, trapAt(CauseLoadAccessFault, va)
		}
		pte := leUint(buf)
		ppn := pte >> 10

		if pte&(pteV|pteR|pteW|pteX) == pteV {
			base = ppn << pageShift
			continue
		}

		if pte&pteU != 0 {
			if sMode && (addr.Type.is(AccFetch) || !sum) {
				return 0, h.pageFaultFor(addr, va)
			}
		} else if !sMode {
			return 0, h.pageFaultFor(addr, va)
		}

		if pte&pteV == 0 || (pte&pteR == 0 && pte&pteW != 0) {
			return 0, h.pageFaultFor(addr, va)
		}

		switch {
		case addr.Type.is(AccFetch):
			if pte&pteX == 0 {
				return 0, h.pageFaultFor(addr, va)
			}
		case addr.Type.is(AccWrite):
			if pte&(pteR|pteW) != (pteR | pteW) {
				return 0, h.pageFaultFor(addr, va)
			}
		default:
			if pte&pteR == 0 && !(mxr && pte&pteX != 0) {
				return 0, h.pageFaultFor(addr, va)
			}
		}

		if ptshift > 0 && ppn&(uint64(1)<<ptshift-1) != 0 {
			return 0, h.pageFaultFor(addr, va)
		}

		needA := uint8(pteA)
		if addr.Type.is(AccWrite) {
			needA |= pteD
		}
		if uint8(pte)&needA != needA {
			return 0, h.pageFaultFor(addr, va)
		}

		physPage := ppn | (vpn & (uint64(1)<<ptshift - 1))
		h.ptw[vpn] = ptwEntry{PhysPage: physPage, Flags: uint8(pte)}
		return (physPage << pageShift) | (va & pageMask), nil
	}

	return 0, h.pageFaultFor(addr, va)
}

func (h *Hart) pageFaultFor(addr AddrT, va uint64) *TrapError {
	cause := uint64(CauseLoadPageFault)
	switch {
	case addr.Type.is(AccFetch):
		cause = CauseInstrPageFault
	case addr.Type.is(AccWrite):
		cause = CauseStorePageFault
	}
	return trapAt(cause, va)
}

func leUint(b []byte) uint64 {
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * uint(i))
	}
	return v
}
