package hart

import "rvcore/hart/mmio"

// Read services a load, instruction fetch, CSR read, FENCE probe, or
// reservation consumption, depending on addr.Space. Architectural traps
// are latched into TrapState and reported as a plain error, except for
// DEBUG-tagged accesses, which receive the *TrapError itself so a
// debugger can inspect it synchronously without disturbing TrapState or
// any MMIO side effects.
func (h *Hart) Read(addr AddrT, length int, out []byte) error {
	switch addr.Space {
	case SpaceMem:
		return h.readMemSpace(addr, length, out)
	case SpaceCSR:
		if length != h.XLEN/8 {
			return errBadCSRLength
		}
		v, err := h.ReadCSR(uint16(addr.Val))
		if err != nil {
			return h.deliver(addr, err)
		}
		putLE(out, v)
		return nil
	case SpaceFence:
		if (addr.Val == 2 || addr.Val == 3) && h.Priv == Supervisor && h.tvm() {
			return h.deliver(addr, trap(CauseIllegalInstr))
		}
		return nil
	case SpaceRes:
		if b, ok := h.reservations[addr.Val]; ok && b != 0 {
			delete(h.reservations, addr.Val)
			for i := range out {
				out[i] = 0xFF
			}
		} else {
			for i := range out {
				out[i] = 0
			}
		}
		return nil
	default:
		return errBadSpace
	}
}

// Write services a store, CSR write, FENCE (including SFENCE.VMA), or
// reservation placement.
func (h *Hart) Write(addr AddrT, length int, in []byte) error {
	switch addr.Space {
	case SpaceMem:
		return h.writeMemSpace(addr, length, in)
	case SpaceCSR:
		if length != h.XLEN/8 {
			return errBadCSRLength
		}
		if err := h.WriteCSR(uint16(addr.Val), leUint(in)); err != nil {
			return h.deliver(addr, err)
		}
		return nil
	case SpaceFence:
		if addr.Val == 2 || addr.Val == 3 {
			if h.Priv == Supervisor && h.tvm() {
				return h.deliver(addr, trap(CauseIllegalInstr))
			}
			h.FlushPTW()
		}
		return nil
	case SpaceRes:
		h.reservations[addr.Val] = 1
		return nil
	default:
		return errBadSpace
	}
}

func (h *Hart) readMemSpace(addr AddrT, length int, out []byte) error {
	if addr.Type.is(AccFetch) && addr.Val&1 != 0 {
		return h.deliver(addr, trapAt(CauseInstrMisaligned, addr.Val))
	}

	if h.crossesPage(addr, length) {
		firstLen := int(pageSize - addr.Val&pageMask)
		if err := h.readMemSpace(AddrT{Space: addr.Space, Type: addr.Type, Val: addr.Val}, firstLen, out[:firstLen]); err != nil {
			return err
		}
		return h.readMemSpace(AddrT{Space: addr.Space, Type: addr.Type, Val: addr.Val + uint64(firstLen)}, length-firstLen, out[firstLen:])
	}

	phys, err := h.V2P(addr)
	if err != nil {
		return h.deliver(addr, err)
	}

	if h.mmioRead(addr, phys, length, out) {
		return nil
	}
	h.ReadMem(phys, out)
	return nil
}

func (h *Hart) writeMemSpace(addr AddrT, length int, in []byte) error {
	if h.crossesPage(addr, length) {
		firstLen := int(pageSize - addr.Val&pageMask)
		if err := h.writeMemSpace(AddrT{Space: addr.Space, Type: addr.Type, Val: addr.Val}, firstLen, in[:firstLen]); err != nil {
			return err
		}
		return h.writeMemSpace(AddrT{Space: addr.Space, Type: addr.Type, Val: addr.Val + uint64(firstLen)}, length-firstLen, in[firstLen:])
	}

	phys, err := h.V2P(addr)
	if err != nil {
		return h.deliver(addr, err)
	}

	if h.mmioWrite(addr, phys, length, in) {
		return nil
	}
	h.WriteMem(phys, in)
	return nil
}

func (h *Hart) crossesPage(addr AddrT, length int) bool {
	if addr.Type.is(AccPhysical) {
		return false
	}
	if h.decodeVMInfo().Levels == 0 {
		return false
	}
	start := addr.Val & ^uint64(pageMask)
	end := (addr.Val + uint64(length) - 1) & ^uint64(pageMask)
	return start != end
}

// deliver turns err into the latched-TrapState form for ordinary accesses,
// or hands it back raw for DEBUG-tagged accesses (where MMIO side effects
// like UART emission and the tohost protocol must also not have fired —
// callers only reach deliver after those effects were skipped).
func (h *Hart) deliver(addr AddrT, err error) error {
	te, ok := err.(*TrapError)
	if !ok {
		return err
	}
	if addr.Type.is(AccDebug) {
		return te
	}
	h.FaultData = te.BadAddr
	h.TrapState = (1 << 31) | (te.Cause << 16)
	return errTrapLatched
}

func (h *Hart) mmioRead(addr AddrT, phys uint64, length int, out []byte) bool {
	switch phys {
	case mmio.CLINTMTime:
		putLEN(out, h.CLINT.ReadMTime(h.ICount), length)
		return true
	case mmio.HFROSCCfg:
		putLEN(out, uint64(h.HFROSC.ReadCfg(h.ICount)), length)
		return true
	case mmio.PLLCfg:
		putLEN(out, uint64(h.HFROSC.PLL), length)
		return true
	}
	return false
}

func (h *Hart) mmioWrite(addr AddrT, phys uint64, length int, in []byte) bool {
	debug := addr.Type.is(AccDebug)
	switch phys {
	case mmio.HFROSCCfg:
		h.HFROSC.WriteCfg(uint32(leUint(in)))
		return true
	case mmio.PLLCfg:
		h.HFROSC.WritePLL(uint32(leUint(in)))
		return true
	case mmio.UART0TxAddr, mmio.UART1TxAddr:
		if !debug {
			h.UART.WriteTHR(in[0])
		}
		return true
	}
	if phys == h.ToHost || phys == h.ToHost+4 {
		if !debug {
			h.handleToHostWrite(phys, in)
		}
		return true
	}
	if phys == h.FromHost || phys == h.FromHost+4 {
		h.WriteMem(phys, in)
		if !debug {
			h.mirrorFromHost()
		}
		return true
	}
	return false
}

// handleToHostWrite implements the tohost protocol. The write always lands
// in physical memory first; on XLEN=32 the 64-bit host cell is split across
// two 32-bit stores (low half at ToHost, high half at ToHost+4), so the
// command is only decoded once the high half (or, having already seen a low
// half, a further low half) lands — toHostWrCnt tracks an armed low-half
// write. Bit 48 and above of the reassembled 64-bit value select exit-code
// reporting versus a character-device byte stream.
func (h *Hart) handleToHostWrite(phys uint64, in []byte) {
	h.WriteMem(phys, in)

	upper := h.ToHost
	if h.XLEN == 32 {
		upper = h.ToHost + 4
	}
	isUpper := phys == upper
	isLower := phys == h.ToHost && h.XLEN == 32

	if !isUpper && !(isLower && h.toHostWrCnt > 0) {
		if isLower {
			h.toHostWrCnt++
		}
		return
	}
	h.toHostWrCnt = 0

	var buf [8]byte
	h.ReadMem(h.ToHost, buf[:])
	full := leUint(buf[:])
	switch full >> 48 {
	case 0:
		h.Stopped = true
		h.ExitCode = full
	case 0x0101:
		b := byte(full)
		if b == '\n' || b == 0 {
			h.hostOutput = append(h.hostOutput, '\n')
		} else {
			h.hostOutput = append(h.hostOutput, b)
		}
	}
}

// mirrorFromHost runs after a store to fromhost/fromhost+4 has landed in
// memory: it copies the 64-bit cell at FromHost into the cell at ToHost.
func (h *Hart) mirrorFromHost() {
	var buf [8]byte
	h.ReadMem(h.FromHost, buf[:])
	h.WriteMem(h.ToHost, buf[:])
}

// DrainHostOutput returns and clears bytes the guest has sent through the
// tohost character-device channel.
func (h *Hart) DrainHostOutput() []byte {
	out := h.hostOutput
	h.hostOutput = nil
	return out
}

func putLE(out []byte, v uint64) {
	putLEN(out, v, len(out))
}

func putLEN(out []byte, v uint64, n int) {
	for i := 0; i < n; i++ {
		out[i] = byte(v >> (8 * uint(i)))
	}
}
