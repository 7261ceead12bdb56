// Package mmio implements the small fixed-address device shims a hart's
// memory path dispatches to: the CLINT timer/software-interrupt block, a
// 16550-subset UART, and the HFROSC/PLL configuration-register stub used by
// the boot ROM on the reference platform this core targets.
package mmio

// Physical addresses the hart's memory path recognizes and routes here
// instead of treating as ordinary RAM.
const (
	CLINTMTime  = 0x0200BFF8
	HFROSCCfg   = 0x10008000
	PLLCfg      = 0x10008008
	UART0TxAddr = 0x10013000
	UART1TxAddr = 0x10023000
)

// CLINT models the core-local interruptor's mtime/mtimecmp/msip registers.
// It has no clock of its own; an external driver calls Tick with the
// hart's instruction count once per retired instruction.
type CLINT struct {
	MSIP     uint32
	MTimeCmp uint64
}

// ReadMTime implements the fixed 0x0200BFF8 mtime hook: mtime is derived
// from the instruction count rather than wall-clock time, matching a
// deterministic simulator rather than a real timer.
func (c *CLINT) ReadMTime(icount uint64) uint64 {
	return icount >> 12
}

// Tick reports whether the software and timer interrupt lines are
// currently asserted, for the caller to OR into mip.
func (c *CLINT) Tick(icount uint64) (msip, mtip bool) {
	return c.MSIP&1 != 0, c.ReadMTime(icount) >= c.MTimeCmp
}

// HFROSC is the tiny register stub the boot ROM pokes to bring up the
// high-frequency ring oscillator and the PLL. It is not a real clock
// model: writing the "enable" bit simply makes the corresponding "ready"
// bit observable on the next read, and after a fixed number of
// instructions the oscillator looks ready even without being poked.
type HFROSC struct {
	Cfg uint32
	PLL uint32
}

// ReadCfg implements the 0x10008000 read hook.
func (h *HFROSC) ReadCfg(icount uint64) uint32 {
	v := h.Cfg
	if icount > 30000 {
		v |= 1 << 31
	}
	return v
}

// WriteCfg implements the 0x10008000 write hook: if the enable bit
// (bit 30) is set, the ready bit (bit 31) becomes set too.
func (h *HFROSC) WriteCfg(v uint32) {
	h.Cfg = v
	if h.Cfg&(1<<30) != 0 {
		h.Cfg |= 1 << 31
	}
}

// WritePLL implements the 0x10008008 write hook: any write locks the PLL.
func (h *HFROSC) WritePLL(v uint32) {
	h.PLL = v | (1 << 31)
}
