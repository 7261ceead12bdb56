package hart_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvcore/hart"
)

func newRV64() *hart.Hart {
	return hart.New(64, 0x80000000)
}

func newRV32() *hart.Hart {
	return hart.New(32, 0x80000000)
}

func csrAddr(a uint16) hart.AddrT {
	return hart.AddrT{Space: hart.SpaceCSR, Val: uint64(a)}
}

func readCSR(t *testing.T, h *hart.Hart, a uint16) uint64 {
	t.Helper()
	var buf [8]byte
	require.NoError(t, h.Read(csrAddr(a), 8, buf[:]))
	return binary.LittleEndian.Uint64(buf[:])
}

func readCSR32(t *testing.T, h *hart.Hart, a uint16) uint64 {
	t.Helper()
	var buf [4]byte
	require.NoError(t, h.Read(csrAddr(a), 4, buf[:]))
	return uint64(binary.LittleEndian.Uint32(buf[:]))
}

func writeCSR(t *testing.T, h *hart.Hart, a uint16, v uint64) {
	t.Helper()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	require.NoError(t, h.Write(csrAddr(a), 8, buf[:]))
}

// Mask idempotence: writing mstatus from M-mode and reading it back
// yields the same value modulo the WARL mask (all fields are legal at M,
// so a round trip through legal bits should be exact).
func TestMstatusMaskIdempotence(t *testing.T) {
	h := newRV64()
	h.Priv = hart.Machine

	const mstatus = 0x300
	writeCSR(t, h, mstatus, 0x1888)
	got := readCSR(t, h, mstatus)

	writeCSR(t, h, mstatus, got)
	again := readCSR(t, h, mstatus)
	assert.Equal(t, got, again)
}

// ECALL from U, undelegated, must trap to M with the correct epc/cause and
// mstatus bookkeeping (scenario 1).
func TestEnterTrapEcallFromU(t *testing.T) {
	h := newRV64()
	h.Priv = hart.Machine
	writeCSR(t, h, 0x300, 1)       // UIE set, so we can observe it land in MPIE
	writeCSR(t, h, 0x305, 0x2000) // mtvec, direct mode
	h.Priv = hart.User

	h.PC = 0x1000
	h.NextPC = 0x1004

	next := h.EnterTrap(11<<16, h.PC)

	assert.Equal(t, hart.Machine, h.Priv)
	assert.Equal(t, uint64(0x2000), next)
	assert.Equal(t, uint64(0x1000), readCSR(t, h, 0x341)) // mepc
	assert.Equal(t, uint64(8), readCSR(t, h, 0x342))      // mcause = ecall-from-U
	assert.NotZero(t, readCSR(t, h, 0x300)&(1<<7))        // mstatus.MPIE took UIE_before
}

// Delegated page fault lands in S, not M (scenario 2 / delegation
// preference property).
func TestEnterTrapDelegatedToS(t *testing.T) {
	h := newRV64()
	h.Priv = hart.Machine
	writeCSR(t, h, 0x302, 1<<13) // medeleg[load page fault]
	h.Priv = hart.Supervisor
	h.FaultData = 0x4000

	h.PC = 0x8000
	next := h.EnterTrap(13<<16, h.PC)

	assert.Equal(t, hart.Supervisor, h.Priv)
	assert.Equal(t, uint64(0x8000), readCSR(t, h, 0x141)) // sepc
	assert.Equal(t, uint64(0x4000), readCSR(t, h, 0x143)) // stval
	_ = next
}

// xPP round trip: EnterTrap from S, then the matching SRET, restores
// privilege and the pre-trap interrupt-enable bit.
func TestTrapRoundTrip(t *testing.T) {
	h := newRV64()
	h.Priv = hart.Supervisor
	writeCSR(t, h, 0x100, 1<<1) // SIE=1 via sstatus

	h.PC = 0x3000
	h.EnterTrap(2<<16, h.PC) // illegal instruction, undelegated -> M

	require.Equal(t, hart.Machine, h.Priv)
	h.LeaveTrap(uint64(hart.Machine))

	assert.Equal(t, hart.Supervisor, h.Priv)
	assert.NotZero(t, readCSR(t, h, 0x100)&(1<<1)) // sstatus.SIE restored
}

// TVM traps satp access from S.
func TestSatpTVMTraps(t *testing.T) {
	h := newRV64()
	h.Priv = hart.Machine
	writeCSR(t, h, 0x300, 1<<20) // mstatus.TVM
	h.Priv = hart.Supervisor

	err := h.WriteCSR(0x180, 0)
	require.Error(t, err)
	assert.Equal(t, uint64(0), h.TrapState) // WriteCSR itself doesn't latch; Write does
}

// Vectored interrupt jumps to base + 4*cause.
func TestVectoredInterruptTarget(t *testing.T) {
	h := newRV64()
	h.Priv = hart.Machine
	writeCSR(t, h, 0x305, 0x1000|1) // mtvec vectored

	next := h.EnterTrap(1|(7<<16), h.PC) // mtimer interrupt, cause=7

	assert.Equal(t, uint64(0x1000+4*7), next)
}

// Reservation set: a RES write followed by a RES read consumes the
// reservation exactly once.
func TestReservationConsumedOnce(t *testing.T) {
	h := newRV64()
	addr := hart.AddrT{Space: hart.SpaceRes, Val: 0x2000}

	require.NoError(t, h.Write(addr, 1, []byte{1}))

	var out [1]byte
	require.NoError(t, h.Read(addr, 1, out[:]))
	assert.Equal(t, byte(0xFF), out[0])

	require.NoError(t, h.Read(addr, 1, out[:]))
	assert.Equal(t, byte(0), out[0])
}

// DEBUG-tagged MMIO writes must not emit host output.
func TestDebugWriteSuppressesUARTOutput(t *testing.T) {
	h := newRV64()
	addr := hart.AddrT{Space: hart.SpaceMem, Type: hart.AccWrite | hart.AccDebug | hart.AccPhysical, Val: 0x10013000}
	require.NoError(t, h.Write(addr, 1, []byte{'h'}))
	require.NoError(t, h.Write(hart.AddrT{Space: hart.SpaceMem, Type: hart.AccWrite | hart.AccDebug | hart.AccPhysical, Val: 0x10013000}, 1, []byte{'\n'}))
	assert.Empty(t, h.UART.Drain())
}

// The tohost protocol: storing 1 at tohost stops the guest with exit
// code 1 (scenario 6).
func TestToHostExit(t *testing.T) {
	h := newRV64()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	addr := hart.AddrT{Space: hart.SpaceMem, Type: hart.AccWrite | hart.AccPhysical, Val: h.ToHost}
	require.NoError(t, h.Write(addr, 8, buf[:]))

	assert.True(t, h.Stopped)
	assert.Equal(t, uint64(1), h.ExitCode)
}

// The tohost protocol on RV32: the guest writes the 64-bit host cell as two
// 32-bit stores (low half, then high half), and only the high-half write
// must complete the command (scenario 6, XLEN=32).
func TestToHostExitRV32(t *testing.T) {
	h := newRV32()
	low := hart.AddrT{Space: hart.SpaceMem, Type: hart.AccWrite | hart.AccPhysical, Val: h.ToHost}
	high := hart.AddrT{Space: hart.SpaceMem, Type: hart.AccWrite | hart.AccPhysical, Val: h.ToHost + 4}

	require.NoError(t, h.Write(low, 4, []byte{1, 0, 0, 0}))
	assert.False(t, h.Stopped)

	require.NoError(t, h.Write(high, 4, []byte{0, 0, 0, 0}))
	assert.True(t, h.Stopped)
	assert.Equal(t, uint64(1), h.ExitCode)
}

// mcycleh/minstreth expose the high 32 bits of icount on RV32 and are
// illegal to read or write on RV64.
func TestCycleHighHalf(t *testing.T) {
	h32 := newRV32()
	h32.Priv = hart.Machine
	h32.ICount = (uint64(7) << 32) | 9
	assert.Equal(t, uint64(7), readCSR32(t, h32, 0xB80))
	require.Error(t, h32.WriteCSR(0xB80, 0))

	h64 := newRV64()
	h64.Priv = hart.Machine
	_, err := h64.ReadCSR(0xB80)
	require.Error(t, err)
}

// SFENCE.VMA flushes the PTW cache (coherence property), observable via
// the FENCE space.
func TestSFenceVMAFlushesCache(t *testing.T) {
	h := newRV64()
	h.Priv = hart.Supervisor

	const root = 0x1000
	leaf := uint64(pteV | pteR | pteW | pteX | pteA | pteD)
	writePTE64(t, h, root+1*8, (uint64(0x80000)<<10)|leaf)
	require.NoError(t, h.WriteCSR(0x180, (uint64(8)<<60)|(root>>12)))

	va := hart.AddrT{Space: hart.SpaceMem, Type: hart.AccRead, Val: 0x40000000}
	phys, err := h.V2P(va)
	require.NoError(t, err)
	require.Equal(t, uint64(0x80000000), phys)

	// Remap the page: the cached translation is still used until the fence.
	writePTE64(t, h, root+1*8, (uint64(0xC0000)<<10)|leaf)
	phys, err = h.V2P(va)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x80000000), phys)

	require.NoError(t, h.Write(hart.AddrT{Space: hart.SpaceFence, Val: 2}, 0, nil))
	phys, err = h.V2P(va)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xC0000000), phys)
}
