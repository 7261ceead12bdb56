package hart

// CSR addresses, named and grouped exactly as the RISC-V privileged spec
// lays them out by privilege prefix.
const (
	csrUstatus  = 0x000
	csrFflags   = 0x001
	csrFrm      = 0x002
	csrFcsr     = 0x003
	csrUie      = 0x004
	csrUtvec    = 0x005
	csrUscratch = 0x040
	csrUepc     = 0x041
	csrUcause   = 0x042
	csrUtval    = 0x043
	csrUip      = 0x044

	csrSstatus    = 0x100
	csrSedeleg    = 0x102
	csrSideleg    = 0x103
	csrSie        = 0x104
	csrStvec      = 0x105
	csrScounteren = 0x106
	csrSscratch   = 0x140
	csrSepc       = 0x141
	csrScause     = 0x142
	csrStval      = 0x143
	csrSip        = 0x144
	csrSatp       = 0x180

	csrMstatus    = 0x300
	csrMisa       = 0x301
	csrMedeleg    = 0x302
	csrMideleg    = 0x303
	csrMie        = 0x304
	csrMtvec      = 0x305
	csrMcounteren = 0x306
	csrMscratch   = 0x340
	csrMepc       = 0x341
	csrMcause     = 0x342
	csrMtval      = 0x343
	csrMip        = 0x344

	csrPmpcfg0  = 0x3A0
	csrPmpaddr0 = 0x3B0

	csrMvendorid = 0xF11
	csrMarchid   = 0xF12
	csrMimpid    = 0xF13
	csrMhartid   = 0xF14

	csrCycle     = 0xC00
	csrTime      = 0xC01
	csrInstret   = 0xC02
	csrCycleh    = 0xC80
	csrInstreth  = 0xC82
	csrMcycle    = 0xB00
	csrMinstret  = 0xB02
	csrMcycleh   = 0xB80
	csrMinstreth = 0xB82

	csrTselect = 0x7A0
	csrTdata1  = 0x7A1
	csrTdata2  = 0x7A2
	csrTdata3  = 0x7A3
	csrDcsr    = 0x7B0
	csrDpc     = 0x7B1
)

// hpmcounterBase/mhpmcounterBase cover the 3..31 performance-counter range;
// they are modelled as plain read-only storage with no side effects.
const (
	hpmcounter3Base   = 0xC03
	hpmcounter3hBase  = 0xC83
	mhpmcounter3Base  = 0xB03
	mhpmcounter3hBase = 0xB83
	mhpmevent3Base    = 0x323
)
