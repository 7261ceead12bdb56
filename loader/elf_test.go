package loader_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvcore/loader"
)

// fakeMem records every WriteMem call so tests can assert on what the
// loader placed where, without depending on the hart package.
type fakeMem struct {
	writes map[uint64][]byte
}

func newFakeMem() *fakeMem { return &fakeMem{writes: map[uint64][]byte{}} }

func (m *fakeMem) WriteMem(addr uint64, in []byte) {
	cp := make([]byte, len(in))
	copy(cp, in)
	m.writes[addr] = cp
}

// buildMinimalELF64 assembles a tiny valid ELF64 executable with a single
// PT_LOAD segment containing payload, loaded at vaddr/paddr.
func buildMinimalELF64(t *testing.T, paddr uint64, payload []byte) []byte {
	t.Helper()

	const ehsize = 64
	const phsize = 56

	var buf bytes.Buffer

	// e_ident
	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2 /*ELFCLASS64*/, 1 /*ELFDATA2LSB*/, 1, 0})
	buf.Write(make([]byte, 8)) // padding

	le := binary.LittleEndian
	write16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	write32 := func(v uint32) { _ = binary.Write(&buf, le, v) }
	write64 := func(v uint64) { _ = binary.Write(&buf, le, v) }

	write16(2)      // e_type = ET_EXEC
	write16(0xF3)   // e_machine = EM_RISCV
	write32(1)      // e_version
	write64(paddr)  // e_entry
	write64(ehsize) // e_phoff
	write64(0)      // e_shoff
	write32(0)      // e_flags
	write16(ehsize) // e_ehsize
	write16(phsize) // e_phentsize
	write16(1)      // e_phnum
	write16(0)      // e_shentsize
	write16(0)      // e_shnum
	write16(0)      // e_shstrndx

	dataOff := uint64(ehsize + phsize)
	write32(1)                     // p_type = PT_LOAD
	write32(5)                     // p_flags = R+X
	write64(dataOff)               // p_offset
	write64(paddr)                 // p_vaddr
	write64(paddr)                 // p_paddr
	write64(uint64(len(payload)))  // p_filesz
	write64(uint64(len(payload))+8) // p_memsz: 8 extra bytes of BSS
	write64(0x1000)                // p_align

	buf.Write(payload)

	return buf.Bytes()
}

func TestLoadPlacesSegmentAndZerosBSS(t *testing.T) {
	payload := []byte{0x13, 0x00, 0x00, 0x00} // arbitrary 4 bytes
	const paddr = 0x80000000

	data := buildMinimalELF64(t, paddr, payload)

	dir := t.TempDir()
	path := filepath.Join(dir, "image.elf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	mem := newFakeMem()
	img, err := loader.Load(path, mem)
	require.NoError(t, err)

	assert.EqualValues(t, paddr, img.Entry)
	assert.Equal(t, payload, mem.writes[paddr])

	bss, ok := mem.writes[paddr+uint64(len(payload))]
	require.True(t, ok)
	assert.Equal(t, make([]byte, 8), bss)
}
