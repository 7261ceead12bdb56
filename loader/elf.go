// Package loader ingests a RISC-V ELF image into a hart's physical memory
// at each segment's own physical address (rather than requiring it to sit
// above a fixed RAM base), and reports the tohost/fromhost cells so a
// caller doesn't have to hardcode them.
package loader

import (
	"debug/elf"
	"fmt"
)

// PhysicalWriter is the subset of *hart.Hart the loader needs: a direct,
// untranslated physical-memory store.
type PhysicalWriter interface {
	WriteMem(addr uint64, in []byte)
}

// Image describes what was found in the ELF beyond raw segment bytes.
type Image struct {
	Entry    uint64
	ToHost   uint64 // 0 if the image has no .tohost section
	FromHost uint64
}

// Load reads path and writes every PT_LOAD segment into mem at its
// physical address, zero-filling the Memsz-Filesz BSS tail.
func Load(path string, mem PhysicalWriter) (Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return Image{}, err
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 && prog.Memsz == 0 {
			continue
		}
		buf := make([]byte, prog.Filesz)
		if prog.Filesz > 0 {
			n, err := prog.ReadAt(buf, 0)
			if err != nil {
				return Image{}, err
			}
			if uint64(n) != prog.Filesz {
				return Image{}, fmt.Errorf("loader: short read on segment at %#x", prog.Paddr)
			}
			mem.WriteMem(prog.Paddr, buf)
		}
		if prog.Memsz > prog.Filesz {
			mem.WriteMem(prog.Paddr+prog.Filesz, make([]byte, prog.Memsz-prog.Filesz))
		}
	}

	img := Image{Entry: f.Entry}
	if sec := f.Section(".tohost"); sec != nil {
		img.ToHost = sec.Addr
		img.FromHost = sec.Addr + 0x40
	}
	return img, nil
}
