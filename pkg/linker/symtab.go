package linker

import (
	"debug/elf"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// StrtabSection accumulates a flat, null-terminated string pool;
// both .strtab (local/global symbol names) and .dynstr (dynamic
// symbol names plus SONAME/NEEDED strings) are instances of this one
// chunk, the way every linker's string-table writer is a single
// routine reused for multiple sections.
type StrtabSection struct {
	Chunk
	strs   []string
	offset map[string]uint32
}

func NewStrtabSection(name string, flags uint64) *StrtabSection {
	s := &StrtabSection{Chunk: NewChunk(), offset: make(map[string]uint32)}
	s.Name = name
	s.Shdr.Type = uint32(elf.SHT_STRTAB)
	s.Shdr.Flags = flags
	s.Shdr.AddrAlign = 1
	s.Shdr.Size = 1 // index 0 is always the empty string
	return s
}

// Add interns a string into the pool and returns its byte offset,
// deduplicating exact repeats (the same name added twice shares one
// offset); suffixes of longer strings are not shared.
func (s *StrtabSection) Add(str string) uint32 {
	if off, ok := s.offset[str]; ok {
		return off
	}
	off := uint32(s.Shdr.Size)
	s.offset[str] = off
	s.strs = append(s.strs, str)
	s.Shdr.Size += uint64(len(str)) + 1
	return off
}

func (s *StrtabSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[s.Shdr.Offset:]
	buf[0] = 0
	for _, str := range s.strs {
		off := s.offset[str]
		copy(buf[off:], str)
		buf[off+uint32(len(str))] = 0
	}
}

// SymtabSection is .symtab or .dynsym, generalized from the single
// monolithic symbol-table writer that neither unicornx-rvld nor
// AimiP02-tinyLinker ever got around to writing; DataModel §3 draws
// .symtab/.dynsym as parallel instances of the same chunk kind, so
// that's the shape here too.
type SymtabSection struct {
	Chunk
	Symbols []*Symbol
	Strtab  *StrtabSection
	IsDynamic bool
}

func NewSymtabSection(name string, strtab *StrtabSection, isDynamic bool) *SymtabSection {
	s := &SymtabSection{Chunk: NewChunk(), Strtab: strtab, IsDynamic: isDynamic,
		Symbols: []*Symbol{nil}}
	s.Name = name
	s.Shdr.Type = uint32(elf.SHT_SYMTAB)
	if isDynamic {
		s.Shdr.Type = uint32(elf.SHT_DYNSYM)
		s.Shdr.Flags = uint64(elf.SHF_ALLOC)
	}
	s.Shdr.EntSize = SymSize
	s.Shdr.AddrAlign = 8
	s.Shdr.Info = 1
	return s
}

func (s *SymtabSection) Add(sym *Symbol) {
	if s.IsDynamic {
		sym.DynSymIdx = int32(len(s.Symbols))
	} else {
		sym.SymIdx = int(len(s.Symbols))
	}
	s.Symbols = append(s.Symbols, sym)
	s.Strtab.Add(sym.Name)
}

func (s *SymtabSection) UpdateShdr(ctx *Context) {
	s.Shdr.Size = uint64(len(s.Symbols)) * SymSize
	s.Shdr.Link = uint32(s.Strtab.GetShndx())
}

func stBind(sym *Symbol) uint8 {
	if sym.Kind == SymIgnored {
		return uint8(elf.STB_LOCAL)
	}
	if sym.File != nil && sym.SymIdx >= 0 && sym.SymIdx < len(sym.File.ElfSyms) {
		return sym.ElfSym().Bind()
	}
	return uint8(elf.STB_GLOBAL)
}

func stType(sym *Symbol) uint8 {
	switch {
	case sym.IsIFunc():
		return sttGnuIfunc
	case sym.Flags&IsTls != 0:
		return uint8(elf.STT_TLS)
	case sym.Kind == SymDefinedCommon:
		return uint8(elf.STT_OBJECT)
	}
	if sym.File != nil && sym.SymIdx >= 0 && sym.SymIdx < len(sym.File.ElfSyms) {
		return sym.ElfSym().Type()
	}
	return uint8(elf.STT_NOTYPE)
}

func shndxFor(sym *Symbol) uint16 {
	switch sym.Kind {
	case SymUndefined, SymShared:
		return uint16(elf.SHN_UNDEF)
	case SymDefinedAbsolute:
		return uint16(elf.SHN_ABS)
	case SymDefinedCommon:
		return uint16(elf.SHN_COMMON)
	case SymSynthetic:
		if sym.SyntheticSection != nil {
			return uint16(sym.SyntheticSection.GetShndx())
		}
		return uint16(elf.SHN_ABS)
	default:
		if sym.InputSection != nil {
			return uint16(sym.InputSection.OutputSection.GetShndx())
		}
		if sym.SectionFragment != nil {
			return uint16(sym.SectionFragment.OutputSection.GetShndx())
		}
		return uint16(elf.SHN_ABS)
	}
}

func (s *SymtabSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[s.Shdr.Offset:]
	utils.Write[Sym](buf, Sym{})
	for i := 1; i < len(s.Symbols); i++ {
		sym := s.Symbols[i]
		esym := Sym{
			Name:  s.Strtab.offset[sym.Name],
			Val:   sym.GetAddr(),
			Shndx: shndxFor(sym),
		}
		if sym.Kind == SymDefinedCommon {
			esym.Val = sym.CommonAlign
			esym.Size = sym.CommonSize
		}
		esym.SetBind(stBind(sym))
		esym.SetType(stType(sym))
		utils.Write[Sym](buf[i*SymSize:], esym)
	}
}
