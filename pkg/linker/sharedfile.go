package linker

import (
	"debug/elf"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// SharedFile is a parsed .so's dynamic symbol table: the Shared(DSO)
// symbol variant's backing store. It is intentionally a much smaller
// read than ObjectFile — a DSO contributes names and addresses-at
// -link-time only; its code and data are resolved by the real
// dynamic linker at process-start time, not by this core.
type SharedFile struct {
	InputFile
	SoName     string
	Symbols    []*Symbol
	Versions   []string
	IsNeeded   bool
}

func NewSharedFile(file *File) *SharedFile {
	s := &SharedFile{InputFile: NewInputFile(file), IsNeeded: true}
	s.SoName = s.readSoName()
	return s
}

func (s *SharedFile) readSoName() string {
	dynSec := s.FindSection(uint32(elf.SHT_DYNAMIC))
	if dynSec == nil {
		return baseNameOf(s.File.Name)
	}
	strTabSec := &s.ElfSections[dynSec.Link]
	strTab := s.GetBytesFromShdr(strTabSec)

	bs := s.GetBytesFromShdr(dynSec)
	const dynEntSize = 16
	for off := 0; off+dynEntSize <= len(bs); off += dynEntSize {
		tag := int64(readLE64(bs[off:]))
		val := readLE64(bs[off+8:])
		if tag == int64(elf.DT_SONAME) {
			return ElfGetName(strTab, uint32(val))
		}
		if tag == int64(elf.DT_NULL) {
			break
		}
	}
	return baseNameOf(s.File.Name)
}

func readLE64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func baseNameOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// Parse reads the DSO's own dynamic symbol table and registers every
// defined global as a Shared-kind Symbol, the way ResolveSymbols
// registers an ObjectFile's definitions — except a DSO never becomes
// the File that "owns" the memory for a symbol; it only supplies an
// address a copy relocation or PLT stub can bind to.
func (s *SharedFile) Parse(ctx *Context) {
	dynsym := s.FindSection(uint32(elf.SHT_DYNSYM))
	if dynsym == nil {
		return
	}
	s.FillUpElfSyms(dynsym)
	s.SymbolStrtab = s.GetBytesFromIdx(int64(dynsym.Link))

	for i, esym := range s.ElfSyms {
		if i == 0 || esym.IsUndef() {
			continue
		}
		if esym.Bind() == uint8(elf.STB_LOCAL) {
			continue
		}
		name := ElfGetName(s.SymbolStrtab, esym.Name)
		sym := GetSymbolByName(ctx, name)
		if sym.File == nil || sym.IsUndefined() {
			sym.File = nil
			sym.Kind = SymShared
			sym.SharedFile = s
			sym.ShSize = esym.Size
			align := uint64(1)
			if int(esym.Shndx) < len(s.ElfSections) {
				tz := utils.Min(utils.TrailingZeros64(s.ElfSections[esym.Shndx].AddrAlign),
					utils.TrailingZeros64(esym.Val))
				if tz < 64 {
					align = 1 << tz
				}
			}
			sym.ShAlign = align
			s.Symbols = append(s.Symbols, sym)
		}
	}
}

func (s *SharedFile) ResolveSymbols(ctx *Context) {
	s.Parse(ctx)
}
