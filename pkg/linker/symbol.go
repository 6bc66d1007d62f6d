package linker

import "github.com/real-xidaozu/llvm-project/pkg/utils"

// Symbol flag bits, matching spec.md §3's Symbol.Flags invariant that
// InGot/InPlt form a monotone set once S4 has run. NeedsGotTp is the
// teacher's own RISC-V TLS-GOT flag, kept alongside the generalized
// flags S4/S5 introduce.
const (
	NeedsGotTp uint32 = 1 << iota
	IsUsedInRegularObj
	IsTls
	MustBeInDynSym
	NeedsCopyOrPltAddr
	InGot
	InPlt
	InGotTp
	NeedsTlsGd
	NeedsTlsGdToIe
)

// SymbolKind captures the "variant" spec.md §3 describes for Symbol:
// exactly one of these is active for a given Symbol at a time,
// discriminated the way the teacher discriminates "in an InputSection"
// vs. "in a SectionFragment" via nil pointers, generalized to the full
// variant set the dynamic-linking surface needs.
type SymbolKind int

const (
	SymUndefined SymbolKind = iota
	SymDefined
	SymDefinedCommon
	SymDefinedAbsolute
	SymShared
	SymSynthetic
	SymIgnored
)

// Symbol is the linker's internal view of a name, generalizing
// unicornx-rvld's RISC-V-only Symbol (File/Name/Value/SymIdx/
// GotTpIdx/InputSection/SectionFragment/Flags) with the variant and
// dynamic-linking bookkeeping spec.md §3 requires. The two mutually
// exclusive location fields the teacher has (InputSection vs.
// SectionFragment) are kept verbatim; Kind/CommonAlign/CommonSize/
// OffsetInBss/Shared are new fields for the variants the teacher's
// static-exe-only course project never needed.
type Symbol struct {
	File   *ObjectFile
	Name   string
	Value  uint64
	SymIdx int
	Flags  uint32

	Kind SymbolKind

	InputSection    *InputSection
	SectionFragment *SectionFragment

	// DefinedCommon
	CommonAlign uint64
	CommonSize  uint64
	OffsetInBss uint64

	// Shared (defined in a DSO, not yet resolved to a local copy)
	SharedFile *SharedFile
	ShSize     uint64
	ShAlign    uint64

	// Synthetic (linker-defined, spec.md §2). SyntheticSection is a
	// Chunker rather than an *OutputSection so a reserved symbol can
	// bracket any chunk — an OutputSection (".text", ...) or a
	// singleton synthetic chunk like RelaPlt (__rela_iplt_start/end).
	SyntheticSection Chunker
	SyntheticOffset  uint64

	// Dynamic-linking slot indices, assigned idempotently by S4.
	GotIdx    int32
	GotTpIdx  int32
	GotPltIdx int32
	PltIdx    int32
	DynSymIdx int32

	Visibility uint8
}

func NewSymbol(name string) *Symbol {
	return &Symbol{Name: name, SymIdx: -1, Kind: SymUndefined,
		GotIdx: -1, GotTpIdx: -1, GotPltIdx: -1, PltIdx: -1, DynSymIdx: -1}
}

func (s *Symbol) SetInputSection(isec *InputSection) {
	s.InputSection = isec
	s.SectionFragment = nil
	s.Kind = SymDefined
}

func (s *Symbol) SetSectionFragment(frag *SectionFragment) {
	s.InputSection = nil
	s.SectionFragment = frag
	s.Kind = SymDefined
}

func GetSymbolByName(ctx *Context, name string) *Symbol {
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	ctx.SymbolMap[name] = NewSymbol(name)
	return ctx.SymbolMap[name]
}

func (s *Symbol) ElfSym() *Sym {
	utils.Assert(s.SymIdx < len(s.File.ElfSyms))
	return &s.File.ElfSyms[s.SymIdx]
}

func (s *Symbol) Clear() {
	s.File = nil
	s.InputSection = nil
	s.SymIdx = -1
	s.Kind = SymUndefined
}

func (s *Symbol) IsUndefined() bool { return s.Kind == SymUndefined }
func (s *Symbol) IsShared() bool    { return s.Kind == SymShared }
func (s *Symbol) IsWeak() bool {
	if s.File != nil && s.SymIdx >= 0 && s.SymIdx < len(s.File.ElfSyms) {
		return s.ElfSym().IsWeak()
	}
	return false
}

func (s *Symbol) GetAddr() uint64 {
	switch s.Kind {
	case SymDefined:
		if s.SectionFragment != nil {
			return s.SectionFragment.GetAddr() + s.Value
		}
		if s.InputSection != nil {
			return s.InputSection.GetAddr() + s.Value
		}
		return s.Value
	case SymDefinedCommon:
		if globalCtxBss != nil {
			return globalCtxBss.Shdr.Addr + s.OffsetInBss
		}
		return s.OffsetInBss
	case SymDefinedAbsolute:
		return s.Value
	case SymSynthetic:
		if s.SyntheticSection != nil {
			return s.SyntheticSection.GetShdr().Addr + s.SyntheticOffset
		}
		return s.SyntheticOffset
	default:
		return s.Value
	}
}

// globalCtxBss lets GetAddr resolve DefinedCommon addresses without
// threading a *Context through every call site that already has a
// Symbol in hand; set once by S5 before any address is read. This is
// the one place the core keeps a package-level pointer, mirroring how
// deeply the original's Out<ELFT>::Bss singleton is woven through
// SymbolBody::getVA in the upstream implementation.
var globalCtxBss *OutputSection

func (s *Symbol) GetGotTpAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GotTpIdx)*WordSize
}

func (s *Symbol) GetGotAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GotIdx)*WordSize
}

func (s *Symbol) GetGotPltAddr(ctx *Context) uint64 {
	return ctx.GotPlt.Shdr.Addr + uint64(s.GotPltIdx)*WordSize
}

func (s *Symbol) GetPltAddr(ctx *Context) uint64 {
	return ctx.Plt.Shdr.Addr + uint64(s.PltIdx)*pltEntrySize
}

func (s *Symbol) NeedsCopyOrPltAddrFlag() bool { return s.Flags&NeedsCopyOrPltAddr != 0 }

func (s *Symbol) IsInGot() bool    { return s.Flags&InGot != 0 }
func (s *Symbol) IsInGotTp() bool  { return s.Flags&InGotTp != 0 }
func (s *Symbol) IsInPlt() bool    { return s.Flags&InPlt != 0 }
func (s *Symbol) IsInGotPlt() bool { return s.GotPltIdx >= 0 }

func (s *Symbol) IsIFunc() bool {
	if s.File == nil || s.SymIdx < 0 || s.SymIdx >= len(s.File.ElfSyms) {
		return false
	}
	return s.ElfSym().IsIFunc()
}
