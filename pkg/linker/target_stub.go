package linker

// StubTarget backs MIPS64/PPC64/AMDGPU: spec.md §4.4/§4.5 only asks
// these architectures to answer section-ordering and program-header
// questions correctly (so e.g. an AMDGPU PT_LOAD substitution or a
// MIPS GOT-relative section still lands in the right place); actual
// relocation scanning and application for them is out of this core's
// scope, so every per-relocation predicate here is conservative
// (answers "no dynamic linking needed") rather than wrong.
type StubTarget struct {
	machine MachineType
}

func NewStubTarget(m MachineType) *StubTarget { return &StubTarget{machine: m} }

func (t *StubTarget) Machine() MachineType { return t.machine }

func (*StubTarget) IsHint(relType uint32) bool                           { return false }
func (*StubTarget) IsTlsReloc(relType uint32) bool                       { return false }
func (*StubTarget) NeedsPlt(relType uint32, sym *Symbol) bool            { return false }
func (*StubTarget) NeedsGot(relType uint32, sym *Symbol) bool            { return false }
func (*StubTarget) NeedsCopyRel(relType uint32, sym *Symbol) bool        { return false }
func (*StubTarget) NeedsDynReloc(uint32, *Symbol, bool) bool             { return false }
func (*StubTarget) GetDynRel(relType uint32, sym *Symbol) uint32         { return 0 }
func (*StubTarget) GetPltRel(sym *Symbol) uint32                         { return 0 }
func (*StubTarget) GetCopyRel() uint32                                   { return 0 }
func (*StubTarget) PltEntrySize() uint64                                 { return 16 }
func (*StubTarget) PltHeaderSize() uint64                                { return 16 }
func (*StubTarget) GotEntrySize() uint64                                 { return 8 }
func (*StubTarget) WritePltHeader(ctx *Context, buf []byte)              {}
func (*StubTarget) WritePltEntry(ctx *Context, buf []byte, sym *Symbol)  {}
func (*StubTarget) WriteGotPltEntry(ctx *Context, buf []byte, s *Symbol) {}
func (*StubTarget) ApplyReloc(ctx *Context, isec *InputSection, base []byte) {}

func NewTargetForMachine(m MachineType) Target {
	switch m {
	case MachineTypeX86_64:
		return NewX86_64Target()
	case MachineTypeRISCV64:
		return NewRISCV64Target()
	default:
		return NewStubTarget(m)
	}
}
