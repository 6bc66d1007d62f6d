package linker

import "debug/elf"

// RISCV64Target reuses unicornx-rvld's own instruction-encoding code
// (inputsection.go's itype/stype/btype/utype/jtype helpers and
// applyRelocAllocRISCV64) as the riscv64 oracle's ApplyReloc; PLT/GOT
// entry writers are left unimplemented since the teacher's course
// project only ever produced static, non-PIE executables and never
// needed a lazy-binding PLT.
type RISCV64Target struct{}

func NewRISCV64Target() *RISCV64Target { return &RISCV64Target{} }

func (RISCV64Target) Machine() MachineType { return MachineTypeRISCV64 }

func (RISCV64Target) IsHint(relType uint32) bool {
	switch elf.R_RISCV(relType) {
	case elf.R_RISCV_NONE, elf.R_RISCV_RELAX:
		return true
	}
	return false
}

func (RISCV64Target) IsTlsReloc(relType uint32) bool {
	switch elf.R_RISCV(relType) {
	case elf.R_RISCV_TLS_GOT_HI20, elf.R_RISCV_TPREL_LO12_I, elf.R_RISCV_TPREL_LO12_S:
		return true
	}
	return false
}

func (RISCV64Target) NeedsPlt(relType uint32, sym *Symbol) bool {
	return (sym.IsShared() || sym.IsUndefined()) && elf.R_RISCV(relType) == elf.R_RISCV_CALL_PLT
}

func (RISCV64Target) NeedsGot(relType uint32, sym *Symbol) bool {
	return elf.R_RISCV(relType) == elf.R_RISCV_TLS_GOT_HI20
}

func (RISCV64Target) NeedsCopyRel(relType uint32, sym *Symbol) bool {
	return sym.IsShared() && sym.Kind != SymDefinedCommon
}

func (RISCV64Target) NeedsDynReloc(relType uint32, sym *Symbol, isPic bool) bool {
	return sym.IsShared() || sym.IsUndefined()
}

// rRiscvIrelative is R_RISCV_IRELATIVE (psABI value 58); Go's
// debug/elf has no constant for it.
const rRiscvIrelative = 58

func (RISCV64Target) GetDynRel(relType uint32, sym *Symbol) uint32 {
	if sym.IsIFunc() {
		return rRiscvIrelative
	}
	return uint32(elf.R_RISCV_64)
}

func (RISCV64Target) GetPltRel(sym *Symbol) uint32 {
	if sym.IsIFunc() {
		return rRiscvIrelative
	}
	return uint32(elf.R_RISCV_JUMP_SLOT)
}

func (RISCV64Target) GetCopyRel() uint32 { return uint32(elf.R_RISCV_COPY) }

func (RISCV64Target) PltEntrySize() uint64  { return 16 }
func (RISCV64Target) PltHeaderSize() uint64 { return 32 }
func (RISCV64Target) GotEntrySize() uint64  { return 8 }

func (RISCV64Target) WritePltHeader(ctx *Context, buf []byte) {}
func (RISCV64Target) WritePltEntry(ctx *Context, buf []byte, sym *Symbol) {}
func (RISCV64Target) WriteGotPltEntry(ctx *Context, buf []byte, sym *Symbol) {}

func (RISCV64Target) ApplyReloc(ctx *Context, i *InputSection, base []byte) {
	applyRelocAllocRISCV64(ctx, i, base)
}
