package linker

import "debug/elf"

// scanOneRelocation is S4's per-relocation decision tree, grounded on
// lld's Writer.cpp/RelocationScanner (the scanRelocs described around
// Writer.cpp's createSyntheticSections) and generalized from
// unicornx-rvld's single-purpose "mark NeedsGotTp" check into the
// full GOT/PLT/copy-relocation/dynamic-relocation branch table
// spec.md §4.2 describes. Every branch only sets bookkeeping flags
// and slot reservations; no bytes are written here — S10's CopyBuf
// does that once every slot index is final.
func scanOneRelocation(ctx *Context, isec *InputSection, sym *Symbol, rel Rela) {
	t := ctx.Target
	if t.IsHint(rel.Type) {
		return
	}

	isPic := ctx.IsOutputDynamic() || ctx.Args.Relocatable

	if t.IsTlsReloc(rel.Type) {
		scanTlsRelocation(ctx, sym, rel)
		return
	}

	if t.NeedsGot(rel.Type, sym) {
		ctx.Got.AddGotSymbol(sym)
	}

	if t.NeedsPlt(rel.Type, sym) {
		ctx.Plt.AddSymbol(ctx, sym)
	}

	if t.NeedsCopyRel(rel.Type, sym) {
		addCopyRelSymbol(ctx, sym)
		return
	}

	if sym.IsIFunc() {
		ctx.Got.AddGotSymbol(sym)
		ctx.Plt.AddSymbol(ctx, sym)
		sym.Flags |= NeedsCopyOrPltAddr
		return
	}

	if t.NeedsDynReloc(rel.Type, sym, isPic) {
		if sym.IsShared() || sym.IsUndefined() {
			sym.Flags |= MustBeInDynSym
		}
		ctx.RelaDyn.Add(Rela{
			Offset: isec.GetAddr() + rel.Offset,
			Type:   t.GetDynRel(rel.Type, sym),
			Addend: rel.Addend,
		})
	}

	if sym.IsShared() || sym.IsUndefined() {
		sym.Flags |= MustBeInDynSym
	}
}

// scanTlsRelocation handles the TLS access-model relocations. On
// x86_64, initial-exec (GOTTPOFF) and local-dynamic (TLSLD) reserve a
// GOT-TP slot, general-dynamic (TLSGD) reserves a two-word GOT pair,
// and every other TLS relocation (local-exec included) reserves
// nothing; on riscv64 every TLS relocation reserves a GOT-TP slot.
func scanTlsRelocation(ctx *Context, sym *Symbol, rel Rela) {
	switch elf.R_X86_64(rel.Type) {
	case elf.R_X86_64_GOTTPOFF:
		ctx.Got.AddGotTpSymbol(sym)
	case elf.R_X86_64_TLSGD:
		sym.Flags |= NeedsTlsGd
		ctx.Got.AddTlsGdSymbol(sym)
	case elf.R_X86_64_TLSLD:
		// local-dynamic gets a single GotTp slot per referenced symbol;
		// no module-wide GOT pair and no module-index relocation are
		// allocated.
		ctx.Got.AddGotTpSymbol(sym)
	}
	if ctx.Target.Machine() == MachineTypeRISCV64 {
		ctx.Got.AddGotTpSymbol(sym)
	}
}

// addCopyRelSymbol reserves a .bss slot for a symbol whose definition
// lives in a DSO but whose address is taken by a non-PIC-safe
// relocation, the classic "copy relocation" escape hatch for global
// data symbols exported by a shared library.
func addCopyRelSymbol(ctx *Context, sym *Symbol) {
	if sym.Flags&NeedsCopyOrPltAddr != 0 {
		return
	}
	sym.Flags |= NeedsCopyOrPltAddr | MustBeInDynSym
	sym.Kind = SymDefinedCommon
	sym.CommonSize = sym.ShSize
	sym.CommonAlign = sym.ShAlign
	if sym.CommonAlign == 0 {
		sym.CommonAlign = 1
	}
	ctx.CopyRelSymbols = append(ctx.CopyRelSymbols, sym)
}

// ScanRelocations runs S4 across every live, allocated InputSection,
// then drains unicornx-rvld's per-symbol NeedsGotTp flag. Nothing in
// this core sets that flag (scanTlsRelocation reserves riscv64 GotTp
// slots directly), so the drain finds no symbols.
func ScanRelocations(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ScanRelocations(ctx)
	}

	syms := make([]*Symbol, 0)
	for _, file := range ctx.Objs {
		for _, sym := range file.Symbols {
			if sym.File == file && sym.Flags&NeedsGotTp != 0 {
				syms = append(syms, sym)
			}
		}
	}
	for _, sym := range syms {
		ctx.Got.AddGotTpSymbol(sym)
		sym.Flags &^= NeedsGotTp
	}
}
