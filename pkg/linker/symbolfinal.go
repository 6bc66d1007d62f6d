package linker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// FinalizeSymbols is S5: pack common symbols into .bss, reserve .bss
// slots for copy relocations, decide .symtab/.dynsym membership, and
// collect the undefined-symbol diagnostics spec.md §7's "Collected"
// policy defers until after every object has had a chance to resolve
// a reference, grounded on lld's assignment of Out::Bss and on
// unicornx-rvld's own single-purpose Clear()/GetAddr() split between
// "has a home" and "doesn't yet".
func FinalizeSymbols(ctx *Context) {
	packCommonSymbols(ctx)
	packCopyRelSymbols(ctx)
	collectUndefined(ctx)
	assignSymtabMembership(ctx)
}

// packCommonSymbols lays out every common symbol into .bss in
// descending alignment order, the layout GNU ld and lld both use to
// minimize padding between commons of differing alignment.
func packCommonSymbols(ctx *Context) {
	if len(ctx.CommonSymbols) == 0 {
		return
	}
	syms := append([]*Symbol{}, ctx.CommonSymbols...)
	for i := 1; i < len(syms); i++ {
		for j := i; j > 0 && syms[j].CommonAlign > syms[j-1].CommonAlign; j-- {
			syms[j], syms[j-1] = syms[j-1], syms[j]
		}
	}

	offset := ctx.Bss.Shdr.Size
	for _, sym := range syms {
		align := sym.CommonAlign
		if align == 0 {
			align = 1
		}
		offset = utils.AlignTo(offset, align)
		sym.OffsetInBss = offset
		offset += sym.CommonSize
	}

	ctx.Bss.Shdr.Size = offset
	ctx.Bss.Shdr.AddrAlign = utils.Max(ctx.Bss.Shdr.AddrAlign, syms[0].CommonAlign)
	globalCtxBss = ctx.Bss
}

// packCopyRelSymbols reserves .bss space for every
// symbol addCopyRelSymbol (relocscan.go) flagged, and emits the
// R_*_COPY relocation once the symbol's final address is known.
func packCopyRelSymbols(ctx *Context) {
	if len(ctx.CopyRelSymbols) == 0 {
		return
	}
	offset := ctx.Bss.Shdr.Size
	for _, sym := range ctx.CopyRelSymbols {
		align := sym.CommonAlign
		if align == 0 {
			align = 1
		}
		offset = utils.AlignTo(offset, align)
		sym.OffsetInBss = offset
		offset += sym.CommonSize
		ctx.Bss.Shdr.AddrAlign = utils.Max(ctx.Bss.Shdr.AddrAlign, align)
	}
	ctx.Bss.Shdr.Size = offset
	globalCtxBss = ctx.Bss

	for _, sym := range ctx.CopyRelSymbols {
		ctx.RelaDyn.Add(Rela{
			Offset: ctx.Bss.Shdr.Addr + sym.OffsetInBss,
			Type:   ctx.Target.GetCopyRel(),
		})
	}
}

// collectUndefined walks every live object's global symbols and
// reports any reference that resolved to neither a definition nor a
// DSO export; only weak references are exempt. Every report marks the
// link as failed (ctx.HasError); -shared, -r and NoUndefined are not
// consulted here, and NoInhibitExec only decides in ld.go whether the
// link goes on after the reports.
func collectUndefined(ctx *Context) {
	for _, file := range ctx.Objs {
		for i := file.FirstGlobal; i < len(file.ElfSyms); i++ {
			esym := &file.ElfSyms[i]
			sym := file.Symbols[i]
			if !esym.IsUndef() || sym.File != nil || sym.IsShared() {
				continue
			}
			if sym.IsUndefined() && esym.IsWeak() {
				continue
			}
			ctx.ReportUndefined(fmt.Sprintf("undefined symbol: %s (referenced by %s)",
				sym.Name, file.File.Name))
		}
	}
}

// assignSymtabMembership decides, per spec.md §4.3's keep rules,
// which symbols survive into .symtab (DiscardAll drops every local;
// DiscardLocals drops .L* locals outside mergeable sections) and which globals must additionally appear in
// .dynsym because a DSO or PLT/GOT/copy-relocation mechanism needs to
// name them at runtime.
func assignSymtabMembership(ctx *Context) {
	if ctx.Args.StripAll {
		return
	}

	for _, file := range ctx.Objs {
		for i := 1; i < file.FirstGlobal; i++ {
			sym := &file.LocalSymbols[i]
			if sym.Name == "" {
				continue
			}
			if ctx.Args.DiscardAll {
				continue
			}
			if ctx.Args.DiscardLocals && strings.HasPrefix(sym.Name, ".L") &&
				sym.SectionFragment == nil {
				continue
			}
			ctx.SymTab.Add(sym)
		}
	}

	names := make([]string, 0, len(ctx.SymbolMap))
	for name := range ctx.SymbolMap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sym := ctx.SymbolMap[name]
		if sym.IsUndefined() && !sym.IsShared() {
			continue
		}
		ctx.SymTab.Add(sym)
		if ctx.IsOutputDynamic() &&
			(sym.Flags&MustBeInDynSym != 0 || ctx.Args.ExportDynamic) {
			ctx.DynSymTab.Add(sym)
		}
	}
}

func isSectionLocal(sym *Symbol) bool {
	return sym.File != nil && sym.SymIdx >= 0 && sym.SymIdx < len(sym.File.ElfSyms) &&
		sym.ElfSym().Type() == uint8(3) // STT_SECTION
}
