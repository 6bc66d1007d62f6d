package linker

import (
	"debug/elf"
	"strings"
)

// DefineReservedSymbols implements S2: every symbol name a linked
// program or the C runtime conventionally expects the linker itself
// to define, grounded on lld's Writer<ELFT>::addReservedSymbols
// (original_source/lld/ELF/Writer.cpp names this routine explicitly).
// Each is registered as SymSynthetic so the usual GetAddr() path
// resolves it once its owning OutputSection has an address.
func DefineReservedSymbols(ctx *Context) {
	define := func(name string, fn func() (c Chunker, off uint64)) {
		sym, ok := ctx.SymbolMap[name]
		if !ok || !sym.IsUndefined() {
			return
		}
		chunk, off := fn()
		if chunk == nil {
			return
		}
		sym.Kind = SymSynthetic
		sym.SyntheticSection = chunk
		sym.SyntheticOffset = off
		sym.File = nil
	}

	lastAllocSection := func() *OutputSection {
		var last *OutputSection
		for _, osec := range ctx.OutputSections {
			if osec.Shdr.Flags&uint64(elf.SHF_ALLOC) != 0 {
				last = osec
			}
		}
		return last
	}

	define("_end", func() (Chunker, uint64) {
		osec := lastAllocSection()
		if osec == nil {
			return nil, 0
		}
		return osec, osec.Shdr.Size
	})
	define("end", func() (Chunker, uint64) {
		osec := lastAllocSection()
		if osec == nil {
			return nil, 0
		}
		return osec, osec.Shdr.Size
	})

	findSection := func(name string) *OutputSection {
		for _, osec := range ctx.OutputSections {
			if osec.Name == name {
				return osec
			}
		}
		return nil
	}

	define("_etext", func() (Chunker, uint64) {
		if osec := findSection(".text"); osec != nil {
			return osec, osec.Shdr.Size
		}
		return nil, 0
	})
	define("etext", func() (Chunker, uint64) {
		if osec := findSection(".text"); osec != nil {
			return osec, osec.Shdr.Size
		}
		return nil, 0
	})
	define("_edata", func() (Chunker, uint64) {
		if osec := findSection(".data"); osec != nil {
			return osec, osec.Shdr.Size
		}
		return nil, 0
	})
	define("edata", func() (Chunker, uint64) {
		if osec := findSection(".data"); osec != nil {
			return osec, osec.Shdr.Size
		}
		return nil, 0
	})

	defineStartStop(ctx)
	defineRelaIpltBounds(ctx)
	defineTlsGetAddrFallback(ctx)
}

// defineRelaIpltBounds implements lld's addRelIpltSymbols:
// __rela_iplt_start/__rela_iplt_end (__rel_iplt_* on REL targets, not
// modeled here since every oracle in this core emits RELA) bracket
// .rela.plt, but only for a static link — a dynamically-linked output
// lets ld.so resolve IRELATIVE relocations itself, so these symbols
// have no reason to exist there and lld skips them entirely.
func defineRelaIpltBounds(ctx *Context) {
	if ctx.IsOutputDynamic() || ctx.RelaPlt == nil {
		return
	}
	defineAbsoluteChunkBound(ctx, "__rela_iplt_start", ctx.RelaPlt, 0)
	defineAbsoluteChunkBound(ctx, "__rela_iplt_end", ctx.RelaPlt, ctx.RelaPlt.Shdr.Size)
}

func defineAbsoluteChunkBound(ctx *Context, name string, chunk Chunker, off uint64) {
	sym, ok := ctx.SymbolMap[name]
	if !ok || !sym.IsUndefined() {
		return
	}
	sym.Kind = SymSynthetic
	sym.SyntheticSection = chunk
	sym.SyntheticOffset = off
	sym.File = nil
}

// defineTlsGetAddrFallback resolves any lingering __tls_get_addr
// reference to an Ignored pseudo-symbol when the output isn't
// dynamically linked: a static link is expected to have relaxed away
// every TLS-GD/LD call that would otherwise need the real runtime
// helper, so a leftover reference is harmless rather than undefined.
func defineTlsGetAddrFallback(ctx *Context) {
	if ctx.IsOutputDynamic() {
		return
	}
	sym, ok := ctx.SymbolMap["__tls_get_addr"]
	if !ok || !sym.IsUndefined() {
		return
	}
	sym.Kind = SymIgnored
	sym.File = nil
}

// defineStartStop implements GNU ld's __start_SECNAME/__stop_SECNAME
// convention: any output section whose name, after one leading "." is
// stripped, is a valid C identifier gets bracketing symbols marking its bounds, used heavily by Linux
// kernel-style linker-set idioms.
func defineStartStop(ctx *Context) {
	isIdent := func(s string) bool {
		if s == "" {
			return false
		}
		for i, c := range s {
			ok := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
				(i > 0 && c >= '0' && c <= '9')
			if !ok {
				return false
			}
		}
		return true
	}

	for _, osec := range ctx.OutputSections {
		name := strings.TrimPrefix(osec.Name, ".")
		if !isIdent(name) {
			continue
		}
		osecCopy := osec
		defineSynthetic(ctx, "__start_"+name, osecCopy, 0)
		defineSynthetic(ctx, "__stop_"+name, osecCopy, osecCopy.Shdr.Size)
	}
}

func defineSynthetic(ctx *Context, name string, osec *OutputSection, off uint64) {
	sym, ok := ctx.SymbolMap[name]
	if !ok {
		return
	}
	if !sym.IsUndefined() {
		return
	}
	sym.Kind = SymSynthetic
	sym.SyntheticSection = osec
	sym.SyntheticOffset = off
	sym.File = nil
}

func (s *Symbol) IsUsedInRegularObjFlag() bool { return s.Flags&IsUsedInRegularObj != 0 }
