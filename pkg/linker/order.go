package linker

import (
	"debug/elf"
	"math"
	"sort"
)

// SortOutputSections is S6: it extends unicornx-rvld's own rank()
// closure (passes.go) from "ELF header, program header, notes, then
// writable/exec/tls/bss grouping" into the full total order a
// dynamically-linked output needs — the interpreter and dynamic
// sections must precede the sections they describe, and .bss-like
// chunks must still sort after every byte-carrying chunk that shares
// their segment.
func SortOutputSections(ctx *Context) {
	rank := func(chunk Chunker) int32 {
		typ := chunk.GetShdr().Type
		flags := chunk.GetShdr().Flags

		switch chunk {
		case ctx.Ehdr:
			return 0
		case ctx.Phdr:
			return 1
		case Chunker(ctx.Interp):
			return 2
		}

		if chunk == Chunker(ctx.Shdr) {
			return math.MaxInt32
		}
		if flags&uint64(elf.SHF_ALLOC) == 0 {
			return math.MaxInt32 - 1
		}
		if typ == uint32(elf.SHT_NOTE) {
			return 3
		}

		b2i := func(b bool) int32 {
			if b {
				return 1
			}
			return 0
		}

		writeable := b2i(flags&uint64(elf.SHF_WRITE) != 0)
		notExec := b2i(flags&uint64(elf.SHF_EXECINSTR) == 0)
		notTls := b2i(flags&uint64(elf.SHF_TLS) == 0)
		isBss := b2i(typ == uint32(elf.SHT_NOBITS))
		notRelro := b2i(!isRelroChunk(ctx, chunk))

		return 10 + writeable<<7 + notExec<<6 + notTls<<5 + notRelro<<4 + isBss<<3
	}

	sort.SliceStable(ctx.Chunks, func(i, j int) bool {
		ri, rj := rank(ctx.Chunks[i]), rank(ctx.Chunks[j])
		if ri != rj {
			return ri < rj
		}
		if ctx.Target != nil && ctx.Target.Machine() == MachineTypePPC64 {
			return ppc64Rank(ctx.Chunks[i]) < ppc64Rank(ctx.Chunks[j])
		}
		return false
	})

	AssignShndx(ctx)
}

// ppc64Rank breaks ties among same-ranked chunks on PPC64: .opd's
// function descriptors must follow .toc/.toc1, which must follow
// .branch_lt, with .tocbss sorted ahead of everything else in its
// tier — the order the ABI's TOC-pointer-relative addressing needs.
func ppc64Rank(chunk Chunker) int {
	switch chunk.GetName() {
	case ".tocbss":
		return 0
	case ".branch_lt":
		return 2
	case ".toc":
		return 3
	case ".toc1":
		return 4
	case ".opd":
		return 5
	default:
		return 1
	}
}

// isRelroChunk reports whether a chunk belongs in the read-only-after-
// relocation segment: TLS sections, init/fini/preinit arrays,
// .ctors/.dtors/.jcr/.eh_frame, .dynamic, and .got always qualify;
// .got.plt only counts when -z now (ZNow) is set, since otherwise
// it's still being lazily patched by the PLT after relocation
// processing finishes.
func isRelroChunk(ctx *Context, chunk Chunker) bool {
	if chunk == Chunker(ctx.Dynamic) || chunk == Chunker(ctx.Got) {
		return true
	}
	if chunk == Chunker(ctx.GotPlt) {
		return ctx.Args.ZNow
	}

	shdr := chunk.GetShdr()
	if shdr.Flags&uint64(elf.SHF_TLS) != 0 {
		return true
	}
	switch shdr.Type {
	case uint32(elf.SHT_INIT_ARRAY), uint32(elf.SHT_FINI_ARRAY), uint32(elf.SHT_PREINIT_ARRAY):
		return true
	}

	switch chunk.GetName() {
	case ".data.rel.ro", ".bss.rel.ro", ".ctors", ".dtors", ".jcr", ".eh_frame":
		return true
	}
	return false
}

func isTbss(chunk Chunker) bool {
	shdr := chunk.GetShdr()
	return shdr.Type == uint32(elf.SHT_NOBITS) && shdr.Flags&uint64(elf.SHF_TLS) != 0
}

// AssignShndx fills in every chunk's section-header-table index once
// the final output order is fixed: chunks with no byte presence in
// the section-header table at all (the ELF header, program-header
// table) keep Shndx == 0, matching real section-index 0 meaning
// "none" in the symbol/relocation machinery.
func AssignShndx(ctx *Context) {
	idx := int64(1)
	for _, chunk := range ctx.Chunks {
		if chunk == Chunker(ctx.Ehdr) || chunk == Chunker(ctx.Phdr) {
			continue
		}
		chunk.SetShndx(idx)
		idx++
	}
}
