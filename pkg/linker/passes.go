package linker

import (
	"debug/elf"
	"math"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// ResolveSymbols is S1's second half: every object file's global
// symbol references get resolved against the symbol table Parse()
// already populated, dead archive members are dropped, and the
// surviving Context::Objs are exactly the files that make it into
// the link.
func ResolveSymbols(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ResolveSymbols(ctx)
	}
	for _, dso := range ctx.DSOs {
		dso.ResolveSymbols(ctx)
	}

	MarkLiveObjects(ctx)

	for _, file := range ctx.Objs {
		if !file.IsAlive {
			file.ClearSymbols()
		}
	}

	ctx.Objs = utils.RemoveIf[*ObjectFile](ctx.Objs, func(file *ObjectFile) bool {
		return !file.IsAlive
	})
}

func MarkLiveObjects(ctx *Context) {
	roots := make([]*ObjectFile, 0)

	for _, file := range ctx.Objs {
		if file.IsAlive {
			roots = append(roots, file)
		}
	}

	utils.Assert(len(roots) > 0)

	for len(roots) > 0 {
		file := roots[0]

		if !file.IsAlive {
			roots = roots[1:]
			continue
		}

		file.MarkLiveObjects(func(file *ObjectFile) {
			roots = append(roots, file)
		})

		roots = roots[1:]
	}
}

func RegisterSectionPieces(ctx *Context) {
	for _, file := range ctx.Objs {
		file.RegisterSectionPieces()
	}
}

// interpPath picks the dynamic-linker pathname CreateSyntheticSections
// bakes into .interp: whatever -dynamic-linker gave explicitly, or the
// glibc convention for the target machine otherwise.
func interpPath(ctx *Context) string {
	if ctx.Args.DynamicLinker != "" {
		return ctx.Args.DynamicLinker
	}
	switch ctx.Args.Emulation {
	case MachineTypeX86_64:
		return "/lib64/ld-linux-x86-64.so.2"
	case MachineTypeRISCV64:
		return "/lib/ld-linux-riscv64-lp64d.so.1"
	default:
		return "/lib64/ld-linux.so.2"
	}
}

// CreateSyntheticSections is S3: every chunk that doesn't come from an
// input file gets instantiated and pushed onto Context::Chunks here.
// The GOT/PLT/relocation family is always created; only the
// dynamic-linking chunks (.interp, .dynstr, .dynsym, .dynamic and the
// hash tables) depend on whether this link produces a
// dynamically-linked output.
func CreateSyntheticSections(ctx *Context) {
	push := func(chunk Chunker) Chunker {
		ctx.Chunks = append(ctx.Chunks, chunk)
		return chunk
	}

	ctx.Ehdr = push(NewOutputEhdr()).(*OutputEhdr)
	ctx.Phdr = push(NewOutputPhdr()).(*OutputPhdr)
	ctx.Shdr = push(NewOutputShdr()).(*OutputShdr)

	ctx.ShStrTab = push(NewStrtabSection(".shstrtab", 0)).(*StrtabSection)
	ctx.StrTab = push(NewStrtabSection(".strtab", 0)).(*StrtabSection)
	ctx.SymTab = push(NewSymtabSection(".symtab", ctx.StrTab, false)).(*SymtabSection)

	ctx.Bss = GetOutputSection(ctx, ".bss", uint64(elf.SHT_NOBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0, 0)
	ctx.BssRelRo = GetOutputSection(ctx, ".bss.rel.ro", uint64(elf.SHT_NOBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0, 0)

	// Got/GotPlt/Plt/RelaDyn/RelaPlt exist even in a static link: an
	// IFUNC still needs an IRELATIVE slot resolved by the static
	// runtime's startup code, not just by ld.so.
	ctx.Got = push(NewGotSection()).(*GotSection)
	ctx.GotPlt = push(NewGotPltSection()).(*GotPltSection)
	ctx.Plt = push(NewPltSection()).(*PltSection)
	ctx.RelaDyn = push(NewRelaDynSection()).(*RelaDynSection)
	ctx.RelaPlt = push(NewRelaPltSection()).(*RelaPltSection)

	if ctx.Args.DynamicLinker != "" || ctx.IsOutputDynamic() && !ctx.Args.Shared {
		ctx.Interp = push(NewInterpSection(interpPath(ctx))).(*InterpSection)
	}

	if ctx.IsOutputDynamic() {
		ctx.DynStrTab = push(NewStrtabSection(".dynstr", uint64(elf.SHF_ALLOC))).(*StrtabSection)
		ctx.DynSymTab = push(NewSymtabSection(".dynsym", ctx.DynStrTab, true)).(*SymtabSection)
		ctx.Dynamic = push(NewDynamicSection()).(*DynamicSection)

		if ctx.Args.GnuHash {
			ctx.GnuHashTab = push(NewGnuHashSection()).(*GnuHashSection)
		}
		if ctx.Args.SysvHash {
			ctx.HashTab = push(NewHashSection()).(*HashSection)
		}
	}

	ctx.EhFrameHdr = push(NewEhFrameHdrSection()).(*EhFrameHdrSection)
}

func BinSections(ctx *Context) {
	group := make([][]*InputSection, len(ctx.OutputSections))
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive {
				continue
			}

			idx := isec.OutputSection.Idx
			group[idx] = append(group[idx], isec)
		}
	}

	for idx, osec := range ctx.OutputSections {
		osec.Members = group[idx]
	}
}

func CollectOutputSections(ctx *Context) []Chunker {
	osecs := make([]Chunker, 0)
	for _, osec := range ctx.OutputSections {
		if len(osec.Members) > 0 || osec == ctx.Bss || osec == ctx.BssRelRo {
			osecs = append(osecs, osec)
		}
	}

	for _, osec := range ctx.MergedSections {
		if osec.Shdr.Size > 0 {
			osecs = append(osecs, osec)
		}
	}

	return osecs
}

func ComputeSectionSizes(ctx *Context) {
	for _, osec := range ctx.OutputSections {
		offset := uint64(0)
		p2align := int64(0)

		for _, isec := range osec.Members {
			offset = utils.AlignTo(offset, 1<<isec.P2Align)
			isec.Offset = uint32(offset)
			offset += uint64(isec.ShSize)
			p2align = int64(math.Max(float64(p2align), float64(isec.P2Align)))
		}

		osec.Shdr.Size = offset
		osec.Shdr.AddrAlign = utils.Max(osec.Shdr.AddrAlign, uint64(1)<<p2align)
	}
}

func ComputeMergedSectionSizes(ctx *Context) {
	for _, osec := range ctx.MergedSections {
		osec.AssignOffsets()
	}
}

func SetOutputSectionOffsets(ctx *Context) uint64 {
	addr := uint64(ImageBase)
	for _, chunk := range ctx.Chunks {
		if chunk.GetShdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}

		addr = utils.AlignTo(addr, chunk.GetShdr().AddrAlign)
		chunk.GetShdr().Addr = addr

		if !isTbss(chunk) {
			addr += chunk.GetShdr().Size
		}
	}

	i := 0
	first := ctx.Chunks[0]
	for {
		shdr := ctx.Chunks[i].GetShdr()
		shdr.Offset = shdr.Addr - first.GetShdr().Addr
		i++

		if i >= len(ctx.Chunks) ||
			ctx.Chunks[i].GetShdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
			break
		}
	}

	lastShdr := ctx.Chunks[i-1].GetShdr()
	fileoff := lastShdr.Offset + lastShdr.Size

	for ; i < len(ctx.Chunks); i++ {
		shdr := ctx.Chunks[i].GetShdr()
		fileoff = utils.AlignTo(fileoff, shdr.AddrAlign)
		shdr.Offset = fileoff
		fileoff += shdr.Size
	}

	if ctx.Dynamic != nil {
		ctx.Dynamic.UpdateShdr(ctx)
	}
	ctx.Phdr.UpdateShdr(ctx)
	return fileoff
}
