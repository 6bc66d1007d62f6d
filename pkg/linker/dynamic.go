package linker

import (
	"debug/elf"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// dynTagEntry is one DT_* tag/value pair; DynamicSection builds up a
// slice of these across S7 finalize and writes them verbatim, mirroring
// how lld's DynamicSection<ELFT>::finalize()/writeTo() separate
// "decide the tags" from "lay out the bytes" (Writer.cpp names this
// type explicitly as DynamicSection<ELFT>).
type dynTagEntry struct {
	Tag int64
	Val uint64
}

type DynamicSection struct {
	Chunk
	entries []dynTagEntry
}

func NewDynamicSection() *DynamicSection {
	d := &DynamicSection{Chunk: NewChunk()}
	d.Name = ".dynamic"
	d.Shdr.Type = uint32(elf.SHT_DYNAMIC)
	d.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	d.Shdr.EntSize = 16
	d.Shdr.AddrAlign = 8
	return d
}

func (d *DynamicSection) add(tag int64, val uint64) {
	d.entries = append(d.entries, dynTagEntry{Tag: tag, Val: val})
}

// UpdateShdr rebuilds the tag list from the final state of every
// other dynamic-linking chunk; it must run after .dynsym/.dynstr/
// .rela.dyn/.rela.plt/.got.plt/.hash have all been finalized (S7's
// ordering rule), since several tags embed their peers' final
// address or size. S7 fixes the tag count and sizes;
// SetOutputSectionOffsets calls it again once addresses exist.
func (d *DynamicSection) UpdateShdr(ctx *Context) {
	d.entries = d.entries[:0]

	for _, name := range ctx.Args.NeededLibs {
		d.add(int64(elf.DT_NEEDED), uint64(ctx.DynStrTab.Add(name)))
	}
	if ctx.Args.SOName != "" {
		d.add(int64(elf.DT_SONAME), uint64(ctx.DynStrTab.Add(ctx.Args.SOName)))
	}
	if ctx.Args.RPath != "" {
		d.add(int64(elf.DT_RUNPATH), uint64(ctx.DynStrTab.Add(ctx.Args.RPath)))
	}

	if ctx.DynSymTab != nil {
		d.add(int64(elf.DT_SYMTAB), ctx.DynSymTab.Shdr.Addr)
		d.add(int64(elf.DT_SYMENT), SymSize)
	}
	if ctx.DynStrTab != nil {
		d.add(int64(elf.DT_STRTAB), ctx.DynStrTab.Shdr.Addr)
		d.add(int64(elf.DT_STRSZ), ctx.DynStrTab.Shdr.Size)
	}
	if ctx.Args.GnuHash && ctx.GnuHashTab != nil {
		d.add(int64(elf.DT_GNU_HASH), ctx.GnuHashTab.Shdr.Addr)
	}
	if ctx.Args.SysvHash && ctx.HashTab != nil {
		d.add(int64(elf.DT_HASH), ctx.HashTab.Shdr.Addr)
	}

	if ctx.RelaDyn != nil && len(ctx.RelaDyn.Entries) > 0 {
		d.add(int64(elf.DT_RELA), ctx.RelaDyn.Shdr.Addr)
		d.add(int64(elf.DT_RELASZ), ctx.RelaDyn.Shdr.Size)
		d.add(int64(elf.DT_RELAENT), RelaSize)
	}
	if ctx.RelaPlt != nil && len(ctx.RelaPlt.Entries) > 0 {
		d.add(int64(elf.DT_JMPREL), ctx.RelaPlt.Shdr.Addr)
		d.add(int64(elf.DT_PLTRELSZ), ctx.RelaPlt.Shdr.Size)
		d.add(int64(elf.DT_PLTREL), uint64(elf.DT_RELA))
	}
	if ctx.GotPlt != nil {
		d.add(int64(elf.DT_PLTGOT), ctx.GotPlt.Shdr.Addr)
	}

	if ctx.Args.ZNow {
		d.add(int64(elf.DT_BIND_NOW), 0)
		d.add(int64(elf.DT_FLAGS_1), uint64(elf.DF_1_NOW))
	}

	d.add(int64(elf.DT_NULL), 0)
	d.Shdr.Size = uint64(len(d.entries)) * 16
}

func (d *DynamicSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[d.Shdr.Offset:]
	for i, ent := range d.entries {
		utils.Write[int64](buf[i*16:], ent.Tag)
		utils.Write[uint64](buf[i*16+8:], ent.Val)
	}
}
