package linker

import (
	"debug/elf"
	"unsafe"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// OutputEhdr is the ELF file header chunk, grounded on
// other_examples/dongAxis-rvld__outputehdr.go, generalized from a
// fixed RISC-V/ET_EXEC header to whatever machine/file-type the
// current link targets (ctx.Args.Emulation, ET_EXEC vs ET_DYN for
// -shared, ET_REL for -r).
type OutputEhdr struct {
	Chunk
}

func NewOutputEhdr() *OutputEhdr {
	return &OutputEhdr{
		Chunk: Chunk{
			Shdr: Shdr{
				Flags:     uint64(elf.SHF_ALLOC),
				Size:      uint64(EhdrSize),
				AddrAlign: 8,
			},
		},
	}
}

func GetEntryAddr(ctx *Context) uint64 {
	if ctx.Args.EntryAddr != 0 {
		return ctx.Args.EntryAddr
	}
	name := ctx.Args.EntrySym
	if name == "" {
		name = "_start"
	}
	if sym, ok := ctx.SymbolMap[name]; ok && !sym.IsUndefined() {
		return sym.GetAddr()
	}
	return 0
}

func getElfType(ctx *Context) uint16 {
	switch {
	case ctx.Args.Relocatable:
		return uint16(elf.ET_REL)
	case ctx.Args.Shared:
		return uint16(elf.ET_DYN)
	default:
		return uint16(elf.ET_EXEC)
	}
}

func (o *OutputEhdr) CopyBuf(ctx *Context) {
	ehdr := Ehdr{}
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	ehdr.Type = getElfType(ctx)
	ehdr.Machine = ctx.Args.Emulation.ElfMachine()
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Entry = GetEntryAddr(ctx)
	ehdr.PhOff = ctx.Phdr.Shdr.Offset
	ehdr.ShOff = ctx.Shdr.Shdr.Offset
	if ctx.Args.Emulation == MachineTypeRISCV64 {
		ehdr.Flags = getRISCVFlags(ctx)
	}
	ehdr.EhSize = uint16(EhdrSize)
	ehdr.PhEntSize = uint16(ProgramHeaderSize)
	ehdr.PhNum = uint16(ctx.Phdr.Shdr.Size) / uint16(ProgramHeaderSize)
	ehdr.ShEntSize = uint16(ShdrSize)
	ehdr.ShNum = uint16(ctx.Shdr.Shdr.Size) / uint16(ShdrSize)
	ehdr.ShStrndx = uint16(ctx.ShStrTab.GetShndx())

	utils.Write[Ehdr](ctx.Buf[o.Shdr.Offset:], ehdr)
}

func getRISCVFlags(ctx *Context) uint32 {
	flags := uint32(0)
	for _, obj := range ctx.Objs {
		if obj.GetEhdr().Flags&EF_RISCV_RVC != 0 {
			flags |= EF_RISCV_RVC
		}
	}
	return flags
}

// OutputShdr is the section-header table chunk. Grounded on
// other_examples/dongAxis-rvld__outputshdr.go; the Shndx-keyed write
// loop depends on chunk.go's GetShndx/SetShndx, which S6
// (order.go's AssignShndx) fills in before this chunk's UpdateShdr
// runs.
type OutputShdr struct {
	Chunk
}

func NewOutputShdr() *OutputShdr {
	o := &OutputShdr{Chunk: NewChunk()}
	o.Shdr.AddrAlign = 8
	return o
}

func (o *OutputShdr) UpdateShdr(ctx *Context) {
	n := int64(0)
	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > n {
			n = chunk.GetShndx()
		}
	}
	o.Shdr.Size = uint64(n+1) * uint64(unsafe.Sizeof(Shdr{}))
}

func (o *OutputShdr) CopyBuf(ctx *Context) {
	base := ctx.Buf[o.Shdr.Offset:]
	utils.Write[Shdr](base, Shdr{})

	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > 0 {
			utils.Write[Shdr](base[chunk.GetShndx()*int64(unsafe.Sizeof(Shdr{})):], *chunk.GetShdr())
		}
	}
}
