package linker

import (
	"debug/elf"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// OutputPhdr synthesizes the program-header table, grounded on
// AimiP02-tinyLinker's outputphdr.go (CreatePhdr's define/push
// contiguous-run algorithm) and extended with the PT_INTERP,
// PT_DYNAMIC, PT_GNU_RELRO, PT_GNU_EH_FRAME, PT_GNU_STACK and
// AMDGPU PT_LOAD substitution entries that course project never
// needed because it only ever produced static RISC-V executables.
type OutputPhdr struct {
	Chunk
	Phdrs []ProgramHeader
}

func NewOutputPhdr() *OutputPhdr {
	o := &OutputPhdr{Chunk: NewChunk()}
	o.Shdr.Flags = uint64(elf.SHF_ALLOC)
	o.Shdr.AddrAlign = 8
	return o
}

func ToPhdrFlags(chunk Chunker) uint32 {
	ret := uint32(elf.PF_R)
	if chunk.GetShdr().Flags&uint64(elf.SHF_WRITE) != 0 {
		ret |= uint32(elf.PF_W)
	}
	if chunk.GetShdr().Flags&uint64(elf.SHF_EXECINSTR) != 0 {
		ret |= uint32(elf.PF_X)
	}
	return ret
}

// amdgpuLoadType decides whether a PT_LOAD segment should be emitted
// as a plain PT_LOAD or substituted for one of the AMDGPU HSA
// loader's custom segment types, per the HSA_AGENT/HSA_GLOBAL section
// flags a kernel-code or global-data section carries; at most one of
// the two flags may be set on a given chunk.
func amdgpuLoadType(chunk Chunker) uint32 {
	flags := chunk.GetShdr().Flags
	agent := flags&SHF_AMDGPU_HSA_AGENT != 0
	global := flags&SHF_AMDGPU_HSA_GLOBAL != 0
	utils.Assert(!(agent && global))
	switch {
	case agent:
		return PT_AMDGPU_HSA_LOAD_CODE_AGENT
	case global:
		return PT_AMDGPU_HSA_LOAD_GLOBAL_PROGRAM
	default:
		return uint32(elf.PT_LOAD)
	}
}

func CreatePhdr(ctx *Context) []ProgramHeader {
	vec := make([]ProgramHeader, 0)

	define := func(typ, flags uint32, minAlign uint64, chunk Chunker) {
		vec = append(vec, ProgramHeader{})
		phdr := &vec[len(vec)-1]
		phdr.Type = typ
		phdr.Flags = flags
		phdr.Align = utils.Max(minAlign, chunk.GetShdr().AddrAlign)
		phdr.Offset = chunk.GetShdr().Offset
		if chunk.GetShdr().Type == uint32(elf.SHT_NOBITS) {
			phdr.FileSize = 0
		} else {
			phdr.FileSize = chunk.GetShdr().Size
		}
		phdr.VAddr = chunk.GetShdr().Addr
		phdr.PAddr = chunk.GetShdr().Addr
		phdr.MemSize = chunk.GetShdr().Size
	}

	push := func(chunk Chunker) {
		phdr := &vec[len(vec)-1]
		phdr.Align = utils.Max(phdr.Align, chunk.GetShdr().AddrAlign)
		if chunk.GetShdr().Type != uint32(elf.SHT_NOBITS) {
			phdr.FileSize = chunk.GetShdr().Addr + chunk.GetShdr().Size - phdr.VAddr
		}
		phdr.MemSize = chunk.GetShdr().Addr + chunk.GetShdr().Size - phdr.VAddr
	}

	isTls := func(c Chunker) bool { return c.GetShdr().Flags&uint64(elf.SHF_TLS) != 0 }
	isBss := func(c Chunker) bool {
		return c.GetShdr().Type == uint32(elf.SHT_NOBITS) && !isTls(c)
	}
	isNote := func(c Chunker) bool {
		shdr := c.GetShdr()
		return shdr.Type == uint32(elf.SHT_NOTE) && shdr.Flags&uint64(elf.SHF_ALLOC) != 0
	}
	isRelro := func(c Chunker) bool { return isRelroChunk(ctx, c) }

	define(uint32(elf.PT_PHDR), uint32(elf.PF_R), 8, ctx.Phdr)

	if ctx.Interp != nil {
		define(uint32(elf.PT_INTERP), uint32(elf.PF_R), 1, ctx.Interp)
	}

	{
		end := len(ctx.Chunks)
		for i := 0; i < end; {
			first := ctx.Chunks[i]
			i++
			if !isNote(first) {
				continue
			}
			flags := ToPhdrFlags(first)
			define(uint32(elf.PT_NOTE), flags, first.GetShdr().AddrAlign, first)
			for i < end && isNote(ctx.Chunks[i]) && ToPhdrFlags(ctx.Chunks[i]) == flags {
				push(ctx.Chunks[i])
				i++
			}
		}
	}

	{
		chunks := utils.RemoveIf(append([]Chunker{}, ctx.Chunks...), isTbss)

		end := len(chunks)
		for i := 0; i < end; {
			first := chunks[i]
			i++
			if first.GetShdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
				break
			}

			flags := ToPhdrFlags(first)
			loadType := amdgpuLoadType(first)
			define(loadType, flags, PageSize, first)

			if !isBss(first) {
				for i < end && !isBss(chunks[i]) && ToPhdrFlags(chunks[i]) == flags &&
					amdgpuLoadType(chunks[i]) == loadType {
					push(chunks[i])
					i++
				}
			}

			for i < end && isBss(chunks[i]) && ToPhdrFlags(chunks[i]) == flags {
				push(chunks[i])
				i++
			}
		}
	}

	for i := 0; i < len(ctx.Chunks); i++ {
		if !isTls(ctx.Chunks[i]) {
			continue
		}
		define(uint32(elf.PT_TLS), ToPhdrFlags(ctx.Chunks[i]), 1, ctx.Chunks[i])
		i++
		for i < len(ctx.Chunks) && isTls(ctx.Chunks[i]) {
			push(ctx.Chunks[i])
			i++
		}
		ctx.TpAddr = vec[len(vec)-1].VAddr
	}

	if ctx.Dynamic != nil && ctx.Dynamic.Shdr.Size > 0 {
		define(uint32(elf.PT_DYNAMIC), uint32(elf.PF_R|elf.PF_W), 8, ctx.Dynamic)
	}

	if ctx.Args.ZRelro {
		relroChunks := make([]Chunker, 0)
		for _, c := range ctx.Chunks {
			if c.GetShdr().Flags&uint64(elf.SHF_ALLOC) != 0 && isRelro(c) {
				relroChunks = append(relroChunks, c)
			}
		}
		if len(relroChunks) > 0 {
			define(uint32(elf.PT_GNU_RELRO), uint32(elf.PF_R), 1, relroChunks[0])
			for _, c := range relroChunks[1:] {
				push(c)
			}
		}
	}

	if ctx.EhFrameHdr != nil && ctx.EhFrameHdr.Shdr.Size > 0 {
		define(uint32(elf.PT_GNU_EH_FRAME), uint32(elf.PF_R), 4, ctx.EhFrameHdr)
	}

	stackFlags := uint32(elf.PF_R | elf.PF_W)
	if ctx.Args.ZExecStack {
		stackFlags |= uint32(elf.PF_X)
	}
	vec = append(vec, ProgramHeader{Type: uint32(elf.PT_GNU_STACK), Flags: stackFlags, Align: 16})

	return vec
}

func (o *OutputPhdr) UpdateShdr(ctx *Context) {
	o.Phdrs = CreatePhdr(ctx)
	o.Shdr.Size = uint64(len(o.Phdrs)) * uint64(ProgramHeaderSize)
}

func (o *OutputPhdr) CopyBuf(ctx *Context) {
	buf := ctx.Buf[o.Shdr.Offset:]
	for i, p := range o.Phdrs {
		utils.Write[ProgramHeader](buf[i*ProgramHeaderSize:], p)
	}
}
