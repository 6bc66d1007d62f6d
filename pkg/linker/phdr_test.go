package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newAllocChunk(name string, addr, size, align uint64, flags elf.SectionFlag) *Chunk {
	c := NewChunk()
	c.Name = name
	c.Shdr.Flags = uint64(flags) | uint64(elf.SHF_ALLOC)
	c.Shdr.Addr = addr
	c.Shdr.Size = size
	c.Shdr.AddrAlign = align
	return &c
}

func TestCreatePhdrAlwaysHasPhdrAndStack(t *testing.T) {
	ctx := NewContext()
	ctx.Phdr = NewOutputPhdr()
	ctx.Args.ZExecStack = false

	phdrs := CreatePhdr(ctx)

	assert.EqualValues(t, elf.PT_PHDR, phdrs[0].Type)
	last := phdrs[len(phdrs)-1]
	assert.EqualValues(t, elf.PT_GNU_STACK, last.Type)
	assert.EqualValues(t, elf.PF_R|elf.PF_W, last.Flags, "non-executable stack by default")
}

func TestCreatePhdrExecStackFlag(t *testing.T) {
	ctx := NewContext()
	ctx.Phdr = NewOutputPhdr()
	ctx.Args.ZExecStack = true

	phdrs := CreatePhdr(ctx)
	last := phdrs[len(phdrs)-1]
	assert.EqualValues(t, elf.PF_R|elf.PF_W|elf.PF_X, last.Flags)
}

func TestCreatePhdrMergesContiguousSameFlagSections(t *testing.T) {
	ctx := NewContext()
	ctx.Phdr = NewOutputPhdr()
	text := newAllocChunk(".text", 0x1000, 0x100, 16, elf.SHF_EXECINSTR)
	plt := newAllocChunk(".plt", 0x1100, 0x50, 16, elf.SHF_EXECINSTR)
	ctx.Chunks = []Chunker{text, plt}

	phdrs := CreatePhdr(ctx)

	var loads []ProgramHeader
	for _, p := range phdrs {
		if p.Type == uint32(elf.PT_LOAD) {
			loads = append(loads, p)
		}
	}
	assert.Len(t, loads, 1, ".text and .plt share R+X flags and are contiguous, so merge into one PT_LOAD")
	assert.EqualValues(t, 0x1000, loads[0].VAddr)
	assert.EqualValues(t, 0x150, loads[0].MemSize, "segment spans both chunks")
}

func TestCreatePhdrSplitsOnFlagChange(t *testing.T) {
	ctx := NewContext()
	ctx.Phdr = NewOutputPhdr()
	text := newAllocChunk(".text", 0x1000, 0x100, 16, elf.SHF_EXECINSTR)
	data := newAllocChunk(".data", 0x2000, 0x50, 16, elf.SHF_WRITE)
	ctx.Chunks = []Chunker{text, data}

	phdrs := CreatePhdr(ctx)

	var loads []ProgramHeader
	for _, p := range phdrs {
		if p.Type == uint32(elf.PT_LOAD) {
			loads = append(loads, p)
		}
	}
	assert.Len(t, loads, 2, "exec and writable sections never share a PT_LOAD")
}

func TestCreatePhdrSetsTpAddrFromTlsSegment(t *testing.T) {
	ctx := NewContext()
	ctx.Phdr = NewOutputPhdr()
	tdata := newAllocChunk(".tdata", 0x3000, 0x20, 8, elf.SHF_WRITE|elf.SHF_TLS)
	ctx.Chunks = []Chunker{tdata}

	CreatePhdr(ctx)

	assert.EqualValues(t, 0x3000, ctx.TpAddr, "TpAddr must be the TLS segment's own address, not the trailing PT_GNU_STACK's")
}

func TestCreatePhdrOmitsDynamicWhenAbsent(t *testing.T) {
	ctx := NewContext()
	ctx.Phdr = NewOutputPhdr()

	phdrs := CreatePhdr(ctx)

	for _, p := range phdrs {
		assert.NotEqualValues(t, elf.PT_DYNAMIC, p.Type, "no PT_DYNAMIC in a static link")
	}
}
