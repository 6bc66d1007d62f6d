package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestChunk(name string, typ elf.SectionType, flags elf.SectionFlag) *Chunk {
	c := NewChunk()
	c.Name = name
	c.Shdr.Type = uint32(typ)
	c.Shdr.Flags = uint64(flags)
	return &c
}

func TestAssignShndxSkipsEhdrAndPhdr(t *testing.T) {
	ctx := NewContext()
	ctx.Ehdr = NewOutputEhdr()
	ctx.Phdr = NewOutputPhdr()
	text := newTestChunk(".text", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR)

	ctx.Chunks = []Chunker{ctx.Ehdr, ctx.Phdr, text}
	AssignShndx(ctx)

	assert.EqualValues(t, 0, ctx.Ehdr.GetShndx(), "ehdr keeps shndx 0")
	assert.EqualValues(t, 0, ctx.Phdr.GetShndx(), "phdr keeps shndx 0")
	assert.EqualValues(t, 1, text.GetShndx(), "first real section gets shndx 1")
}

func TestIsRelroChunk(t *testing.T) {
	ctx := NewContext()
	ctx.Dynamic = NewDynamicSection()
	ctx.Got = NewGotSection()
	ctx.GotPlt = NewGotPltSection()
	relro := newTestChunk(".data.rel.ro", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	plain := newTestChunk(".data", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	tdata := newTestChunk(".tdata", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE|elf.SHF_TLS)
	ctors := newTestChunk(".ctors", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	initArray := newTestChunk(".init_array", elf.SHT_INIT_ARRAY, elf.SHF_ALLOC|elf.SHF_WRITE)

	assert.True(t, isRelroChunk(ctx, ctx.Dynamic), ".dynamic is relro")
	assert.True(t, isRelroChunk(ctx, ctx.Got), ".got is relro")
	assert.True(t, isRelroChunk(ctx, relro), ".data.rel.ro is relro by name")
	assert.True(t, isRelroChunk(ctx, tdata), "TLS sections are relro")
	assert.True(t, isRelroChunk(ctx, ctors), ".ctors is relro")
	assert.True(t, isRelroChunk(ctx, initArray), ".init_array is relro")
	assert.False(t, isRelroChunk(ctx, plain), ".data is not relro")

	assert.False(t, isRelroChunk(ctx, ctx.GotPlt), ".got.plt is not relro without -z now")
	ctx.Args.ZNow = true
	assert.True(t, isRelroChunk(ctx, ctx.GotPlt), ".got.plt is relro under -z now")
}

func TestIsTbss(t *testing.T) {
	tbss := newTestChunk(".tbss", elf.SHT_NOBITS, elf.SHF_ALLOC|elf.SHF_WRITE|elf.SHF_TLS)
	bss := newTestChunk(".bss", elf.SHT_NOBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	tdata := newTestChunk(".tdata", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE|elf.SHF_TLS)

	assert.True(t, isTbss(tbss), ".tbss is NOBITS+TLS")
	assert.False(t, isTbss(bss), ".bss has no TLS flag")
	assert.False(t, isTbss(tdata), ".tdata is not NOBITS")
}

func TestSortOutputSectionsOrdersHeadersFirst(t *testing.T) {
	ctx := NewContext()
	ctx.Ehdr = NewOutputEhdr()
	ctx.Phdr = NewOutputPhdr()
	ctx.Shdr = NewOutputShdr()

	text := newTestChunk(".text", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR)
	data := newTestChunk(".data", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	bss := newTestChunk(".bss", elf.SHT_NOBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	nonAlloc := newTestChunk(".comment", elf.SHT_PROGBITS, 0)

	ctx.Chunks = []Chunker{bss, nonAlloc, data, text, ctx.Shdr, ctx.Phdr, ctx.Ehdr}
	SortOutputSections(ctx)

	assert.Same(t, Chunker(ctx.Ehdr), ctx.Chunks[0], "ehdr sorts first")
	assert.Same(t, Chunker(ctx.Phdr), ctx.Chunks[1], "phdr sorts second")
	assert.Same(t, Chunker(text), ctx.Chunks[2], "exec section sorts before writable data")
	assert.Same(t, Chunker(data), ctx.Chunks[3], "data sorts before bss")
	assert.Same(t, Chunker(bss), ctx.Chunks[4], "bss sorts after data, before non-alloc")
	assert.Same(t, Chunker(nonAlloc), ctx.Chunks[5], "non-alloc sorts after every alloc section")
	assert.Same(t, Chunker(ctx.Shdr), ctx.Chunks[6], "shdr sorts last of all")
}
