package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackCommonSymbolsOrdersByDescendingAlignment(t *testing.T) {
	ctx := NewContext()
	ctx.Bss = NewOutputSection(".bss", uint32(elf.SHT_NOBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0)

	small := &Symbol{Name: "small", CommonSize: 1, CommonAlign: 1}
	big := &Symbol{Name: "big", CommonSize: 8, CommonAlign: 8}
	ctx.CommonSymbols = []*Symbol{small, big}

	packCommonSymbols(ctx)

	assert.EqualValues(t, 0, big.OffsetInBss, "highest-alignment symbol packs first")
	assert.EqualValues(t, 8, small.OffsetInBss, "lower-alignment symbol follows, no padding needed here")
	assert.EqualValues(t, 9, ctx.Bss.Shdr.Size, "bss grows to cover both commons")
	assert.EqualValues(t, 8, ctx.Bss.Shdr.AddrAlign, ".bss alignment picks up the widest common")
}

func TestPackCommonSymbolsStartsAfterExistingBssContent(t *testing.T) {
	ctx := NewContext()
	ctx.Bss = NewOutputSection(".bss", uint32(elf.SHT_NOBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0)
	ctx.Bss.Shdr.Size = 64 // already sized by ComputeSectionSizes for real .bss input sections

	sym := &Symbol{Name: "counter", CommonSize: 4, CommonAlign: 4}
	ctx.CommonSymbols = []*Symbol{sym}

	packCommonSymbols(ctx)

	assert.EqualValues(t, 64, sym.OffsetInBss, "common symbol is appended, not overlapped with real .bss data")
	assert.EqualValues(t, 68, ctx.Bss.Shdr.Size)
}

func TestPackCommonSymbolsNoOpWhenEmpty(t *testing.T) {
	ctx := NewContext()
	ctx.Bss = NewOutputSection(".bss", uint32(elf.SHT_NOBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0)
	ctx.Bss.Shdr.Size = 32

	packCommonSymbols(ctx)

	assert.EqualValues(t, 32, ctx.Bss.Shdr.Size, "no commons means .bss size is untouched")
}

func TestPackCopyRelSymbolsAppendsAfterCommons(t *testing.T) {
	ctx := NewContext()
	ctx.Bss = NewOutputSection(".bss", uint32(elf.SHT_NOBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0)
	ctx.Bss.Shdr.Size = 16
	ctx.RelaDyn = NewRelaDynSection()
	ctx.Target = NewX86_64Target()

	sym := &Symbol{Name: "extern_var", CommonSize: 8, CommonAlign: 8}
	ctx.CopyRelSymbols = []*Symbol{sym}

	packCopyRelSymbols(ctx)

	assert.EqualValues(t, 16, sym.OffsetInBss)
	assert.EqualValues(t, 24, ctx.Bss.Shdr.Size)
	assert.Len(t, ctx.RelaDyn.Entries, 1, "copy relocation is emitted for the reserved slot")
}
