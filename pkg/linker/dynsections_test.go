package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGotPltSectionReservesThreeHeaderSlots(t *testing.T) {
	g := NewGotPltSection()
	assert.EqualValues(t, 3*WordSize, g.Shdr.Size, ".got.plt starts with link_map/resolver reserved slots")

	sym := &Symbol{Name: "printf"}
	g.AddSymbol(sym)
	assert.EqualValues(t, 3, sym.GotPltIdx, "first PLT-bound symbol lands right after the header")
	assert.EqualValues(t, 4*WordSize, g.Shdr.Size)
}

func TestGotPltSectionCopyBufNilDynamic(t *testing.T) {
	ctx := NewContext()
	ctx.GotPlt = NewGotPltSection()
	ctx.GotPlt.Shdr.Offset = 0
	ctx.Buf = make([]byte, ctx.GotPlt.Shdr.Size)
	// ctx.Dynamic and ctx.Plt are both nil, as in a static link with no IFuncs touched
	assert.NotPanics(t, func() { ctx.GotPlt.CopyBuf(ctx) })
}

func TestPltSectionAddSymbolIsIdempotent(t *testing.T) {
	ctx := NewContext()
	ctx.GotPlt = NewGotPltSection()
	ctx.RelaPlt = NewRelaPltSection()
	ctx.Target = NewX86_64Target()
	p := NewPltSection()

	sym := &Symbol{Name: "malloc"}
	p.AddSymbol(ctx, sym)
	p.AddSymbol(ctx, sym)

	assert.Len(t, p.Syms, 1, "adding the same symbol twice only reserves one PLT slot")
	assert.Len(t, ctx.RelaPlt.Entries, 1)
	assert.True(t, sym.IsInPlt())
}

func TestElfHashKnownValues(t *testing.T) {
	assert.EqualValues(t, 0, elfHash(""), "empty name hashes to zero")
	assert.EqualValues(t, 0x61, elfHash("a"), "single byte with no high nibble to fold")
}

func TestGnuHashKnownValues(t *testing.T) {
	assert.EqualValues(t, 5381, gnuHash(""), "DJB seed with nothing folded in")
	assert.EqualValues(t, 5381*33+'a', gnuHash("a"))
}

func TestHashSectionSizingEmptyDynsym(t *testing.T) {
	ctx := NewContext()
	ctx.DynStrTab = NewStrtabSection(".dynstr", 0)
	ctx.DynSymTab = NewSymtabSection(".dynsym", ctx.DynStrTab, true)
	h := NewHashSection()

	h.UpdateShdr(ctx)

	// nsyms==1 (just the null symbol) -> nbucket floors at 1
	assert.EqualValues(t, uint64(2+1+1)*4, h.Shdr.Size)
}

func TestGnuHashSectionSizing(t *testing.T) {
	ctx := NewContext()
	ctx.DynStrTab = NewStrtabSection(".dynstr", 0)
	ctx.DynSymTab = NewSymtabSection(".dynsym", ctx.DynStrTab, true)
	ctx.DynSymTab.Symbols = append(ctx.DynSymTab.Symbols, &Symbol{Name: "foo"})
	g := NewGnuHashSection()

	g.UpdateShdr(ctx)

	nsyms := uint64(2)
	nbucket := nsyms
	expected := uint64(16) + 1*8 + nbucket*4 + nsyms*4
	assert.EqualValues(t, expected, g.Shdr.Size)
}
