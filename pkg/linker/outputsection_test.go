package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOutputSectionReusesMatchingKey(t *testing.T) {
	ctx := NewContext()
	flags := uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)

	first := GetOutputSection(ctx, ".text", uint64(elf.SHT_PROGBITS), flags, 0, 0)
	second := GetOutputSection(ctx, ".text", uint64(elf.SHT_PROGBITS), flags, 0, 0)

	assert.Same(t, first, second, "same name/type/flags reuses the existing OutputSection")
	assert.Len(t, ctx.OutputSections, 1, "no duplicate registration")
}

func TestGetOutputSectionCanonicalizesName(t *testing.T) {
	ctx := NewContext()
	flags := uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)

	osec := GetOutputSection(ctx, ".text.foo", uint64(elf.SHT_PROGBITS), flags, 0, 0)

	assert.Equal(t, ".text", osec.Name, "GetOutputName folds .text.foo into .text")
}

func TestGetOutputSectionDistinguishesByFlags(t *testing.T) {
	ctx := NewContext()

	rw := GetOutputSection(ctx, ".data", uint64(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0, 0)
	ro := GetOutputSection(ctx, ".data", uint64(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC), 0, 0)

	assert.NotSame(t, rw, ro, "differing flags produce distinct OutputSections despite same name")
	assert.Len(t, ctx.OutputSections, 2)
}

func TestGetOutputSectionMasksGroupLinkOrderCompressed(t *testing.T) {
	ctx := NewContext()
	base := uint64(elf.SHF_ALLOC)

	plain := GetOutputSection(ctx, ".rodata", uint64(elf.SHT_PROGBITS), base, 0, 0)
	withGroup := GetOutputSection(ctx, ".rodata", uint64(elf.SHT_PROGBITS), base|uint64(elf.SHF_GROUP), 0, 0)

	assert.Same(t, plain, withGroup, "SHF_GROUP doesn't participate in the grouping key")

	withLinkOrder := GetOutputSection(ctx, ".rodata", uint64(elf.SHT_PROGBITS), base|uint64(elf.SHF_LINK_ORDER), 0, 0)
	assert.Same(t, plain, withLinkOrder, "SHF_LINK_ORDER doesn't participate in the grouping key")

	withCompressed := GetOutputSection(ctx, ".rodata", uint64(elf.SHT_PROGBITS), base|uint64(elf.SHF_COMPRESSED), 0, 0)
	assert.Same(t, plain, withCompressed, "SHF_COMPRESSED doesn't participate in the grouping key")
}

func TestGetOutputSectionKeysMergeSectionsByAlignment(t *testing.T) {
	ctx := NewContext()
	flags := uint64(elf.SHF_ALLOC | elf.SHF_MERGE | elf.SHF_STRINGS)

	small := GetOutputSection(ctx, ".rodata.str1.1", uint64(elf.SHT_PROGBITS), flags, 1, 1)
	large := GetOutputSection(ctx, ".rodata.str1.1", uint64(elf.SHT_PROGBITS), flags, 8, 8)

	assert.NotSame(t, small, large, "differing alignment splits otherwise-identical merge sections")
	assert.Equal(t, uint64(1), small.Shdr.AddrAlign)
	assert.Equal(t, uint64(8), large.Shdr.AddrAlign)
}

func TestGetOutputSectionCanonicalizesEhFrameOnX86_64(t *testing.T) {
	ctx := NewContext()
	ctx.Target = NewTargetForMachine(MachineTypeX86_64)
	flags := uint64(elf.SHF_ALLOC)

	osec := GetOutputSection(ctx, ".eh_frame", uint64(elf.SHT_PROGBITS), flags, 8, 0)

	assert.Equal(t, uint32(shtX86_64Unwind), osec.Shdr.Type)
}

func TestOutputSectionCopyBufSkipsNobits(t *testing.T) {
	ctx := NewContext()
	osec := NewOutputSection(".bss", uint32(elf.SHT_NOBITS), uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 0)
	ctx.Buf = make([]byte, 16)

	assert.NotPanics(t, func() { osec.CopyBuf(ctx) }, "NOBITS sections have no bytes to copy")
}
