package linker

import (
	"debug/elf"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// OutputSection groups every InputSection that maps to the same
// (name, type, flags) key, widened to also key on alignment for Merge
// sections (GetOutputName/GetOutputSection decide the key). Idx is
// this section's slot in ctx.OutputSections, fixed at creation time in
// GetOutputSection.
type OutputSection struct {
	Chunk
	Members []*InputSection
	Idx     uint32
}

func NewOutputSection(
	name string, typ uint32, flags uint64, idx uint32) *OutputSection {
	o := &OutputSection{Chunk: NewChunk()}
	o.Name = name
	o.Shdr.Type = typ
	o.Shdr.Flags = flags
	o.Idx = idx
	return o
}

func (o *OutputSection) CopyBuf(ctx *Context) {
	if o.Shdr.Type == uint32(elf.SHT_NOBITS) {
		return
	}

	base := ctx.Buf[o.Shdr.Offset:]
	for _, isec := range o.Members {
		isec.WriteTo(ctx, base[isec.Offset:])
	}
}

// GetOutputSection looks up (or creates) the OutputSection an input
// section with this name/type/flags/addralign/entsize belongs in,
// canonicalizing the name first (GetOutputName), masking off flags
// that don't participate in the grouping key, canonicalizing an
// x86_64 SHT_PROGBITS .eh_frame to SHT_X86_64_UNWIND so both section
// types coalesce, and, for SHF_MERGE sections, folding alignment into
// the key (two merge sections with different entry sizes or
// alignments can't share one fragment pool).
func GetOutputSection(
	ctx *Context, name string, typ, flags, addralign, entsize uint64) *OutputSection {
	name = GetOutputName(name, flags)
	flags = flags &^ uint64(elf.SHF_GROUP) &^
		uint64(elf.SHF_COMPRESSED) &^ uint64(elf.SHF_LINK_ORDER)

	if name == ".eh_frame" && typ == uint64(elf.SHT_PROGBITS) &&
		ctx.Target != nil && ctx.Target.Machine() == MachineTypeX86_64 {
		typ = shtX86_64Unwind
	}

	align := uint64(0)
	if flags&uint64(elf.SHF_MERGE) != 0 {
		align = utils.Max(addralign, entsize)
	}

	for _, osec := range ctx.OutputSections {
		if name != osec.Name || typ != uint64(osec.Shdr.Type) || flags != osec.Shdr.Flags {
			continue
		}
		if align != 0 && align != utils.Max(osec.Shdr.AddrAlign, osec.Shdr.EntSize) {
			continue
		}
		return osec
	}

	osec := NewOutputSection(name, uint32(typ), flags,
		uint32(len(ctx.OutputSections)))
	if flags&uint64(elf.SHF_MERGE) != 0 {
		osec.Shdr.AddrAlign = addralign
		osec.Shdr.EntSize = entsize
	}
	ctx.OutputSections = append(ctx.OutputSections, osec)
	return osec
}
