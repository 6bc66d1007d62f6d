package linker

import (
	"debug/elf"
	"github.com/real-xidaozu/llvm-project/pkg/utils"
	"sort"
)

type MergedSection struct {
	Chunk
	Map map[string]*SectionFragment
}

func NewMergedSection(
	name string, flags uint64, typ uint32) *MergedSection {
	m := &MergedSection{
		Chunk: NewChunk(),
		Map:   make(map[string]*SectionFragment),
	}

	m.Name = name
	m.Shdr.Flags = flags
	m.Shdr.Type = typ
	return m
}

// GetMergedSectionInstance is GetOutputSection's sibling for
// SHF_MERGE input: ctx.MergedSections holds one MergedSection per
// (name, type, flags) key, and, like GetOutputSection, alignment folds
// into that key too — two merge pools built from sections with
// different sh_addralign/sh_entsize can't share one fragment map, or
// a fragment's final offset would no longer satisfy every contributing
// section's alignment.
func GetMergedSectionInstance(
	ctx *Context, name string, typ uint32, flags, addralign, entsize uint64) *MergedSection {
	name = GetOutputName(name, flags)

	flags = flags & ^uint64(elf.SHF_GROUP) & ^uint64(elf.SHF_MERGE) &
		^uint64(elf.SHF_STRINGS) & ^uint64(elf.SHF_COMPRESSED)
	align := utils.Max(addralign, entsize)

	for _, osec := range ctx.MergedSections {
		if name == osec.Name && flags == osec.Shdr.Flags &&
			typ == osec.Shdr.Type && align == utils.Max(osec.Shdr.AddrAlign, osec.Shdr.EntSize) {
			return osec
		}
	}

	osec := NewMergedSection(name, flags, typ)
	osec.Shdr.AddrAlign = addralign
	osec.Shdr.EntSize = entsize
	ctx.MergedSections = append(ctx.MergedSections, osec)
	return osec
}

// Insert interns key (a null-terminated string or fixed-size record)
// into the fragment map, raising the fragment's alignment to the
// widest one requested by any contributing input section.
func (m *MergedSection) Insert(
	key string, p2align uint32) *SectionFragment {
	frag, ok := m.Map[key]
	if !ok {
		frag = NewSectionFragment(m)
		m.Map[key] = frag
	}

	if frag.P2Align < p2align {
		frag.P2Align = p2align
	}

	return frag
}

func (m *MergedSection) AssignOffsets() {
	var fragments []struct {
		Key string
		Val *SectionFragment
	}

	for key := range m.Map {
		fragments = append(fragments, struct {
			Key string
			Val *SectionFragment
		}{Key: key, Val: m.Map[key]})
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		x := fragments[i]
		y := fragments[j]
		if x.Val.P2Align != y.Val.P2Align {
			return x.Val.P2Align < y.Val.P2Align
		}
		if len(x.Key) != len(y.Key) {
			return len(x.Key) < len(y.Key)
		}

		return x.Key < y.Key
	})

	offset := uint64(0)
	p2align := uint64(0)
	for _, frag := range fragments {
		offset = utils.AlignTo(offset, 1<<frag.Val.P2Align)
		frag.Val.Offset = uint32(offset)
		offset += uint64(len(frag.Key))
		if p2align < uint64(frag.Val.P2Align) {
			p2align = uint64(frag.Val.P2Align)
		}
	}

	m.Shdr.Size = utils.AlignTo(offset, 1<<p2align)
	m.Shdr.AddrAlign = 1 << p2align
}

func (m *MergedSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[m.Shdr.Offset:]
	for key := range m.Map {
		if frag, ok := m.Map[key]; ok {
			copy(buf[frag.Offset:], key)
		}
	}
}
