package linker

import "sort"

// MergeableSection holds the result of splitting an SHF_MERGE input
// section — Strs is each split element (a null-terminated string, for
// SHF_STRINGS sections, or a fixed-size record otherwise), FragOffsets
// is that element's starting byte offset within the original section,
// and Fragments is the interned SectionFragment each element resolved
// to in Parent's fragment map.
type MergeableSection struct {
	Parent      *MergedSection
	P2Align     uint8
	Strs        []string
	FragOffsets []uint32
	Fragments   []*SectionFragment
}

func (m *MergeableSection) GetFragment(offset uint32) (*SectionFragment, uint32) {
	pos := sort.Search(len(m.FragOffsets), func(i int) bool {
		return offset < m.FragOffsets[i]
	})

	if pos == 0 {
		return nil, 0
	}

	idx := pos - 1
	return m.Fragments[idx], offset - m.FragOffsets[idx]
}
