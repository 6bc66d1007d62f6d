package linker

import "math"

// SectionFragment is one entry of a split SHF_MERGE input section — a
// deduplicated string or fixed-size record living at some Offset
// inside its parent MergedSection. IsAlive tracks liveness at this
// finest granularity, below InputFile and InputSection.
type SectionFragment struct {
	OutputSection *MergedSection
	Offset        uint32
	P2Align       uint32
	IsAlive       bool
}

// Offset starts at an out-of-range sentinel; AssignOffsets must run
// before GetAddr is meaningful.
func NewSectionFragment(m *MergedSection) *SectionFragment {
	return &SectionFragment{
		OutputSection: m,
		Offset:        math.MaxUint32,
	}
}

func (s *SectionFragment) GetAddr() uint64 {
	return s.OutputSection.Shdr.Addr + uint64(s.Offset)
}
