package linker

// ScriptOracle describes the questions a linker-script SECTIONS/PHDRS
// directive would answer about section order and load address. This
// core implements no script language, and neither S6 (order.go) nor
// S9 (SetOutputSectionOffsets) calls these methods: the built-in order
// and ImageBase are always used, whatever an oracle returns.
type ScriptOracle interface {
	// SectionOrder returns an explicit output-section order, or nil
	// when no script-driven order applies and the default S6 order
	// (order.go) should be used.
	SectionOrder() []string

	// BaseAddress returns a script-provided load address override, or
	// (0, false) when S9 should fall back to ImageBase.
	BaseAddress() (uint64, bool)
}

type defaultScriptOracle struct{}

func NewDefaultScriptOracle() ScriptOracle { return defaultScriptOracle{} }

func (defaultScriptOracle) SectionOrder() []string        { return nil }
func (defaultScriptOracle) BaseAddress() (uint64, bool)   { return 0, false }
