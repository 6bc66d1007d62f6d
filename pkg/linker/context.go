package linker

// Config holds every command-line-derived decision the core consults,
// matching spec.md §6's Config contract. It supersedes unicornx-rvld's
// narrower ContextArgs (its Output/Emulation/LibraryPaths fields keep
// their names here, so the teacher's own Args.Output/Args.Emulation/
// Args.LibraryPaths call sites still compile) the way a real fork would widen a
// course project's options struct into a production one.
type Config struct {
	Output       string
	Emulation    MachineType
	LibraryPaths []string

	Shared        bool
	Static        bool
	Relocatable   bool
	StripAll      bool
	DiscardAll    bool
	DiscardLocals bool
	DiscardNone   bool

	DynamicLinker string
	EntrySym      string
	EntryAddr     uint64
	SOName        string
	RPath         string
	NeededLibs    []string

	Mips64EL bool

	ZRelro      bool
	ZNow        bool
	ZExecStack  bool

	NoUndefined   bool
	NoInhibitExec bool
	ExportDynamic bool

	GnuHash  bool
	SysvHash bool

	PrintGcSections bool

	FirstElf *ObjectFile

	MipsGpDisp   string
	MipsLocalGp  string
}

func NewConfig() Config {
	return Config{
		Output:    "a.out",
		Emulation: MachineTypeNone,
		ZRelro:    true,
		GnuHash:   true,
	}
}

// Context is the OutputImage aggregate of spec.md §3: the root value
// every stage S1..S10 reads from and mutates, threaded by reference
// per §9's design note rather than kept as a package-level global the
// way the original C++ `Out<ELFT>::*`/`Config`/`Target` singletons are.
type Context struct {
	Args Config

	Buf []byte

	// Singleton chunks, named after spec.md §3's OutputImage field list.
	Ehdr       *OutputEhdr
	Phdr       *OutputPhdr
	Shdr       *OutputShdr
	Interp     *InterpSection
	Got        *GotSection
	GotPlt     *GotPltSection
	Plt        *PltSection
	RelaDyn    *RelaDynSection
	RelaPlt    *RelaPltSection
	Dynamic    *DynamicSection
	DynSymTab  *SymtabSection
	DynStrTab  *StrtabSection
	SymTab     *SymtabSection
	StrTab     *StrtabSection
	ShStrTab   *StrtabSection
	EhFrameHdr *EhFrameHdrSection
	HashTab    *HashSection
	GnuHashTab *GnuHashSection
	Bss        *OutputSection
	BssRelRo   *OutputSection
	Opd        *OutputSection
	MipsRldMap *OutputSection

	HasGotOffRel bool
	HasError     bool

	TpAddr          uint64
	ThreadBssOffset uint64

	OutputSections []*OutputSection

	Chunks []Chunker

	Objs           []*ObjectFile
	DSOs           []*SharedFile
	SymbolMap      map[string]*Symbol
	MergedSections []*MergedSection

	Target Target
	Script ScriptOracle

	CommonSymbols    []*Symbol
	CopyRelSymbols   []*Symbol
}

func NewContext() *Context {
	return &Context{
		Args:      NewConfig(),
		SymbolMap: make(map[string]*Symbol),
		Script:    NewDefaultScriptOracle(),
	}
}

// ReportUndefined implements spec.md §7's "Collected" error policy:
// undefined-symbol diagnostics accumulate on the context rather than
// aborting immediately, so S5 can finish the pass and let the caller
// decide (warn-and-continue under NoInhibitExec, hard failure
// otherwise) before any bytes are written.
func (ctx *Context) ReportUndefined(msg string) {
	ctx.HasError = true
	println("rvld64: " + msg)
}

func (ctx *Context) IsOutputDynamic() bool {
	return ctx.Args.Shared || len(ctx.DSOs) > 0
}
