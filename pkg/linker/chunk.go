package linker

// Chunker is every object that occupies a slot in the output file:
// synthetic chunks (ELF/program/section headers, GOT, PLT, dynamic
// tables) and OutputSections alike. Go has no base-class pointers, so
// the teacher's single abstract base becomes this interface.
type Chunker interface {
	GetName() string
	GetShdr() *Shdr
	UpdateShdr(ctx *Context)
	CopyBuf(ctx *Context)
	GetShndx() int64
	SetShndx(int64)
}

// Chunk is the shared struct every Chunker embeds. Shndx is assigned
// by S6 (SectionOrdering) once the final section order is known, and
// read back by S7/S8/S10 — the teacher's own comment flagged this
// field as apparently dead because its RISC-V-only course project
// never got far enough to assign shdr indices before emitting.
type Chunk struct {
	Name  string
	Shdr  Shdr
	Shndx int64
}

func NewChunk() Chunk {
	return Chunk{Shdr: Shdr{AddrAlign: 1}}
}

func (c *Chunk) GetName() string { return c.Name }

func (c *Chunk) GetShdr() *Shdr { return &c.Shdr }

func (c *Chunk) GetShndx() int64 { return c.Shndx }

func (c *Chunk) SetShndx(idx int64) { c.Shndx = idx }

func (c *Chunk) UpdateShdr(ctx *Context) {}

func (c *Chunk) CopyBuf(ctx *Context) {}
