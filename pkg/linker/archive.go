package linker

import (
	"strconv"
	"strings"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// ArHeader is the 60-byte fixed-width Unix ar member header every
// ".a" archive's members are framed in, per the common System V ar
// format GNU ar/ld both use.
type ArHeader struct {
	Name    [16]byte
	Mtime   [12]byte
	Uid     [6]byte
	Gid     [6]byte
	Mode    [8]byte
	Size    [10]byte
	Magic   [2]byte
}

const arHeaderSize = 60

func (h *ArHeader) IsStrtab() bool { return string(h.Name[:2]) == "//" }
func (h *ArHeader) IsSymtab() bool { return string(h.Name[:2]) == "/ " || h.Name[0] == '/' && h.Name[1] == 0 }

func (h *ArHeader) GetSize() int {
	s := strings.TrimSpace(string(h.Size[:]))
	n, err := strconv.Atoi(s)
	utils.MustNo(err)
	return n
}

// ReadName resolves a member's name, following the BSD/GNU
// "long-name table" convention: a name starting with "/" is an
// offset into the preceding "//" strtab member rather than a literal
// name, used whenever a name is too long for the 16-byte field.
func (h *ArHeader) ReadName(strtab []byte) string {
	name := string(h.Name[:])
	if strings.HasPrefix(name, "/") {
		off, err := strconv.Atoi(strings.TrimSpace(name[1:]))
		if err == nil && off >= 0 && off < len(strtab) {
			end := off
			for end < len(strtab) && strtab[end] != '\n' {
				end++
			}
			return strings.TrimSuffix(string(strtab[off:end]), "/")
		}
	}
	return strings.TrimRight(strings.TrimSuffix(name, "/"), " ")
}

// ReadArchiveMembers walks a ".a" file's member list and returns each
// object-file member as a *File, skipping the symbol-index ("/") and
// long-name ("//") special members GNU ar prepends.
func ReadArchiveMembers(file *File) []*File {
	contents := file.Contents
	utils.Assert(len(contents) >= 8 && string(contents[:8]) == "!<arch>\n")

	pos := 8
	var strtab []byte
	members := make([]*File, 0)

	for pos+arHeaderSize <= len(contents) {
		hdr := utils.Read[ArHeader](contents[pos:])
		size := hdr.GetSize()
		dataStart := pos + arHeaderSize
		dataEnd := dataStart + size
		if dataEnd > len(contents) {
			break
		}
		data := contents[dataStart:dataEnd]

		switch {
		case hdr.IsStrtab():
			strtab = data
		case hdr.IsSymtab():
			// archive symbol index, not needed: this core resolves
			// symbols by scanning every member's own symbol table.
		default:
			name := hdr.ReadName(strtab)
			members = append(members, &File{
				Name:     file.Name + "(" + name + ")",
				Contents: data,
				Parent:   file,
			})
		}

		pos = dataEnd
		if pos%2 != 0 {
			pos++ // members are 2-byte aligned, padded with '\n'
		}
	}

	return members
}
