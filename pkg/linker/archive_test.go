package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func padRight(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

func arMember(name []byte, size int) []byte {
	hdr := make([]byte, arHeaderSize)
	copy(hdr[0:16], name)
	copy(hdr[16:28], padRight("0", 12))  // Mtime
	copy(hdr[28:34], padRight("0", 6))   // Uid
	copy(hdr[34:40], padRight("0", 6))   // Gid
	copy(hdr[40:48], padRight("0", 8))   // Mode
	copy(hdr[48:58], padRight(itoa(size), 10))
	hdr[58] = '`'
	hdr[59] = '\n'
	return hdr
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// buildArchive assembles a minimal Unix ar file: an optional "//"
// long-name-table member followed by object members, each 2-byte
// aligned per the format ReadArchiveMembers expects.
func buildArchive(strtab string, members []struct {
	name []byte
	data []byte
}) []byte {
	buf := append([]byte{}, "!<arch>\n"...)

	appendMember := func(name []byte, data []byte) {
		buf = append(buf, arMember(name, len(data))...)
		buf = append(buf, data...)
		if len(data)%2 != 0 {
			buf = append(buf, '\n')
		}
	}

	if strtab != "" {
		appendMember(padRight("//", 16), []byte(strtab))
	}
	for _, m := range members {
		appendMember(m.name, m.data)
	}
	return buf
}

func TestReadArchiveMembersShortName(t *testing.T) {
	data := buildArchive("", []struct {
		name []byte
		data []byte
	}{
		{padRight("short.o", 16), []byte("OBJDATA1")},
	})

	file := &File{Name: "lib.a", Contents: data}
	members := ReadArchiveMembers(file)

	assert.Len(t, members, 1)
	assert.Equal(t, "lib.a(short.o)", members[0].Name)
	assert.Equal(t, []byte("OBJDATA1"), members[0].Contents)
	assert.Same(t, file, members[0].Parent)
}

func TestReadArchiveMembersLongNameViaStrtab(t *testing.T) {
	strtab := "verylongobjectfilename.o/\n"
	data := buildArchive(strtab, []struct {
		name []byte
		data []byte
	}{
		{padRight("/0", 16), []byte("OBJDATA2")},
	})

	file := &File{Name: "lib.a", Contents: data}
	members := ReadArchiveMembers(file)

	assert.Len(t, members, 1)
	assert.Equal(t, "lib.a(verylongobjectfilename.o)", members[0].Name)
}

func TestReadArchiveMembersSkipsSymtab(t *testing.T) {
	buf := append([]byte{}, "!<arch>\n"...)
	buf = append(buf, arMember(padRight("/", 16), 4)...)
	buf = append(buf, []byte{0, 0, 0, 0}...)
	buf = append(buf, arMember(padRight("real.o", 16), 4)...)
	buf = append(buf, []byte("DATA")...)

	file := &File{Name: "lib.a", Contents: buf}
	members := ReadArchiveMembers(file)

	assert.Len(t, members, 1, "the archive symbol index member is skipped, not returned as an object")
	assert.Equal(t, "lib.a(real.o)", members[0].Name)
}
