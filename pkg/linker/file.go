package linker

import (
	"github.com/real-xidaozu/llvm-project/pkg/utils"
	"os"
)

// Parent points at the archive a .o came out of, when it did; nothing
// currently reads it back.
type File struct {
	Name     string
	Contents []byte
	Parent   *File
}

func MustNewFile(filename string) *File {
	contents, err := os.ReadFile(filename)
	utils.MustNo(err)
	return &File{
		Name:     filename,
		Contents: contents,
	}
}

func OpenLibrary(filepath string) *File {
	contents, err := os.ReadFile(filepath)
	if err != nil {
		return nil
	}

	return &File{
		Name:     filepath,
		Contents: contents,
	}
}

// FindLibrary searches -L paths for a shared library before falling
// back to a static archive, matching the GNU ld convention; -static
// skips the .so probe entirely. ReadFile (input.go) tells a returned
// .so apart from a .a by e_type, not by this function's return type.
func FindLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Args.LibraryPaths {
		if !ctx.Args.Static {
			if f := OpenLibrary(dir + "/lib" + name + ".so"); f != nil {
				return f
			}
		}
		if f := OpenLibrary(dir + "/lib" + name + ".a"); f != nil {
			return f
		}
	}

	utils.Fatal("library not found: " + name)
	return nil
}
