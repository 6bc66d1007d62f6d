//go:build !unix

package linker

import (
	"os"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
)

// WriteOutputFile is the non-Unix fallback for emit.go's mmap-backed
// writer: plain sequential writes, since there is no portable mmap
// syscall to reach for here.
func WriteOutputFile(ctx *Context) {
	mode := os.FileMode(0666)
	if !ctx.Args.Relocatable {
		mode = 0777
	}

	file, err := os.OpenFile(ctx.Args.Output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	utils.MustNo(err)
	defer file.Close()

	_, err = file.Write(ctx.Buf)
	utils.MustNo(err)
}
