//go:build unix

package linker

import (
	"os"

	"github.com/real-xidaozu/llvm-project/pkg/utils"
	"golang.org/x/sys/unix"
)

// WriteOutputFile is S10's last step: the fully populated Context.Buf
// gets committed to disk through a writable mmap of the output file
// rather than a plain Write syscall, the way lld's FileOutputBuffer
// maps the final image and lets CopyBuf-equivalent writers touch pages
// directly. Grounded on SPEC_FULL's domain-stack wiring for
// golang.org/x/sys/unix; emit_other.go carries the same contract for
// GOOS values "unix" doesn't cover.
func WriteOutputFile(ctx *Context) {
	mode := os.FileMode(0666)
	if !ctx.Args.Relocatable {
		mode = 0777
	}

	file, err := os.OpenFile(ctx.Args.Output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	utils.MustNo(err)
	defer file.Close()

	size := len(ctx.Buf)
	if size == 0 {
		return
	}

	utils.MustNo(file.Truncate(int64(size)))

	mapping, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	utils.MustNo(err)

	copy(mapping, ctx.Buf)

	utils.MustNo(unix.Msync(mapping, unix.MS_SYNC))
	utils.MustNo(unix.Munmap(mapping))
}
