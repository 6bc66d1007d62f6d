package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseNameOf(t *testing.T) {
	assert.Equal(t, "libc.so.6", baseNameOf("/usr/lib/x86_64-linux-gnu/libc.so.6"))
	assert.Equal(t, "libc.so.6", baseNameOf("libc.so.6"), "no slash means the path is already a basename")
}

func TestReadLE64(t *testing.T) {
	b := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	assert.EqualValues(t, 1, readLE64(b))

	b2 := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	assert.EqualValues(t, ^uint64(0), readLE64(b2))
}
