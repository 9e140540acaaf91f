package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/raft/core"
	"github.com/devblok/raft/gfx/gfxtest"
)

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)

	words := core.SliceUint32(gfxtest.ShaderCode(7, 8))
	c.Assert(words, qt.DeepEquals, []uint32{gfxtest.SPIRVMagic, 7, 8})

	// a trailing partial word is dropped
	c.Assert(core.SliceUint32(append(gfxtest.ShaderCode(), 1, 2)), qt.HasLen, 1)
	c.Assert(core.SliceUint32([]byte{1, 2, 3}), qt.IsNil)
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Medium(b *testing.B) {
	data := make([]byte, 1000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}
