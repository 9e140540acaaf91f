package core_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/raft/core"
	"github.com/devblok/raft/gfx"
)

var memoryTable = []gfx.MemoryType{
	{Properties: gfx.MemoryHostVisible | gfx.MemoryHostCached},
	{Properties: gfx.MemoryDeviceLocal},
	{Properties: gfx.MemoryHostVisible | gfx.MemoryHostCoherent},
	{Properties: gfx.MemoryDeviceLocal | gfx.MemoryHostVisible | gfx.MemoryHostCoherent},
}

func TestFindMemoryType(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		about    string
		typeBits uint32
		wanted   gfx.MemoryProperty
		expect   int
	}{
		{"device local, any type", 0xf, core.DeviceLocal, 1},
		{"host shared, any type", 0xf, core.HostShared, 2},
		{"host shared, type 2 excluded", 0xb, core.HostShared, 3},
		{"no flags wanted", 0xf, 0, 0},
		{"no flags wanted, type 0 excluded", 0xe, 0, 1},
		{"all flags on last type", 0x8, core.DeviceLocal | core.HostShared, 3},
	}
	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			idx, err := core.FindMemoryType(memoryTable, test.typeBits, test.wanted)
			c.Assert(err, qt.IsNil)
			c.Assert(idx, qt.Equals, test.expect)
		})
	}
}

func TestFindMemoryTypeLowestMatch(t *testing.T) {
	c := qt.New(t)

	// every (bitmask, flags) pair over the table: the lowest matching
	// index wins, and no match is an error
	flags := []gfx.MemoryProperty{0, gfx.MemoryDeviceLocal, gfx.MemoryHostVisible, core.HostShared,
		gfx.MemoryHostCached, gfx.MemoryDeviceLocal | gfx.MemoryHostVisible}
	for bits := uint32(0); bits < 1<<uint(len(memoryTable)); bits++ {
		for _, wanted := range flags {
			expect := -1
			for idx, mt := range memoryTable {
				if bits&(1<<uint(idx)) != 0 && mt.Properties&wanted == wanted {
					expect = idx
					break
				}
			}

			idx, err := core.FindMemoryType(memoryTable, bits, wanted)
			if expect < 0 {
				var nsm *core.NoSuitableMemoryTypeError
				c.Assert(errors.As(err, &nsm), qt.Equals, true)
				c.Assert(nsm.TypeBits, qt.Equals, bits)
				c.Assert(nsm.Wanted, qt.Equals, wanted)
				continue
			}
			c.Assert(err, qt.IsNil)
			c.Assert(idx, qt.Equals, expect)
		}
	}
}

func TestFindMemoryTypeIgnoresBitsPastTable(t *testing.T) {
	c := qt.New(t)

	_, err := core.FindMemoryType(memoryTable[:1], 0xfffffffe, 0)
	c.Assert(err, qt.ErrorMatches, "no suitable memory type for type bits .* with properties 0x0")
}
