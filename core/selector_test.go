package core_test

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/raft/core"
	"github.com/devblok/raft/gfx"
	"github.com/devblok/raft/gfx/gfxtest"
)

func accelerators(c *qt.C, inst *gfxtest.Instance) []gfx.Accelerator {
	accs, err := inst.Accelerators()
	c.Assert(err, qt.IsNil)
	return accs
}

func withFamilies(name string, present []bool, flags ...gfx.QueueFlags) gfxtest.Config {
	cfg := gfxtest.DefaultConfig()
	cfg.Name = name
	cfg.Families = nil
	for _, f := range flags {
		cfg.Families = append(cfg.Families, gfx.QueueFamily{Flags: f, QueueCount: 1})
	}
	cfg.Present = present
	return cfg
}

func TestSelectDeviceSingleFamily(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(gfxtest.DefaultConfig())
	acc, families, err := core.SelectDevice(accelerators(c, inst), &gfxtest.Surface{})
	c.Assert(err, qt.IsNil)
	c.Assert(acc, qt.Equals, gfx.Accelerator(inst.Accelerator(0)))
	c.Assert(families, qt.Equals, core.QueueFamilies{Graphics: 0, Compute: 0, Present: 0})
	c.Assert(families.Unique(), qt.DeepEquals, []int{0})
}

func TestSelectDeviceSkipsUnsuitable(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(
		withFamilies("compute-only", []bool{true}, gfx.QueueCompute),
		withFamilies("headless", []bool{false}, gfx.QueueGraphics|gfx.QueueCompute),
		withFamilies("good", []bool{true}, gfx.QueueGraphics),
		withFamilies("also-good", []bool{true}, gfx.QueueGraphics),
	)
	acc, _, err := core.SelectDevice(accelerators(c, inst), &gfxtest.Surface{})
	c.Assert(err, qt.IsNil)
	c.Assert(acc.Properties().Name, qt.Equals, "good")

	// the search stops at the first suitable accelerator
	c.Assert(inst.Accelerator(3).PresentChecks(), qt.HasLen, 0)
}

func TestSelectDeviceKeepsLastPresentFamily(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(withFamilies("multi",
		[]bool{false, true, true, true},
		gfx.QueueTransfer,
		gfx.QueueGraphics|gfx.QueueCompute,
		gfx.QueueGraphics,
		gfx.QueueCompute,
	))
	_, families, err := core.SelectDevice(accelerators(c, inst), &gfxtest.Surface{})
	c.Assert(err, qt.IsNil)
	c.Assert(families, qt.Equals, core.QueueFamilies{Graphics: 1, Compute: 1, Present: 2})
	c.Assert(families.Unique(), qt.DeepEquals, []int{1, 2})

	// only graphics families are asked about presentation
	c.Assert(inst.Accelerator(0).PresentChecks(), qt.DeepEquals, []int{1, 2})
}

func TestSelectDeviceIgnoresPresentOnlyFamilies(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(withFamilies("split",
		[]bool{false, true},
		gfx.QueueGraphics,
		gfx.QueueTransfer,
	))
	_, _, err := core.SelectDevice(accelerators(c, inst), &gfxtest.Surface{})

	var nsd *core.NoSuitableDeviceError
	c.Assert(errors.As(err, &nsd), qt.Equals, true)
	c.Assert(nsd.Reasons, qt.DeepEquals, []string{"split: no graphics queue family can present to the surface"})
}

func TestSelectDeviceNoneSuitable(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(
		withFamilies("compute-only", []bool{true}, gfx.QueueCompute),
		withFamilies("headless", []bool{false}, gfx.QueueGraphics),
	)
	acc, _, err := core.SelectDevice(accelerators(c, inst), &gfxtest.Surface{})
	c.Assert(acc, qt.IsNil)
	c.Assert(err, qt.ErrorMatches, "no suitable physical device found: compute-only: no graphics queue family; headless: .*")

	var nsd *core.NoSuitableDeviceError
	c.Assert(errors.As(err, &nsd), qt.Equals, true)
	c.Assert(nsd.Reasons, qt.HasLen, 2)

	// selection is read-only
	c.Assert(inst.Registry().Created("device"), qt.Equals, 0)
	c.Assert(inst.Accelerator(0).Devices(), qt.HasLen, 0)
	c.Assert(inst.Accelerator(1).Devices(), qt.HasLen, 0)
}

func TestSelectDeviceNoAccelerators(t *testing.T) {
	c := qt.New(t)

	_, _, err := core.SelectDevice(nil, &gfxtest.Surface{})
	c.Assert(err, qt.ErrorMatches, "no suitable physical device found: no accelerators available")
}
