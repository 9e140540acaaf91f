// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// QueueFamilies holds the queue family index chosen for each role.
// Roles may alias the same family.
type QueueFamilies struct {
	Graphics int
	Compute  int
	Present  int
}

// Unique returns the distinct families in role order.
func (q QueueFamilies) Unique() []int {
	out := []int{q.Graphics}
	for _, f := range []int{q.Compute, q.Present} {
		dup := false
		for _, have := range out {
			if have == f {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	return out
}

// SelectDevice returns the first accelerator on which graphics, compute
// and present queue families can all be resolved for the surface.
// The first graphics family doubles as the compute family. Every graphics
// family is tested for presentation and the last supporting one wins.
func SelectDevice(accelerators []gfx.Accelerator, surface gfx.Surface) (gfx.Accelerator, QueueFamilies, error) {
	var reasons []string
	for _, acc := range accelerators {
		name := acc.Properties().Name
		families := QueueFamilies{Graphics: -1, Compute: -1, Present: -1}
		for idx, family := range acc.QueueFamilies() {
			if family.Flags&gfx.QueueGraphics == 0 {
				continue
			}
			if families.Graphics < 0 {
				families.Graphics = idx
				families.Compute = idx
			}
			supported, err := acc.SupportsPresent(idx, surface)
			if err != nil {
				return nil, QueueFamilies{}, errors.Wrapf(err, "accelerator %q: queue family %d present support", name, idx)
			}
			if supported {
				families.Present = idx
			}
		}

		switch {
		case families.Graphics < 0:
			reasons = append(reasons, fmt.Sprintf("%s: no graphics queue family", name))
		case families.Present < 0:
			reasons = append(reasons, fmt.Sprintf("%s: no graphics queue family can present to the surface", name))
		default:
			log.WithFields(log.Fields{
				"accelerator": name,
				"graphics":    families.Graphics,
				"compute":     families.Compute,
				"present":     families.Present,
			}).Info("selected accelerator")
			return acc, families, nil
		}
		log.WithField("accelerator", name).Debug(reasons[len(reasons)-1])
	}
	return nil, QueueFamilies{}, &NoSuitableDeviceError{Reasons: reasons}
}
