// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "github.com/devblok/raft/gfx"

// releaseFunc adapts a plain function to gfx.Releasable.
type releaseFunc func()

func (f releaseFunc) Release() { f() }

// releaseStack releases everything pushed onto it in reverse order.
// A nil entry is skipped.
type releaseStack []gfx.Releasable

func (s *releaseStack) push(r ...gfx.Releasable) {
	*s = append(*s, r...)
}

func (s *releaseStack) pushFunc(f func()) {
	*s = append(*s, releaseFunc(f))
}

// release empties the stack, last pushed first.
func (s *releaseStack) release() {
	for idx := len(*s) - 1; idx >= 0; idx-- {
		if r := (*s)[idx]; r != nil {
			r.Release()
		}
	}
	*s = nil
}

// take hands the contents over to the caller and empties the stack, so
// a deferred release becomes a no-op once construction succeeded.
func (s *releaseStack) take() releaseStack {
	out := *s
	*s = nil
	return out
}
