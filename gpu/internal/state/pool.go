// SPDX-License-Identifier: Unlicense OR MIT

package state

// Pool recycles States of one Layout.
type Pool struct {
	l        *Layout
	free     []*State
	released bool
}

func NewPool(l *Layout) *Pool {
	return &Pool{l: l}
}

// Get returns an empty State.
func (p *Pool) Get() *State {
	if p.released {
		panic("state: pool used after release")
	}
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return s
	}
	return p.l.NewState()
}

// Clone returns a pooled copy of s.
func (p *Pool) Clone(s *State) *State {
	c := p.Get()
	s.CloneInto(c)
	return c
}

// Put clears s and returns it to the pool.
func (p *Pool) Put(s *State) {
	if s.l != p.l {
		panic("state: State from a different layout")
	}
	if p.released {
		return
	}
	s.Reset()
	p.free = append(p.free, s)
}

// Release drops the pooled States.
func (p *Pool) Release() {
	p.free = nil
	p.released = true
}
