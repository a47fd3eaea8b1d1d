package softmask

import "strconv"

// Handle addresses a mask node in a Context. Handles are stable across
// reparenting; a handle to a destroyed node is detected by its generation
// and never aliases a node created later in the same slot.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle, which never refers to a node.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

func (h Handle) String() string {
	if h.IsZero() {
		return "mask(none)"
	}
	return "mask(" + strconv.FormatUint(uint64(h.index), 10) + "." + strconv.FormatUint(uint64(h.gen), 10) + ")"
}

type slot struct {
	node maskNode
	gen  uint32
	live bool
}

// nodeArena stores mask nodes by index with a free list. Generations start at
// 1 so that the zero Handle is always invalid.
type nodeArena struct {
	slots []slot
	free  []uint32
	live  int
}

func (a *nodeArena) alloc() Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.live = true
	s.node = maskNode{}
	a.live++
	return Handle{index: idx, gen: s.gen}
}

func (a *nodeArena) release(h Handle) {
	s := a.slot(h)
	if s == nil {
		return
	}
	s.live = false
	s.node = maskNode{}
	a.free = append(a.free, h.index)
	a.live--
}

func (a *nodeArena) slot(h Handle) *slot {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return s
}

// get returns the node for h, or nil for a zero, stale, or foreign handle.
func (a *nodeArena) get(h Handle) *maskNode {
	if s := a.slot(h); s != nil {
		return &s.node
	}
	return nil
}
