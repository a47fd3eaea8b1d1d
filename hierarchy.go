package softmask

import "log/slog"

// Activate marks the node active, appends it to the activation order, and
// resolves its parent. Active nodes below it in the scene are re-resolved so
// they can adopt it. No-op if already active.
func (c *Context) Activate(h Handle) {
	n := c.nodes.get(h)
	if n == nil || n.active {
		return
	}
	n.active = true
	n.dirty = true
	c.active = append(c.active, h)
	c.resolve(h)
	c.resolveBelow(h)
}

// Deactivate detaches the node from the forest. Its children move to its
// parent (or become roots), and its buffer, if it owned one, is released.
// No-op if not active.
func (c *Context) Deactivate(h Handle) {
	n := c.nodes.get(h)
	if n == nil || !n.active {
		return
	}
	n.active = false
	for i, a := range c.active {
		if a == h {
			copy(c.active[i:], c.active[i+1:])
			c.active[len(c.active)-1] = Handle{}
			c.active = c.active[:len(c.active)-1]
			break
		}
	}

	parent := n.parent
	// Iterate a copy: setParent mutates n.children.
	children := append([]Handle(nil), n.children...)
	for _, ch := range children {
		c.setParent(ch, parent)
	}
	c.setParent(h, Handle{})
	c.releaseBuffer(h)
	n.channel = -1
}

// Destroy deactivates the node and frees its slot. The handle becomes
// invalid.
func (c *Context) Destroy(h Handle) {
	if c.nodes.get(h) == nil {
		return
	}
	c.Deactivate(h)
	c.releaseBuffer(h)
	c.nodes.release(h)
}

// AncestryChanged re-resolves the node after its element moved in the scene
// tree, along with every active node below that element.
func (c *Context) AncestryChanged(h Handle) {
	if !c.IsActive(h) {
		return
	}
	c.resolve(h)
	c.resolveBelow(h)
}

// resolve recomputes h's parent from the scene ancestry: the nearest ancestor
// element that drives an active mask node and is itself active, unless h
// ignores parents.
func (c *Context) resolve(h Handle) {
	n := c.nodes.get(h)
	if n == nil || !n.active {
		return
	}
	var parent Handle
	if !n.ignoreParent && n.owner != nil {
		for el := n.owner.ParentElement(); el != nil; el = el.ParentElement() {
			ph := el.SoftMaskHandle()
			if ph == h {
				continue
			}
			if c.IsActive(ph) && el.ActiveInHierarchy() {
				parent = ph
				break
			}
		}
	}
	c.setParent(h, parent)
}

// resolveBelow re-resolves every active node whose element lies under h's
// element.
func (c *Context) resolveBelow(h Handle) {
	n := c.nodes.get(h)
	if n == nil || n.owner == nil {
		return
	}
	owner := n.owner
	for _, other := range c.active {
		if other == h {
			continue
		}
		on := c.nodes.get(other)
		if on == nil || on.owner == nil {
			continue
		}
		if elementIsAncestor(owner, on.owner) {
			c.resolve(other)
		}
	}
}

// setParent moves h under parent, keeping both children lists consistent.
// Both the old and the new root are marked dirty. A parent that would make h
// its own ancestor is refused.
func (c *Context) setParent(h, parent Handle) {
	n := c.nodes.get(h)
	if n == nil || n.parent == parent {
		return
	}
	if !parent.IsZero() {
		if c.nodes.get(parent) == nil {
			return
		}
		if parent == h || c.isAncestor(h, parent) {
			c.log.Error("softmask: refused reparent that would create a cycle",
				slog.Any("node", h), slog.Any("parent", parent))
			return
		}
	}

	c.MarkDirty(h)
	wasRoot := n.parent.IsZero()
	if p := c.nodes.get(n.parent); p != nil {
		p.children = removeHandle(p.children, h)
	}
	n.parent = parent
	if p := c.nodes.get(parent); p != nil {
		p.children = append(p.children, h)
	}
	if wasRoot && !parent.IsZero() {
		// Only roots own buffers.
		c.releaseBuffer(h)
	}
	c.MarkDirty(h)
}

// isAncestor reports whether candidate is h or an ancestor of h in the
// mask forest.
func (c *Context) isAncestor(candidate, h Handle) bool {
	for i := 0; i <= c.nodes.live && !h.IsZero(); i++ {
		if h == candidate {
			return true
		}
		n := c.nodes.get(h)
		if n == nil {
			return false
		}
		h = n.parent
	}
	return false
}

// elementIsAncestor reports whether candidate is a strict ancestor of el.
func elementIsAncestor(candidate, el SceneElement) bool {
	for p := el.ParentElement(); p != nil; p = p.ParentElement() {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeHandle removes h from s using copy+zero so the backing array holds no
// stale handle.
func removeHandle(s []Handle, h Handle) []Handle {
	for i, x := range s {
		if x == h {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = Handle{}
			return s[:len(s)-1]
		}
	}
	return s
}
