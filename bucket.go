package softmask

// bucketDepths assigns every node reachable from root to a depth bucket.
// buckets[0] holds root; a child lands in its parent's bucket when it merges
// with the parent, otherwise in the next one. Buckets beyond
// MaxDepth-stencil are never filled: nodes that would land there are left
// out of this render. Returns the number of buckets in use.
func (c *Context) bucketDepths(root Handle, stencil int, buckets *[MaxDepth][]Handle) int {
	for i := range buckets {
		buckets[i] = buckets[i][:0]
	}
	limit := MaxDepth - stencil
	if limit <= 0 || c.nodes.get(root) == nil {
		return 0
	}
	buckets[0] = append(buckets[0], root)
	used := 1
	for d := 0; d < limit; d++ {
		// buckets[d] may grow while it is scanned: merged children join the
		// bucket being expanded and their own children are visited too.
		for i := 0; i < len(buckets[d]); i++ {
			n := c.nodes.get(buckets[d][i])
			if n == nil {
				continue
			}
			for _, ch := range n.children {
				cn := c.nodes.get(ch)
				if cn == nil || !cn.active {
					continue
				}
				switch {
				case cn.mergeWithParentBucket:
					buckets[d] = append(buckets[d], ch)
				case d+1 < limit:
					buckets[d+1] = append(buckets[d+1], ch)
					if d+2 > used {
						used = d + 2
					}
				}
			}
		}
	}
	return used
}

// Buckets returns the depth buckets the next render of root would use,
// given root's current stencil depth. Intended for inspection and tests.
func (c *Context) Buckets(root Handle) [][]Handle {
	n := c.nodes.get(root)
	if n == nil {
		return nil
	}
	stencil := 0
	if n.owner != nil {
		stencil = n.owner.HardMaskDepth()
	}
	var buckets [MaxDepth][]Handle
	used := c.bucketDepths(root, stencil, &buckets)
	out := make([][]Handle, used)
	for i := range out {
		out[i] = append([]Handle(nil), buckets[i]...)
	}
	return out
}
