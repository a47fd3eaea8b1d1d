package softmask

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// cacheKey identifies one derived material.
type cacheKey struct {
	base       uint32 // base material ID
	buffer     uint32 // mask buffer identity
	code       InteractionCode
	useStencil bool
}

// Hash packs the key into 64 bits: base ID in the high 32, buffer ID in the
// next 23, then the interaction code and the stencil flag. Distinct keys may
// collide; the cache itself is keyed on the full struct.
func (k cacheKey) Hash() uint64 {
	h := uint64(k.base)<<32 | uint64(k.buffer&0x7FFFFF)<<9 | uint64(k.code)<<1
	if k.useStencil {
		h |= 1
	}
	return h
}

// LogValue logs every key field, unlike Hash, so a logged key names exactly
// one entry.
func (k cacheKey) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("base", uint64(k.base)),
		slog.Uint64("buffer", uint64(k.buffer)),
		slog.String("code", fmt.Sprintf("%08b", uint8(k.code))),
		slog.Bool("stencil", k.useStencil),
	)
}

// compare orders keys by base, buffer, code, then stencil flag.
func (k cacheKey) compare(o cacheKey) int {
	if c := cmp.Compare(k.base, o.base); c != 0 {
		return c
	}
	if c := cmp.Compare(k.buffer, o.buffer); c != 0 {
		return c
	}
	if c := cmp.Compare(k.code, o.code); c != 0 {
		return c
	}
	switch {
	case k.useStencil == o.useStencil:
		return 0
	case o.useStencil:
		return -1
	default:
		return 1
	}
}

type cacheEntry struct {
	key      cacheKey
	material *Material
	refs     int
}

// materialCache owns derived materials and their reference counts.
type materialCache struct {
	entries map[cacheKey]*cacheEntry
	warned  bool
}

// MaterialLink is a consumer's hold on one derived material. The zero value
// holds nothing. A link must be released with Context.ReleaseMaterial when
// the consumer goes away.
type MaterialLink struct {
	key      cacheKey
	material *Material
	held     bool
}

// Material returns the held derived material, or nil.
func (l *MaterialLink) Material() *Material {
	if !l.held {
		return nil
	}
	return l.material
}

// Held reports whether the link currently references a cache entry.
func (l *MaterialLink) Held() bool { return l.held }

// Acquire returns the derived material for drawing base through the mask
// buffer of node, with code limited to depths 0..depth. The link's previous
// material, if different, is released only after the new one is acquired so
// an unchanged entry never drops to zero references in between.
//
// On a configuration error (unsupported base shader, invalid interaction
// code) the link is released and base is returned together with a
// *ConfigError. An invalid node or a node without a live root also returns
// base, with a nil error: masking simply does not apply.
func (c *Context) Acquire(link *MaterialLink, base *Material, node Handle, code InteractionCode, depth int, useStencil bool) (*Material, error) {
	if base == nil {
		base = DefaultMaterial
	}
	if _, err := base.Variant(); err != nil {
		c.log.Error("softmask: cannot mask material", slog.String("material", base.name), slog.Any("error", err))
		c.ReleaseMaterial(link)
		return base, err
	}
	if !code.Valid() {
		err := &ConfigError{Material: base.name, Err: ErrInvalidInteraction}
		c.log.Error("softmask: cannot mask material", slog.String("material", base.name), slog.Any("error", err))
		c.ReleaseMaterial(link)
		return base, err
	}
	root := c.Root(node)
	rn := c.nodes.get(root)
	if rn == nil || !rn.active {
		c.ReleaseMaterial(link)
		return base, nil
	}
	c.ensureBuffer(root)

	key := cacheKey{
		base:       base.id,
		buffer:     rn.bufferID,
		code:       code.limit(depth),
		useStencil: useStencil,
	}
	if link.held && link.key == key {
		return link.material, nil
	}

	m := c.acquire(key, base, rn)
	if link.held {
		c.release(link.key)
	}
	link.key = key
	link.material = m
	link.held = true
	return m, nil
}

// ReleaseMaterial drops the link's reference. No-op for an empty link.
func (c *Context) ReleaseMaterial(link *MaterialLink) {
	if link == nil || !link.held {
		return
	}
	c.release(link.key)
	*link = MaterialLink{}
}

// acquire increments the entry for key, creating it on first demand.
func (c *Context) acquire(key cacheKey, base *Material, root *maskNode) *Material {
	if e, ok := c.cache.entries[key]; ok {
		e.refs++
		return e.material
	}
	m := newDerivedMaterial(base, root.buffer, key.code, key.useStencil)
	c.cache.entries[key] = &cacheEntry{key: key, material: m, refs: 1}
	c.stats.MaterialsCreated++

	if n := len(c.cache.entries); n > c.warnSize && !c.cache.warned {
		c.cache.warned = true
		c.log.Warn("softmask: material cache above expected working set",
			slog.Int("entries", n), slog.Int("threshold", c.warnSize))
	}
	return m
}

// release decrements the entry for key and destroys it at zero. Releasing
// an unknown key indicates a reference-counting bug; it is logged and
// otherwise ignored.
func (c *Context) release(key cacheKey) bool {
	e, ok := c.cache.entries[key]
	if !ok {
		c.log.Error("softmask: release of unknown material key", slog.Any("key", key))
		return false
	}
	e.refs--
	if e.refs > 0 {
		return true
	}
	e.material.dispose()
	delete(c.cache.entries, key)
	c.stats.MaterialsDestroyed++
	if len(c.cache.entries) <= c.warnSize {
		c.cache.warned = false
	}
	return true
}

// CacheEntry describes one live derived material, for inspection.
type CacheEntry struct {
	BaseID     uint32
	BufferID   uint32
	Code       InteractionCode
	UseStencil bool
	Hash       uint64
	Material   *Material
	Refs       int
}

// NumMaterials returns the number of live derived materials.
func (c *Context) NumMaterials() int {
	return len(c.cache.entries)
}

// MaterialRefs returns the reference count of the entry holding m, or 0.
func (c *Context) MaterialRefs(m *Material) int {
	for _, e := range c.cache.entries {
		if e.material == m {
			return e.refs
		}
	}
	return 0
}

// CacheEntries returns the live entries in key order.
func (c *Context) CacheEntries() []CacheEntry {
	entries := make([]*cacheEntry, 0, len(c.cache.entries))
	for _, e := range c.cache.entries {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *cacheEntry) int {
		return a.key.compare(b.key)
	})
	out := make([]CacheEntry, len(entries))
	for i, e := range entries {
		out[i] = CacheEntry{
			BaseID:     e.key.base,
			BufferID:   e.key.buffer,
			Code:       e.key.code,
			UseStencil: e.key.useStencil,
			Hash:       e.key.Hash(),
			Material:   e.material,
			Refs:       e.refs,
		}
	}
	return out
}
