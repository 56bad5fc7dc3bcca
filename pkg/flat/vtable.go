package flat

// VtableCache remembers the vtables written during one build session, keyed
// by their serialized bytes, so tables of the same shape share one vtable.
// It belongs to a single Builder and is not safe for concurrent use.
type VtableCache struct {
	offsets map[string]UOffsetT
	hits    int
	misses  int
}

// CacheStats describes a VtableCache.
type CacheStats struct {
	Vtables int
	Hits    int
	Misses  int
}

func NewVtableCache() *VtableCache {
	return &VtableCache{offsets: make(map[string]UOffsetT)}
}

// Lookup returns the end-relative offset of a written vtable equal to vt.
func (c *VtableCache) Lookup(vt []byte) (UOffsetT, bool) {
	off, ok := c.offsets[string(vt)]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return off, ok
}

// Insert records that vt was written at off. The key is copied.
func (c *VtableCache) Insert(vt []byte, off UOffsetT) {
	c.offsets[string(vt)] = off
}

func (c *VtableCache) Len() int {
	return len(c.offsets)
}

func (c *VtableCache) Reset() {
	clear(c.offsets)
	c.hits, c.misses = 0, 0
}

func (c *VtableCache) Stats() CacheStats {
	return CacheStats{Vtables: len(c.offsets), Hits: c.hits, Misses: c.misses}
}

// Vtable is a validated view of a vtable inside a finished buffer.
type Vtable struct {
	Bytes []byte
	Pos   UOffsetT
}

// Size is the vtable's own length in bytes.
func (v Vtable) Size() VOffsetT {
	return GetVOffsetT(v.Bytes[v.Pos:])
}

// TableSize is the inline size of the owning table, header included.
func (v Vtable) TableSize() VOffsetT {
	return GetVOffsetT(v.Bytes[v.Pos+SizeVOffsetT:])
}

// NumSlots is the number of field slots the vtable describes.
func (v Vtable) NumSlots() int {
	return int(v.Size())/SizeVOffsetT - VtableMetadataFields
}

// FieldOffset returns the offset of slot inside the table, or 0 when the
// field is absent or the slot lies beyond the vtable.
func (v Vtable) FieldOffset(slot int) VOffsetT {
	if slot < 0 || slot >= v.NumSlots() {
		return 0
	}
	return GetVOffsetT(v.Bytes[v.Pos+UOffsetT(SlotVOffset(slot)):])
}
