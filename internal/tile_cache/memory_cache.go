package tile_cache

import "slices"

type entry struct {
	image Image // nil means confirmed missing
}

// Cache maps tile keys to decoded images or to a confirmed-missing marker.
// A key that is not in the map is unrequested. The cache has a single owner,
// the frame loop, and is not safe for concurrent use.
type Cache struct {
	items map[Key]entry
}

func New() *Cache {
	return &Cache{
		items: make(map[Key]entry),
	}
}

// Lookup returns the key's status and, when present, its image. The image
// stays owned by the cache.
func (c *Cache) Lookup(key Key) (Status, Image) {
	e, ok := c.items[key]
	switch {
	case !ok:
		return StatusUnrequested, nil
	case e.image == nil:
		return StatusMissing, nil
	default:
		return StatusPresent, e.image
	}
}

// Has reports whether the key has any entry, present or missing.
func (c *Cache) Has(key Key) bool {
	_, ok := c.items[key]
	return ok
}

// Insert stores img under key; a nil img records the key as confirmed missing.
// A previously stored image for the same key is released.
func (c *Cache) Insert(key Key, img Image) {
	if old, ok := c.items[key]; ok && old.image != nil && old.image != img {
		old.image.Release()
	}
	c.items[key] = entry{image: img}
}

// Remove deletes the entry and hands its image, if any, to the caller.
func (c *Cache) Remove(key Key) (Image, bool) {
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	delete(c.items, key)
	return e.image, true
}

// Evict removes the entry and releases its image.
func (c *Cache) Evict(key Key) bool {
	img, ok := c.Remove(key)
	if img != nil {
		img.Release()
	}
	return ok
}

func (c *Cache) Len() int {
	return len(c.items)
}

// Present counts entries holding an image.
func (c *Cache) Present() int {
	n := 0
	for _, e := range c.items {
		if e.image != nil {
			n++
		}
	}
	return n
}

// Keys returns every cached key in Key.Less order.
func (c *Cache) Keys() []Key {
	keys := make([]Key, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, Compare)
	return keys
}

// Clear evicts everything.
func (c *Cache) Clear() {
	for k, e := range c.items {
		if e.image != nil {
			e.image.Release()
		}
		delete(c.items, k)
	}
}
