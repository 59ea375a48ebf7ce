package recording

// Keyed is an insertion-ordered map. Iteration helpers always walk entries in
// registration order, never in hash order, so every alignment pass sees the
// same sequence of streams, sync lines and barcode channels.
type Keyed[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// NewKeyed creates an empty ordered collection.
func NewKeyed[K comparable, V any]() *Keyed[K, V] {
	return &Keyed[K, V]{
		values: make(map[K]V),
	}
}

// Set stores the value under the key. An existing key keeps its original
// position and only the value is replaced.
func (c *Keyed[K, V]) Set(key K, value V) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}

	c.values[key] = value
}

// Get returns the value stored under the key.
func (c *Keyed[K, V]) Get(key K) (V, bool) {
	v, ok := c.values[key]

	return v, ok
}

// Len returns the number of stored entries.
func (c *Keyed[K, V]) Len() int {
	return len(c.keys)
}

// Keys returns a copy of the keys in insertion order.
func (c *Keyed[K, V]) Keys() []K {
	keys := make([]K, len(c.keys))
	copy(keys, c.keys)

	return keys
}

// Values returns the values in insertion order.
func (c *Keyed[K, V]) Values() []V {
	values := make([]V, 0, len(c.keys))
	for _, k := range c.keys {
		values = append(values, c.values[k])
	}

	return values
}
