package entity

import (
	"encoding/json"
	"fmt"
)

// Keyed is implemented by entities that are stored in an Ordered collection.
type Keyed interface {
	Key() int64
}

// Ordered is an id-keyed collection that remembers an explicit order.
// Set appends unknown keys and replaces known ones in place; Delete keeps the
// relative order of the remaining entries. Reordering means building a new
// collection from sorted values with NewOrdered.
type Ordered[V Keyed] struct {
	keys []int64
	vals map[int64]V
}

// NewOrdered builds a collection from values in the given order.
// A later duplicate key replaces the earlier value at the earlier position.
func NewOrdered[V Keyed](values ...V) *Ordered[V] {
	o := &Ordered[V]{vals: make(map[int64]V, len(values))}
	for _, v := range values {
		o.Set(v)
	}
	return o
}

// Len returns the number of entries. A nil collection is empty.
func (o *Ordered[V]) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Has reports whether id is present.
func (o *Ordered[V]) Has(id int64) bool {
	if o == nil {
		return false
	}
	_, ok := o.vals[id]
	return ok
}

// Get returns the value stored under id.
func (o *Ordered[V]) Get(id int64) (V, bool) {
	if o == nil {
		var zero V
		return zero, false
	}
	v, ok := o.vals[id]
	return v, ok
}

// Set inserts or replaces v under v.Key().
func (o *Ordered[V]) Set(v V) {
	if o.vals == nil {
		o.vals = make(map[int64]V)
	}
	id := v.Key()
	if _, ok := o.vals[id]; !ok {
		o.keys = append(o.keys, id)
	}
	o.vals[id] = v
}

// Delete removes id. It returns false when id was not present.
func (o *Ordered[V]) Delete(id int64) bool {
	if !o.Has(id) {
		return false
	}
	delete(o.vals, id)
	for i, k := range o.keys {
		if k == id {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns a copy of the keys in order.
func (o *Ordered[V]) Keys() []int64 {
	if o == nil {
		return nil
	}
	return append([]int64(nil), o.keys...)
}

// Values returns the values in order.
func (o *Ordered[V]) Values() []V {
	if o == nil {
		return nil
	}
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.vals[k])
	}
	return out
}

// Clone returns an independent copy. Values are copied shallowly.
func (o *Ordered[V]) Clone() *Ordered[V] {
	c := &Ordered[V]{vals: make(map[int64]V, o.Len())}
	if o == nil {
		return c
	}
	c.keys = append(make([]int64, 0, len(o.keys)), o.keys...)
	for k, v := range o.vals {
		c.vals[k] = v
	}
	return c
}

// MarshalJSON encodes the collection as an array of values in order.
func (o *Ordered[V]) MarshalJSON() ([]byte, error) {
	values := o.Values()
	if values == nil {
		values = []V{}
	}
	return json.Marshal(values)
}

// UnmarshalJSON decodes an array of values, keeping their order.
func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	var values []V
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode ordered collection: %w", err)
	}
	*o = *NewOrdered(values...)
	return nil
}
