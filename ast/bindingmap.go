package ast

import "sort"

// BindingMapCollector assigns update-slot indices to the top-level data
// fields read by a template, so the generator object can patch single
// bindings without re-evaluating the whole tree. A field (or the whole
// collector) may be disabled when a construct makes single-field updates
// unsound.
type BindingMapCollector struct {
	overallDisabled bool
	fields          map[string]*bindingMapField
}

type bindingMapField struct {
	disabled bool
	next     int
}

func NewBindingMapCollector() *BindingMapCollector {
	return &BindingMapCollector{fields: make(map[string]*bindingMapField)}
}

// DisableAll marks every field as non-patchable.
func (c *BindingMapCollector) DisableAll() {
	c.overallDisabled = true
}

// AddField allocates the next slot index for the field, or returns false
// if the field has been disabled.
func (c *BindingMapCollector) AddField(field string) (int, bool) {
	f, ok := c.fields[field]
	if !ok {
		f = &bindingMapField{}
		c.fields[field] = f
	}
	if f.disabled {
		return 0, false
	}
	ret := f.next
	f.next++
	return ret, true
}

// DisableField marks a single field as non-patchable.
func (c *BindingMapCollector) DisableField(field string) {
	c.fields[field] = &bindingMapField{disabled: true}
}

// FieldEnabled reports whether the field can be patched individually.
func (c *BindingMapCollector) FieldEnabled(field string) bool {
	if c.overallDisabled {
		return false
	}
	f, ok := c.fields[field]
	return ok && !f.disabled
}

// ListFields returns the enabled fields with their slot counts, sorted by
// name for deterministic output.
func (c *BindingMapCollector) ListFields() []BindingMapField {
	if c.overallDisabled {
		return nil
	}
	var ret []BindingMapField
	for name, f := range c.fields {
		if !f.disabled {
			ret = append(ret, BindingMapField{Name: name, Count: f.next})
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// BindingMapField is one enabled field of a collector listing.
type BindingMapField struct {
	Name  string
	Count int
}

// BindingMapKeys records which (field, slot) pairs a dynamic value writes.
type BindingMapKeys struct {
	keys []BindingMapKey
}

// BindingMapKey is one field/slot pair of a dynamic value.
type BindingMapKey struct {
	Name  string
	Index int
}

func (k *BindingMapKeys) Add(name string, index int) {
	k.keys = append(k.keys, BindingMapKey{Name: name, Index: index})
}

// Keys returns the recorded pairs in insertion order.
func (k *BindingMapKeys) Keys() []BindingMapKey {
	if k == nil {
		return nil
	}
	return k.keys
}

// IsEmpty reports whether none of the recorded fields is enabled in the
// collector.
func (k *BindingMapKeys) IsEmpty(c *BindingMapCollector) bool {
	if k == nil {
		return true
	}
	for _, key := range k.keys {
		if c.FieldEnabled(key.Name) {
			return false
		}
	}
	return true
}
