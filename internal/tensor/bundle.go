package tensor

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Bundle maps layer names to tensors, preserving the order in which the
// inference service listed them
type Bundle struct {
	entries *orderedmap.OrderedMap[string, Tensor]
}

// NewBundle creates an empty bundle
func NewBundle() *Bundle {
	return &Bundle{entries: orderedmap.New[string, Tensor]()}
}

// Set adds or replaces a tensor; a replaced name keeps its original position
func (b *Bundle) Set(name string, t Tensor) {
	if b.entries == nil {
		b.entries = orderedmap.New[string, Tensor]()
	}
	t.Name = name
	b.entries.Set(name, t)
}

// Get returns the tensor registered under name
func (b *Bundle) Get(name string) (Tensor, bool) {
	if b == nil || b.entries == nil {
		return Tensor{}, false
	}
	return b.entries.Get(name)
}

// Len returns the number of entries
func (b *Bundle) Len() int {
	if b == nil || b.entries == nil {
		return 0
	}
	return b.entries.Len()
}

// Each calls fn for every entry in encounter order
func (b *Bundle) Each(fn func(name string, t Tensor)) {
	if b == nil || b.entries == nil {
		return
	}
	for pair := b.entries.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Names returns entry names in encounter order
func (b *Bundle) Names() []string {
	names := make([]string, 0, b.Len())
	b.Each(func(name string, _ Tensor) {
		names = append(names, name)
	})
	return names
}

// UnmarshalJSON decodes a JSON object keeping key order
func (b *Bundle) UnmarshalJSON(data []byte) error {
	decoded := orderedmap.New[string, Tensor]()
	if err := decoded.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("failed to decode layer bundle: %w", err)
	}

	b.entries = orderedmap.New[string, Tensor]()
	for pair := decoded.Oldest(); pair != nil; pair = pair.Next() {
		b.Set(pair.Key, pair.Value)
	}
	return nil
}

// MarshalJSON encodes the bundle as a JSON object in encounter order
func (b *Bundle) MarshalJSON() ([]byte, error) {
	if b.entries == nil {
		return []byte("{}"), nil
	}
	return b.entries.MarshalJSON()
}
