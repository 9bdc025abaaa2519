package gosmt

import (
	"fmt"
	"sync"
)

// ArrayDescriptor names a symbolic or constant byte array. Identity is by
// pointer: two descriptors sharing a name but minted by different caches
// are distinct, matching the array-cache uniquing contract rather than
// name-based interning across unrelated execution states.
type ArrayDescriptor struct {
	Name        string
	Size        uint
	DomainWidth uint
	RangeWidth  uint

	// Contents holds frozen byte values for a constant array, nil for a
	// fully symbolic one.
	Contents []byte

	id uint64
}

func (a *ArrayDescriptor) String() string {
	return fmt.Sprintf("array(%s, %d)", a.Name, a.Size)
}

func (a *ArrayDescriptor) IsSymbolic() bool {
	return a.Contents == nil
}

func (a *ArrayDescriptor) hash() uint64 {
	return a.id
}

// ArrayCache uniques ArrayDescriptor instances by name, mirroring the
// ExprBuilder hash-cons cache in expr_builder.go but keyed on a plain string
// rather than a structural hash, since arrays have no substructure to fold.
type ArrayCache struct {
	lock    sync.RWMutex
	byName  map[string]*ArrayDescriptor
	counter uint64
}

func NewArrayCache() *ArrayCache {
	return &ArrayCache{
		byName: make(map[string]*ArrayDescriptor),
	}
}

// GetOrCreate returns the array descriptor already registered under name,
// or mints a new one. The lookup is by name alone: size, widths and
// contents of a later call are ignored when the name is already
// registered, so a symbolic and a constant array under the same name
// resolve to whichever was registered first.
func (c *ArrayCache) GetOrCreate(name string, size, domainWidth, rangeWidth uint, contents []byte) *ArrayDescriptor {
	c.lock.Lock()
	defer c.lock.Unlock()

	if a, ok := c.byName[name]; ok {
		return a
	}

	c.counter++
	a := &ArrayDescriptor{
		Name:        name,
		Size:        size,
		DomainWidth: domainWidth,
		RangeWidth:  rangeWidth,
		Contents:    contents,
		id:          c.counter,
	}
	c.byName[name] = a
	return a
}

func (c *ArrayCache) Lookup(name string) (*ArrayDescriptor, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	a, ok := c.byName[name]
	return a, ok
}

// NewLimitedArraySymbol mints (or recalls, via cache) a symbolic array the
// way ExprBuilder.ArraySymbol does, but first rejects sizes beyond
// cfg.MaxSymArraySize: callers past that limit are expected to concretize
// the access themselves rather than let the solver reason about an
// arbitrarily large byte-indexed object.
func NewLimitedArraySymbol(eb *ExprBuilder, cfg *Config, cache *ArrayCache, name string, size, domainWidth, rangeWidth uint) (UpdateList, error) {
	if size > cfg.MaxSymArraySize {
		return UpdateList{}, wrapf(ErrCapacity, "array %q requests %d bytes, limit is %d", name, size, cfg.MaxSymArraySize)
	}
	return eb.ArraySymbol(cache, name, size, domainWidth, rangeWidth), nil
}
