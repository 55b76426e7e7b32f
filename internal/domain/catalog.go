package domain

import (
	"fmt"
	"slices"
)

const (
	// KeyCount is the fixed size of the contest key set.
	KeyCount = 10
	// OptionCount is the number of options every riddle offers.
	OptionCount = 4
)

// Catalog is the validated key -> riddle mapping. The riddle index of a key is
// its entry position, which is also what winners record.
type Catalog struct {
	entries []CatalogEntry
	index   map[string]int
}

// NewCatalog validates entries and builds the lookup table. Keys are normalized
// before they are indexed.
func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	if len(entries) != KeyCount {
		return nil, fmt.Errorf("%w: expected %d keys, got %d", ErrConfigurationInvalid, KeyCount, len(entries))
	}

	c := &Catalog{
		entries: make([]CatalogEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		key := NormalizeKey(entry.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty key", ErrConfigurationInvalid, i+1)
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("%w: key %s listed twice", ErrConfigurationInvalid, key)
		}
		if entry.Riddle.Prompt == "" {
			return nil, fmt.Errorf("%w: riddle %d has no prompt", ErrConfigurationInvalid, i+1)
		}
		if len(entry.Riddle.Options) != OptionCount {
			return nil, fmt.Errorf("%w: riddle %d must have exactly %d options", ErrConfigurationInvalid, i+1, OptionCount)
		}
		if entry.Riddle.CorrectOption < 0 || entry.Riddle.CorrectOption >= OptionCount {
			return nil, fmt.Errorf("%w: riddle %d correct option must be between 0 and %d", ErrConfigurationInvalid, i+1, OptionCount-1)
		}

		options := make([]string, len(entry.Riddle.Options))
		copy(options, entry.Riddle.Options)
		c.index[key] = i
		c.entries = append(c.entries, CatalogEntry{
			Key: key,
			Riddle: Riddle{
				Prompt:        entry.Riddle.Prompt,
				Options:       options,
				CorrectOption: entry.Riddle.CorrectOption,
			},
		})
	}
	return c, nil
}

// Lookup returns the riddle bound to an already-normalized key.
func (c *Catalog) Lookup(key string) (int, Riddle, bool) {
	i, ok := c.index[key]
	if !ok {
		return 0, Riddle{}, false
	}
	return i, c.riddleAt(i), true
}

// Riddle returns the riddle at a position.
func (c *Catalog) Riddle(index int) (Riddle, bool) {
	if index < 0 || index >= len(c.entries) {
		return Riddle{}, false
	}
	return c.riddleAt(index), true
}

// riddleAt copies the options so callers cannot edit the catalog.
func (c *Catalog) riddleAt(i int) Riddle {
	r := c.entries[i].Riddle
	r.Options = slices.Clone(r.Options)
	return r
}

// Keys lists the contest keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.entries))
	for i, entry := range c.entries {
		keys[i] = entry.Key
	}
	return keys
}

// Len is the number of keys.
func (c *Catalog) Len() int {
	return len(c.entries)
}
