// Package pricing holds per-model token rates and turns usage into estimated cost.
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pario-ai/tokmon/pkg/models"
)

// Table maps model ids to their rates. Aliases resolve short names to ids.
// A Table is not modified after it is built.
type Table struct {
	entries map[string]models.PriceEntry
	aliases map[string]string
}

// NewTable builds a table from entries and aliases. It rejects negative
// rates, duplicate ids and aliases that point at unknown models.
func NewTable(entries []models.PriceEntry, aliases map[string]string) (*Table, error) {
	t := &Table{
		entries: make(map[string]models.PriceEntry, len(entries)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, e := range entries {
		if e.Model == "" {
			return nil, fmt.Errorf("price entry with empty model")
		}
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		if _, dup := t.entries[e.Model]; dup {
			return nil, fmt.Errorf("duplicate price entry for %s", e.Model)
		}
		t.entries[e.Model] = e
	}
	for alias, target := range aliases {
		if _, ok := t.entries[target]; !ok {
			return nil, fmt.Errorf("alias %s points at unknown model %s", alias, target)
		}
		t.aliases[strings.ToLower(alias)] = target
	}
	return t, nil
}

func validateEntry(e models.PriceEntry) error {
	rates := []struct {
		name string
		v    float64
	}{
		{"input_rate", e.InputRate},
		{"output_rate", e.OutputRate},
		{"cache_read_rate", e.CacheReadRate},
		{"cache_write_rate", e.CacheWriteRate},
	}
	for _, r := range rates {
		if r.v < 0 {
			return fmt.Errorf("model %s: negative %s %v", e.Model, r.name, r.v)
		}
	}
	return nil
}

// Lookup resolves a model name to its price entry. It tries the exact id,
// then an alias, then the part after the last "/" of provider/model keys.
// The returned string is the id the model was priced as. Estimate copies it
// into ModelCost.PricedAs, so a PricedAs that differs from Model marks a
// cost resolved through an alias or a provider prefix.
func (t *Table) Lookup(model string) (models.PriceEntry, string, bool) {
	if e, ok := t.resolve(model); ok {
		return e, e.Model, true
	}
	if i := strings.LastIndex(model, "/"); i >= 0 && i < len(model)-1 {
		if e, ok := t.resolve(model[i+1:]); ok {
			return e, e.Model, true
		}
	}
	return models.PriceEntry{}, "", false
}

func (t *Table) resolve(name string) (models.PriceEntry, bool) {
	if e, ok := t.entries[name]; ok {
		return e, true
	}
	if target, ok := t.aliases[strings.ToLower(name)]; ok {
		return t.entries[target], true
	}
	return models.PriceEntry{}, false
}

// Entries returns all entries sorted by model id.
func (t *Table) Entries() []models.PriceEntry {
	out := make([]models.PriceEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// Aliases returns a copy of the alias map.
func (t *Table) Aliases() map[string]string {
	out := make(map[string]string, len(t.aliases))
	for k, v := range t.aliases {
		out[k] = v
	}
	return out
}

// Len returns the number of priced models.
func (t *Table) Len() int { return len(t.entries) }
