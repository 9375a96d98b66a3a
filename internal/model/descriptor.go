// Package model turns raw upstream rows into typed records through
// declarative descriptors: field mapping, defaults, converters, and row
// validators applied in that order.
package model

import (
	"fmt"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/pareedo/pigeonwatch/internal/observability"
)

// Converter normalizes one field value. Unparseable inputs collapse to
// nil rather than erroring; a returned error marks the row dirty.
type Converter func(v any) (any, error)

// Validator checks a cleaned row and errors when a cross-field
// constraint is violated.
type Validator func(row map[string]any) error

// Descriptor declares how upstream rows become one record type.
type Descriptor struct {
	Name         string
	FieldMapping map[string]string
	Defaults     map[string]any
	Converters   map[string]Converter
	Validators   []Validator
	Required     []string

	fieldsOnce sync.Once
	fields     map[string]bool
}

// fieldSet is the set of internal field names the descriptor accepts:
// mapping targets plus default and required keys.
func (d *Descriptor) fieldSet() map[string]bool {
	d.fieldsOnce.Do(func() {
		d.fields = make(map[string]bool, len(d.FieldMapping)+len(d.Defaults))
		for _, internal := range d.FieldMapping {
			d.fields[internal] = true
		}
		for k := range d.Defaults {
			d.fields[k] = true
		}
		for _, k := range d.Required {
			d.fields[k] = true
		}
	})
	return d.fields
}

// Clean maps, defaults, converts, and validates one raw row. In strict
// mode any converter or validator failure errors out; lenient mode logs
// converter failures and keeps the raw value, but validator failures
// still error so callers can drop the row.
func (d *Descriptor) Clean(row map[string]any, strict bool) (map[string]any, error) {
	fields := d.fieldSet()

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mapped := make(map[string]any, len(fields))
	seenSrc := make(map[string]string, len(row))
	for _, ext := range keys {
		internal, ok := d.FieldMapping[ext]
		if !ok {
			internal = ext
		}
		if !fields[internal] {
			continue
		}
		if prev, dup := seenSrc[internal]; dup {
			observability.Log().Warn("field mapping conflict",
				observability.F("descriptor", d.Name),
				observability.F("field", internal),
				observability.F("first", prev),
				observability.F("second", ext))
		}
		mapped[internal] = row[ext]
		seenSrc[internal] = ext
	}

	combined := make(map[string]any, len(fields))
	for k, v := range d.Defaults {
		combined[k] = v
	}
	for k, v := range mapped {
		combined[k] = v
	}

	for key, convert := range d.Converters {
		raw, ok := combined[key]
		if !ok {
			continue
		}
		converted, err := convert(raw)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("%s: convert %s: %w", d.Name, key, err)
			}
			observability.Log().Warn("field conversion failed",
				observability.F("descriptor", d.Name),
				observability.F("field", key),
				observability.F("error", err.Error()),
				observability.F("value", valueSnippet(raw)))
			continue
		}
		combined[key] = converted
	}

	for _, validate := range d.Validators {
		if err := validate(combined); err != nil {
			return nil, fmt.Errorf("%s: validate: %w", d.Name, err)
		}
	}

	for _, key := range d.Required {
		if v, ok := combined[key]; !ok || v == nil {
			return nil, fmt.Errorf("%s: missing required field %s", d.Name, key)
		}
	}
	return combined, nil
}

// Build cleans one row and decodes it into T through its json tags.
func Build[T any](d *Descriptor, row map[string]any, strict bool) (*T, error) {
	cleaned, err := d.Clean(row, strict)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%s: encode row: %w", d.Name, err)
	}
	out := new(T)
	if err := json.Unmarshal(encoded, out); err != nil {
		return nil, fmt.Errorf("%s: decode row: %w", d.Name, err)
	}
	return out, nil
}

// BuildAll builds every row. Lenient mode skips failed rows with a
// warning; strict mode stops at the first failure.
func BuildAll[T any](d *Descriptor, rows []map[string]any, strict bool) ([]*T, error) {
	out := make([]*T, 0, len(rows))
	for i, row := range rows {
		item, err := Build[T](d, row, strict)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			observability.Log().Warn("row skipped",
				observability.F("descriptor", d.Name),
				observability.F("row", i+1),
				observability.F("error", err.Error()))
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func valueSnippet(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
