package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// columnKind tells the binder how to slot a cell into a RawObservation.
type columnKind int

const (
	kindString columnKind = iota
	kindFloat
	kindIgnored // recognized but not carried (epoch duplicate of last_updated)
)

// column describes one schema column after header normalization.
type column struct {
	name     string
	kind     columnKind
	required bool
	setStr   func(*RawObservation, string)
	metric   Metric // for kindFloat columns that map to a metric
	setFloat func(*RawObservation, float64)
}

// schemaColumns enumerates every column the Global Weather Repository CSV
// may carry. Unknown headers are rejected at bind time.
var schemaColumns = []column{
	{name: "country", kind: kindString, required: true, setStr: func(r *RawObservation, s string) { r.Country = s }},
	{name: "location_name", kind: kindString, required: true, setStr: func(r *RawObservation, s string) { r.LocationName = s }},
	{name: "latitude", kind: kindFloat, setFloat: func(r *RawObservation, v float64) { r.Latitude = v }},
	{name: "longitude", kind: kindFloat, setFloat: func(r *RawObservation, v float64) { r.Longitude = v }},
	{name: "timezone", kind: kindString, setStr: func(r *RawObservation, s string) { r.Timezone = s }},
	{name: "last_updated", kind: kindString, required: true, setStr: func(r *RawObservation, s string) { r.LastUpdated = s }},
	{name: "last_updated_epoch", kind: kindIgnored},
	{name: "condition_text", kind: kindString, setStr: func(r *RawObservation, s string) { r.ConditionText = s }},
	{name: "wind_direction", kind: kindString, setStr: func(r *RawObservation, s string) { r.WindDirection = s }},
	{name: "sunrise", kind: kindString, setStr: func(r *RawObservation, s string) { r.Sunrise = s }},
	{name: "sunset", kind: kindString, setStr: func(r *RawObservation, s string) { r.Sunset = s }},
	{name: "moonrise", kind: kindString, setStr: func(r *RawObservation, s string) { r.Moonrise = s }},
	{name: "moonset", kind: kindString, setStr: func(r *RawObservation, s string) { r.Moonset = s }},
	{name: "moon_phase", kind: kindString, setStr: func(r *RawObservation, s string) { r.MoonPhase = s }},
	{name: "moon_illumination", kind: kindFloat, setFloat: func(r *RawObservation, v float64) { r.MoonIllumination = v }},
}

// NormalizeColumn lowercases a header and replaces spaces, hyphens, and dots
// with underscores, the single naming convention every consumer sees.
func NormalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return '_'
		default:
			return r
		}
	}, name)
}

// RowBinder maps record positions to schema columns for one CSV file.
type RowBinder struct {
	cols []column // indexed by record position
}

// BindHeader resolves a normalized header row against the schema. It errors
// on unknown or duplicate columns and on missing required columns.
func BindHeader(header []string) (*RowBinder, error) {
	byName := make(map[string]column, len(schemaColumns)+len(Metrics))
	for _, c := range schemaColumns {
		byName[c.name] = c
	}
	for _, m := range Metrics {
		acc := rawAccessors[m]
		byName[string(m)] = column{name: string(m), kind: kindFloat, metric: m, setFloat: acc.set}
	}

	cols := make([]column, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := NormalizeColumn(h)
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q (position %d)", h, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
		cols[i] = c
	}

	for _, c := range schemaColumns {
		if c.required && !seen[c.name] {
			return nil, fmt.Errorf("missing required column %q", c.name)
		}
	}

	return &RowBinder{cols: cols}, nil
}

// ParseRecord converts one CSV record into a RawObservation. Blank or
// malformed numeric cells become NaN for later median imputation; every
// unbound metric field is also NaN so imputation treats absent columns the
// same as blank cells.
func (b *RowBinder) ParseRecord(record []string) (RawObservation, error) {
	if len(record) != len(b.cols) {
		return RawObservation{}, fmt.Errorf("record has %d fields, header has %d", len(record), len(b.cols))
	}

	var raw RawObservation
	for _, acc := range rawAccessors {
		acc.set(&raw, math.NaN())
	}
	raw.Latitude = math.NaN()
	raw.Longitude = math.NaN()
	raw.MoonIllumination = math.NaN()

	for i, cell := range record {
		c := b.cols[i]
		cell = strings.TrimSpace(cell)
		switch c.kind {
		case kindString:
			c.setStr(&raw, cell)
		case kindFloat:
			c.setFloat(&raw, parseFloatOrNaN(cell))
		case kindIgnored:
		}
	}
	return raw, nil
}

// parseFloatOrNaN parses a cell as float64, returning NaN for blank or
// unparseable values so they are visible to imputation.
func parseFloatOrNaN(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
