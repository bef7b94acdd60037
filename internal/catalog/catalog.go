// Package catalog implements C1, the instrument metadata catalog: a
// static lookup table mapping a trading symbol, as written by a caller
// (e.g. "EUR/USD"), to its remote path prefix and pip value. The table is
// bundled with the library as embedded JSON; regenerating it from the
// vendor's JSONP endpoint is an out-of-scope external tool.
package catalog

import (
	_ "embed"
	"encoding/json"

	"github.com/shopspring/decimal"

	dk "Duka/internal/duka"
)

//go:embed instruments.json
var instrumentsJSON []byte

type entry struct {
	RemotePrefix string  `json:"remote_prefix"`
	PipValue     float64 `json:"pip_value"`
}

// pointValueOverrides holds the three symbols whose point_value is not
// 10/pip_value. Kept local to this package per the spec's design note, so
// adding a fourth override never touches the decoder or planner.
var pointValueOverrides = map[string]decimal.Decimal{
	"BAT/USD": decimal.NewFromInt(100000),
	"UNI/USD": decimal.NewFromInt(1000),
	"LNK/USD": decimal.NewFromInt(1000),
}

var ten = decimal.NewFromInt(10)

// Catalog is an in-memory, read-only instrument table.
type Catalog struct {
	entries map[string]dk.Instrument
}

// Default is the catalog loaded from the library's bundled JSON document.
var Default = load()

func load() *Catalog {
	var raw map[string]entry
	if err := json.Unmarshal(instrumentsJSON, &raw); err != nil {
		panic("catalog: embedded instruments.json is invalid: " + err.Error())
	}

	entries := make(map[string]dk.Instrument, len(raw))
	for name, e := range raw {
		pip := decimal.NewFromFloat(e.PipValue)
		point := ten.Div(pip)
		if override, ok := pointValueOverrides[name]; ok {
			point = override
		}
		entries[name] = dk.Instrument{
			Name:         name,
			RemotePrefix: e.RemotePrefix,
			PipValue:     pip,
			PointValue:   point,
		}
	}
	return &Catalog{entries: entries}
}

// Lookup implements duka's InstrumentLookup contract.
func (c *Catalog) Lookup(name string) (dk.Instrument, bool) {
	inst, ok := c.entries[name]
	return inst, ok
}

// Symbols returns every catalog entry's symbol, useful for CLI completion
// or the ops daemon's /instruments listing.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.entries))
	for name := range c.entries {
		out = append(out, name)
	}
	return out
}
