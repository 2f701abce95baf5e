// internal/catalog/catalog.go
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

//go:embed data/countries.json
var defaultCountries []byte

// ErrEmptyCatalog is returned when a dataset holds no usable country.
var ErrEmptyCatalog = errors.New("catalog: no countries")

// Country is one immutable row of the reference dataset.
type Country struct {
	Name            string             `json:"name"`
	NameEN          string             `json:"name_en,omitempty"`
	Flag            string             `json:"flag"`
	Capital         string             `json:"capital"`
	CapitalEN       string             `json:"capital_en,omitempty"`
	CapitalVariants []string           `json:"capital_variants,omitempty"`
	ISO2            string             `json:"iso2,omitempty"`
	Values          map[string]float64 `json:"values"`
}

// Value returns the country's statistic for a category id.
func (c Country) Value(category string) (float64, bool) {
	v, ok := c.Values[category]
	return v, ok
}

// DisplayName returns the localized country name, falling back to the canonical name.
func (c Country) DisplayName(language string) string {
	if language == "en" && c.NameEN != "" {
		return c.NameEN
	}
	return c.Name
}

// Capitals lists every accepted spelling of the capital, canonical first.
func (c Country) Capitals() []string {
	out := []string{c.Capital}
	seen := map[string]bool{c.Capital: true}
	for _, s := range append([]string{c.CapitalEN}, c.CapitalVariants...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Catalog is the read-only country table shared by every session.
type Catalog struct {
	countries []Country
	byName    map[string]int
}

// textFields are the dataset keys that are not per-category statistics.
var textFields = map[string]bool{
	"name": true, "name_en": true, "capital": true, "capital_en": true,
	"capital_variants": true, "flag": true, "iso2": true, "iso3": true,
	"region": true,
}

// hemisphere categories are derived from coordinates when a row lacks them.
var coordinateAliases = map[string]string{
	"latitude":  "north_south",
	"longitude": "east_west",
}

// Load reads a JSON array of country objects. String fields describe the
// country; every numeric field becomes a category value keyed by its name.
func Load(r io.Reader) (*Catalog, error) {
	var rows []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode countries: %w", err)
	}

	cat := &Catalog{byName: make(map[string]int, len(rows))}
	for i, row := range rows {
		c, err := parseCountry(row)
		if err != nil {
			return nil, fmt.Errorf("country #%d: %w", i, err)
		}
		if _, dup := cat.byName[c.Name]; dup {
			return nil, fmt.Errorf("country #%d: duplicate name %q", i, c.Name)
		}
		cat.byName[c.Name] = len(cat.countries)
		cat.countries = append(cat.countries, c)
	}
	if len(cat.countries) == 0 {
		return nil, ErrEmptyCatalog
	}
	return cat, nil
}

// LoadFile loads a catalog from a JSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCountries))
}

func parseCountry(row map[string]json.RawMessage) (Country, error) {
	c := Country{Values: make(map[string]float64)}

	str := func(key string, dst *string) error {
		raw, ok := row[key]
		if !ok || string(raw) == "null" {
			return nil
		}
		return json.Unmarshal(raw, dst)
	}
	for key, dst := range map[string]*string{
		"name": &c.Name, "name_en": &c.NameEN, "flag": &c.Flag,
		"capital": &c.Capital, "capital_en": &c.CapitalEN, "iso2": &c.ISO2,
	} {
		if err := str(key, dst); err != nil {
			return c, fmt.Errorf("field %s: %w", key, err)
		}
	}
	if raw, ok := row["capital_variants"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &c.CapitalVariants); err != nil {
			return c, fmt.Errorf("field capital_variants: %w", err)
		}
	}
	if c.Name == "" {
		return c, errors.New("missing name")
	}
	if c.Capital == "" {
		return c, fmt.Errorf("%s: missing capital", c.Name)
	}

	for key, raw := range row {
		if textFields[key] {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			// non-numeric extras (null, nested objects) carry no category value
			continue
		}
		c.Values[key] = v
	}
	for coord, category := range coordinateAliases {
		if v, ok := c.Values[coord]; ok {
			if _, set := c.Values[category]; !set {
				c.Values[category] = v
			}
		}
	}
	return c, nil
}

// Len returns the number of countries.
func (c *Catalog) Len() int { return len(c.countries) }

// Lookup finds a country by its canonical name.
func (c *Catalog) Lookup(name string) (Country, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Country{}, false
	}
	return c.countries[i], true
}

// Names returns every canonical country name in dataset order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.countries))
	for i, country := range c.countries {
		out[i] = country.Name
	}
	return out
}

// CommonCategories returns the value keys every country carries, sorted.
func (c *Catalog) CommonCategories() []string {
	counts := make(map[string]int)
	for _, country := range c.countries {
		for k := range country.Values {
			counts[k]++
		}
	}
	var out []string
	for k, n := range counts {
		if n == len(c.countries) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
