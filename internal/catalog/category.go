// internal/catalog/category.go
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Category is one comparable statistic. Signed categories keep the sign of
// their values (latitude, longitude) and are compared as-is.
type Category struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	LabelEN string `json:"label_en,omitempty"`
	Signed  bool   `json:"is_signed"`
}

// Value reads this category's statistic off a country.
func (c Category) Value(country Country) (float64, bool) {
	return country.Value(c.ID)
}

// DisplayLabel returns the label for a language, falling back to the default label.
func (c Category) DisplayLabel(language string) string {
	if language == "en" && c.LabelEN != "" {
		return c.LabelEN
	}
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// CategorySet is a named pool of categories eligible for random selection.
type CategorySet struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Categories []string `json:"categories"`
}

// CategoryDef is a category entry of the JSON configuration file.
type CategoryDef struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Config mirrors categories_config.json.
type Config struct {
	Categories []CategoryDef `json:"categories"`
	Enabled    []string      `json:"enabled_categories,omitempty"`
	Sets       []CategorySet `json:"category_sets,omitempty"`
}

var signedCategories = map[string]bool{
	"north_south": true,
	"east_west":   true,
}

var labelsEN = map[string]string{
	"population":               "Population",
	"area":                     "Area (km2)",
	"gdp":                      "GDP ($)",
	"life_expectancy":          "Life expectancy (years)",
	"mobile_subscriptions":     "Mobile subscriptions (per 100)",
	"population_density":       "Density (people/km2)",
	"inflation":                "Annual inflation (%)",
	"internet_users":           "Internet users (%)",
	"electricity_access":       "Electricity access (%)",
	"unemployment":             "Unemployment (%)",
	"north_south":              "North/South (latitude)",
	"east_west":                "East/West (longitude)",
	"tourism_arrivals":         "Tourism arrivals",
	"forest_area":              "Forest area (%)",
	"urban_population":         "Urban population (%)",
	"air_pollution":            "Air pollution (PM2.5)",
	"renewable_electricity":    "Renewable electricity (%)",
	"electricity_from_hydro":   "Hydroelectricity (%)",
	"electricity_from_nuclear": "Nuclear electricity (%)",
	"electricity_from_gas":     "Gas electricity (%)",
	"electricity_from_oil":     "Oil electricity (%)",
	"electricity_from_coal":    "Coal electricity (%)",
	"energy_use_per_capita":    "Energy use (kg oil eq/capita)",
	"alcohol_consumption":      "Alcohol consumption (L/capita)",
	"fertility_rate":           "Fertility rate (births per woman)",
}

// DefaultConfig is used when no configuration file is given.
func DefaultConfig() Config {
	return Config{
		Categories: []CategoryDef{
			{ID: "population", Label: "Population"},
			{ID: "area", Label: "Superficie (km²)"},
			{ID: "gdp", Label: "PIB ($)"},
			{ID: "north_south", Label: "Nord/Sud (latitude)"},
			{ID: "east_west", Label: "Est/Ouest (longitude)"},
		},
		Sets: []CategorySet{
			{ID: "basic", Label: "Basique", Categories: []string{"population", "area", "north_south", "east_west"}},
			{ID: "economics", Label: "Economie", Categories: []string{
				"population", "area", "north_south", "east_west", "gdp",
				"inflation", "internet_users", "electricity_access", "unemployment",
			}},
			{ID: "energy", Label: "Energie", Categories: []string{
				"population", "area", "north_south", "east_west", "energy_use_per_capita",
				"renewable_electricity", "electricity_from_hydro", "electricity_from_nuclear",
				"electricity_from_gas", "electricity_from_oil", "electricity_from_coal",
			}},
			{ID: "fun", Label: "Advanced", Categories: []string{
				"population", "area", "north_south", "east_west", "tourism_arrivals",
				"forest_area", "urban_population", "air_pollution", "alcohol_consumption",
				"fertility_rate",
			}},
		},
	}
}

// LoadConfig decodes a category configuration. Missing sections fall back to
// the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode category config: %w", err)
	}
	def := DefaultConfig()
	if len(cfg.Categories) == 0 {
		cfg.Categories = def.Categories
	}
	if len(cfg.Sets) == 0 {
		cfg.Sets = def.Sets
	}
	return cfg, nil
}

// LoadConfigFile reads a category configuration from disk.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open category config: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// Registry holds the categories usable with a given catalog.
type Registry struct {
	categories map[string]Category
	order      []string
	sets       map[string]CategorySet
	setOrder   []string
}

// NewRegistry keeps only the enabled categories every country of cat carries
// a value for, then drops sets left empty by that filter.
func NewRegistry(cat *Catalog, cfg Config) *Registry {
	available := make(map[string]bool)
	for _, id := range cat.CommonCategories() {
		available[id] = true
	}

	enabled := cfg.Enabled
	if len(enabled) == 0 {
		for _, def := range cfg.Categories {
			enabled = append(enabled, def.ID)
		}
	}
	labels := make(map[string]string, len(cfg.Categories))
	for _, def := range cfg.Categories {
		labels[def.ID] = def.Label
	}

	r := &Registry{
		categories: make(map[string]Category),
		sets:       make(map[string]CategorySet),
	}
	for _, id := range enabled {
		if !available[id] {
			continue
		}
		if _, dup := r.categories[id]; dup {
			continue
		}
		label := labels[id]
		if label == "" {
			label = labelsEN[id]
		}
		r.categories[id] = Category{
			ID:      id,
			Label:   label,
			LabelEN: labelsEN[id],
			Signed:  signedCategories[id],
		}
		r.order = append(r.order, id)
	}

	for _, set := range cfg.Sets {
		if set.ID == "" {
			continue
		}
		var ids []string
		for _, id := range set.Categories {
			if _, ok := r.categories[id]; ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		label := set.Label
		if label == "" {
			label = set.ID
		}
		if _, dup := r.sets[set.ID]; !dup {
			r.setOrder = append(r.setOrder, set.ID)
		}
		r.sets[set.ID] = CategorySet{ID: set.ID, Label: label, Categories: ids}
	}
	return r
}

// Category looks up a category by id.
func (r *Registry) Category(id string) (Category, bool) {
	c, ok := r.categories[id]
	return c, ok
}

// Categories returns every usable category in configuration order.
func (r *Registry) Categories() []Category {
	out := make([]Category, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.categories[id])
	}
	return out
}

// Set looks up a category set by id.
func (r *Registry) Set(id string) (CategorySet, bool) {
	s, ok := r.sets[id]
	return s, ok
}

// Sets returns every non-empty category set in configuration order.
func (r *Registry) Sets() []CategorySet {
	out := make([]CategorySet, 0, len(r.setOrder))
	for _, id := range r.setOrder {
		out = append(out, r.sets[id])
	}
	return out
}

// DefaultSet is "basic" when available, else the first configured set, else "".
func (r *Registry) DefaultSet() string {
	if _, ok := r.sets["basic"]; ok {
		return "basic"
	}
	if len(r.setOrder) > 0 {
		return r.setOrder[0]
	}
	return ""
}

// Pool returns the category ids of a set, or every usable category when the
// set is unknown or empty.
func (r *Registry) Pool(setID string) []string {
	if s, ok := r.sets[setID]; ok {
		return append([]string(nil), s.Categories...)
	}
	return append([]string(nil), r.order...)
}
