package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	apperrors "sjsage522/pricetracker/pkg/errors"
)

//go:embed collectibles.yaml
var defaultCollectibles []byte

// Scrape modes
const (
	ModeListing = "listing"
	ModeHistory = "history"
)

// DefaultCollectible is used when no target is given on the command line
const DefaultCollectible = "silver-tempest-booster-box"

// Selectors contains CSS selectors for the completed-sales table
type Selectors struct {
	Row   string `yaml:"row"`
	Date  string `yaml:"date"`
	Title string `yaml:"title"`
	Price string `yaml:"price"`
}

// Collectible describes one configured scrape target
type Collectible struct {
	Title       string    `yaml:"title"`
	Collection  string    `yaml:"collection"`
	ProductType string    `yaml:"productType"`
	Mode        string    `yaml:"mode"`
	URL         string    `yaml:"url"`
	IDPrefix    string    `yaml:"idPrefix"`
	Render      bool      `yaml:"render"`
	Selectors   Selectors `yaml:"selectors"`
}

// Registry maps collectible type names to their configuration
type Registry map[string]Collectible

// DefaultRegistry returns the registry compiled into the binary
func DefaultRegistry() (Registry, error) {
	return ParseRegistry(defaultCollectibles)
}

// ParseRegistry decodes and validates a YAML registry document
func ParseRegistry(data []byte) (Registry, error) {
	registry, err := decodeRegistry(data)
	if err != nil {
		return nil, err
	}
	registry.applyDefaults()
	return registry, registry.Validate()
}

func decodeRegistry(data []byte) (Registry, error) {
	registry := Registry{}
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, apperrors.NewConfiguration("failed to parse collectible registry", err)
	}
	return registry, nil
}

func (r Registry) applyDefaults() {
	for name, c := range r {
		if c.Mode == "" {
			c.Mode = ModeListing
			r[name] = c
		}
	}
}

// LoadRegistry returns the default registry merged with the file at path, if any.
// Entries in the file override default entries field by field.
func LoadRegistry(path string) (Registry, error) {
	registry, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return registry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfiguration(fmt.Sprintf("failed to read %s", path), err)
	}
	overrides, err := decodeRegistry(data)
	if err != nil {
		return nil, err
	}

	for name, override := range overrides {
		base := registry[name]
		if err := mergo.Merge(&base, override, mergo.WithOverride); err != nil {
			return nil, apperrors.NewConfiguration(fmt.Sprintf("failed to merge collectible %s", name), err)
		}
		registry[name] = base
	}
	registry.applyDefaults()
	return registry, registry.Validate()
}

// Validate checks every entry for a known mode and complete selectors
func (r Registry) Validate() error {
	for _, name := range r.Names() {
		c := r[name]
		switch c.Mode {
		case ModeListing:
			if c.Selectors.Row == "" || c.Selectors.Date == "" || c.Selectors.Title == "" || c.Selectors.Price == "" {
				return apperrors.NewConfiguration(fmt.Sprintf("collectible %s: listing mode needs row, date, title and price selectors", name), nil)
			}
		case ModeHistory:
		default:
			return apperrors.NewConfiguration(fmt.Sprintf("collectible %s: unknown mode %q", name, c.Mode), nil)
		}
		if c.URL == "" && (c.Collection == "" || c.ProductType == "") {
			return apperrors.NewConfiguration(fmt.Sprintf("collectible %s: url or collection and productType required", name), nil)
		}
	}
	return nil
}

// Names returns the registered collectible names in sorted order
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named collectible
func (r Registry) Lookup(name string) (Collectible, error) {
	c, ok := r[name]
	if !ok {
		return Collectible{}, apperrors.NewConfiguration(
			fmt.Sprintf("unknown collectible %q (known: %s)", name, strings.Join(r.Names(), ", ")), nil)
	}
	return c, nil
}

// Describe renders one line per collectible for help output
func (r Registry) Describe() string {
	var sb strings.Builder
	for _, name := range r.Names() {
		c := r[name]
		fmt.Fprintf(&sb, "  %-30s %-8s %s\n", name, c.Mode, c.Title)
	}
	return sb.String()
}
