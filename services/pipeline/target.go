package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/helpers"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

// Target is one fully resolved scrape/analysis target
type Target struct {
	Name        string
	Title       string
	Collection  string
	ProductType string
	Mode        string
	URL         string
	Dir         string
	Render      bool
	Collectible config.Collectible
}

// Key identifies the target in published messages
func (t Target) Key() string {
	return t.Collection + "/" + t.ProductType
}

// TargetOptions are the command-line inputs that select a target
type TargetOptions struct {
	Collectible string
	URL         string
	Collection  string
	ProductType string
	Mode        string
	OutputDir   string
}

// BuildURL returns the product page for a collection and product type
func BuildURL(baseURL, collection, productType string) string {
	return fmt.Sprintf("%s/game/%s/%s", strings.TrimRight(baseURL, "/"), collection, productType)
}

// ResolveTarget combines a registry entry with command-line overrides.
// Without a named collectible the default entry supplies selectors and mode.
func ResolveTarget(cfg *config.Config, registry config.Registry, opts TargetOptions) (Target, error) {
	name := opts.Collectible
	custom := name == ""
	if custom {
		name = config.DefaultCollectible
	}

	c, err := registry.Lookup(name)
	if err != nil {
		return Target{}, err
	}

	if opts.URL != "" {
		c.URL = opts.URL
		if opts.Collection == "" && opts.ProductType == "" {
			collection, productType, err := helpers.CollectionFromURL(opts.URL)
			if err != nil {
				return Target{}, apperrors.NewConfiguration(
					fmt.Sprintf("cannot derive collection and product type from %q, pass --collection and --type", opts.URL), err)
			}
			c.Collection, c.ProductType = collection, productType
		}
	} else if opts.Collection != "" || opts.ProductType != "" {
		c.URL = ""
	}
	if opts.Collection != "" {
		c.Collection = opts.Collection
	}
	if opts.ProductType != "" {
		c.ProductType = opts.ProductType
	}
	if opts.Mode != "" {
		c.Mode = opts.Mode
	}
	if c.Mode != config.ModeListing && c.Mode != config.ModeHistory {
		return Target{}, apperrors.NewConfiguration(fmt.Sprintf("unknown mode %q (use %s or %s)", c.Mode, config.ModeListing, config.ModeHistory), nil)
	}
	if c.Mode == config.ModeListing && c.Selectors.Row == "" {
		return Target{}, apperrors.NewConfiguration(fmt.Sprintf("collectible %s has no listing selectors", name), nil)
	}

	if custom && (opts.URL != "" || opts.Collection != "" || opts.ProductType != "") {
		name = c.Collection + "/" + c.ProductType
		c.Title = strings.TrimSpace(c.Collection + " " + c.ProductType)
	}

	url := c.URL
	if url == "" {
		url = BuildURL(cfg.BaseURL, c.Collection, c.ProductType)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}

	return Target{
		Name:        name,
		Title:       c.Title,
		Collection:  c.Collection,
		ProductType: c.ProductType,
		Mode:        c.Mode,
		URL:         url,
		Dir:         filepath.Join(outputDir, c.Collection, c.ProductType),
		Render:      c.Render,
		Collectible: c,
	}, nil
}
