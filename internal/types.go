package internal

import (
	"sjsage522/pricetracker/internal/fetch"
	"sjsage522/pricetracker/services/publisher"
	"sjsage522/pricetracker/services/storage"
)

// Dependencies holds all service dependencies of a pipeline run
type Dependencies struct {
	// Fetcher retrieves static pages
	Fetcher fetch.Fetcher
	// Renderer retrieves pages that need JavaScript; nil when unavailable
	Renderer  fetch.Fetcher
	Storage   storage.Storage
	Publisher publisher.Publisher
}
