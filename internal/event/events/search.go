package events

import (
	"slices"

	"github.com/dshills/assetbus/internal/event"
)

// Search event names.
const (
	// NameSearchResultsChanged is emitted whenever the result set changes,
	// after a new query or a refinement.
	NameSearchResultsChanged event.Name = "search-results-changed"

	// NameSearch is emitted when a user runs a text search.
	NameSearch event.Name = "search"

	// NameFacet is emitted when a user includes or excludes a facet value.
	NameFacet event.Name = "facet"

	// NameInfiniteScroll is emitted when scrolling loads more results into
	// the infinite results view.
	NameInfiniteScroll event.Name = "infinite-scroll"
)

// FacetValue is one value of a facet and its hit count.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FacetDescriptor describes a facet offered for refinement.
type FacetDescriptor struct {
	// Field is the metadata field the facet is computed over.
	Field string `json:"field"`

	// Label is the display label.
	Label string `json:"label"`

	// Values are the facet's values in display order.
	Values []FacetValue `json:"values"`
}

// FilterDescriptor is one facet filter in place on a search.
type FilterDescriptor struct {
	// Facet is the field being filtered.
	Facet string `json:"facet"`

	// Value is the facet value.
	Value string `json:"value"`

	// Exclude is true when matching assets are filtered out instead of in.
	Exclude bool `json:"exclude"`
}

// AssetSummary is one hit in a result set.
type AssetSummary struct {
	AssetID      string `json:"assetId"`
	AssetName    string `json:"assetName"`
	FileType     string `json:"fileType"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// SearchResults is the payload of search-results-changed.
type SearchResults struct {
	// Query is the current search text.
	Query string `json:"query"`

	// Facets are the facets available for the current results.
	Facets []FacetDescriptor `json:"facets"`

	// Results are the current hits.
	Results []AssetSummary `json:"results"`
}

// SearchQuery is the payload of search.
type SearchQuery struct {
	// Query is the text the user searched for.
	Query string `json:"query"`
}

// FacetChange is the payload of facet.
type FacetChange struct {
	// Previous holds the filters in place before the change.
	Previous []FilterDescriptor `json:"previous"`

	// Current holds the filters in place now.
	Current []FilterDescriptor `json:"current"`
}

// ScrollPage is the payload of infinite-scroll.
type ScrollPage struct {
	// Datasource names the datasource behind the infinite results view.
	Datasource string `json:"datasource"`
}

// Typed search events.
// Clone implements event.Cloner.
func (r SearchResults) Clone() any {
	if r.Facets != nil {
		facets := make([]FacetDescriptor, len(r.Facets))
		for i, f := range r.Facets {
			f.Values = slices.Clone(f.Values)
			facets[i] = f
		}
		r.Facets = facets
	}
	r.Results = slices.Clone(r.Results)
	return r
}

// Clone implements event.Cloner.
func (c FacetChange) Clone() any {
	c.Previous = slices.Clone(c.Previous)
	c.Current = slices.Clone(c.Current)
	return c
}

var (
	SearchResultsChanged = event.NewKind[SearchResults](NameSearchResultsChanged)
	Search               = event.NewKind[SearchQuery](NameSearch)
	Facet                = event.NewKind[FacetChange](NameFacet)
	InfiniteScroll       = event.NewKind[ScrollPage](NameInfiniteScroll)
)
