package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/dshills/assetbus/internal/event"
)

// ErrNotAStruct is returned when a payload type cannot be described.
var ErrNotAStruct = errors.New("payload type must be a struct")

// Entry describes one event in the catalog.
type Entry struct {
	// Name is the wire name of the event.
	Name event.Name

	// Description says when the event is emitted.
	Description string

	// Type is the payload struct type.
	Type reflect.Type

	// Fields lists the payload's wire field names in declaration order.
	Fields []string
}

// New returns a zero payload for the entry.
func (e Entry) New() any {
	return reflect.Zero(e.Type).Interface()
}

// Schema is an ordered, immutable table of events and payload types. It
// implements event.Codec.
type Schema struct {
	entries []Entry
	byName  map[event.Name]int
}

var defaultSchema = mustSchema(
	describe(AssetSelected, "user selected an asset in the infinite results panel"),
	describe(AssetDeselected, "user deselected an asset in the infinite results panel"),
	describe(AddItemMultiselect, "user added an item to the selection cart"),
	describe(RemoveItemMultiselect, "user removed an item from the selection cart"),
	describe(PreviousAsset, "user moved to the previous asset in the details view"),
	describe(NextAsset, "user moved to the next asset in the details view"),
	describe(SearchResultsChanged, "search results changed after a query or refinement"),
	describe(Search, "user ran a text search"),
	describe(Facet, "user included or excluded a facet value"),
	describe(Download, "user requested an asset download"),
	describe(AssetQuickPreview, "user opened an asset quick preview"),
	describe(AssetQuickPreviewClose, "user closed an asset quick preview"),
	describe(CloseBanner, "user closed the selection banner"),
	describe(AssetDetail, "user opened the asset details modal"),
	describe(InfiniteScroll, "more results were loaded into the infinite results view"),
	describe(ShareLink, "user copied a share link"),
	describe(SessionStarted, "logged-in user started a session"),
)

// Catalog returns the site event catalog.
func Catalog() *Schema {
	return defaultSchema
}

// describe builds a catalog entry from a typed kind.
func describe[P any](k event.Kind[P], description string) Entry {
	t := reflect.TypeOf((*P)(nil)).Elem()
	return Entry{
		Name:        k.Name(),
		Description: description,
		Type:        t,
		Fields:      wireFields(t),
	}
}

// NewSchema builds a schema. Entries keep the given order; a duplicate name
// or a non-struct payload type is an error.
func NewSchema(entries ...Entry) (*Schema, error) {
	s := &Schema{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[event.Name]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, event.ErrInvalidName
		}
		if e.Type == nil || e.Type.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%s: %w", e.Name, ErrNotAStruct)
		}
		if _, dup := s.byName[e.Name]; dup {
			return nil, fmt.Errorf("duplicate event name %q", e.Name)
		}
		if e.Fields == nil {
			e.Fields = wireFields(e.Type)
		}
		s.byName[e.Name] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s, nil
}

func mustSchema(entries ...Entry) *Schema {
	s, err := NewSchema(entries...)
	if err != nil {
		panic(err)
	}
	return s
}

// Entries returns the entries in declaration order.
func (s *Schema) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Names returns the event names in declaration order.
func (s *Schema) Names() []event.Name {
	names := make([]event.Name, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of events in the schema.
func (s *Schema) Len() int {
	return len(s.entries)
}

// Lookup returns the entry for name.
func (s *Schema) Lookup(name event.Name) (Entry, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// PayloadType implements event.Catalog.
func (s *Schema) PayloadType(name event.Name) (reflect.Type, bool) {
	e, ok := s.Lookup(name)
	if !ok {
		return nil, false
	}
	return e.Type, true
}

// Decode builds the payload for name from data keyed by wire field names.
// Missing fields keep their zero value; unknown fields are an error.
func (s *Schema) Decode(name event.Name, data map[string]any) (any, error) {
	e, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", event.ErrUnknownEvent, name)
	}

	ptr := reflect.New(e.Type)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      ptr.Interface(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", event.ErrPayloadMismatch, err)
	}
	return ptr.Elem().Interface(), nil
}

// Encode turns payload into a map keyed by wire field names. Nested values
// become maps and slices of plain values.
func (s *Schema) Encode(name event.Name, payload any) (map[string]any, error) {
	e, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", event.ErrUnknownEvent, name)
	}
	if payload == nil {
		payload = e.New()
	}
	if got := reflect.TypeOf(payload); got != e.Type {
		return nil, fmt.Errorf("%w: %s carries %s, want %s", event.ErrPayloadMismatch, name, got, e.Type)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", name, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", name, err)
	}
	return out, nil
}

// wireFields returns the JSON names of t's exported fields.
func wireFields(t reflect.Type) []string {
	if t.Kind() != reflect.Struct {
		return nil
	}
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields = append(fields, name)
	}
	return fields
}

var _ event.Codec = (*Schema)(nil)
