package crawler

import (
	"context"
	"fmt"
	"io"

	"github.com/andybalholm/cascadia"
	"sjsage522/estatecrawler/internal/normalize"
	"sjsage522/estatecrawler/pkg/errors"
)

// ListingRecord represents one normalized property listing
type ListingRecord struct {
	Category    string `json:"type" bson:"type"`
	Name        string `json:"building_name" bson:"building_name"`
	Address     string `json:"address" bson:"address"`
	Description string `json:"desc" bson:"desc"`
	Image       string `json:"image_url" bson:"image_url"`
	URL         string `json:"url" bson:"url"`

	RawPrice   string `json:"price" bson:"price"`
	RawSize    string `json:"size" bson:"size"`
	RawStation string `json:"station_raw" bson:"station_raw"`
	RawAge     string `json:"age" bson:"age"`

	PriceYen          *int64   `json:"price_yen" bson:"price_yen"`
	MonthlyPaymentYen *int64   `json:"monthly_payment_yen" bson:"monthly_payment_yen"`
	AreaSqm           *float64 `json:"area_sqm" bson:"area_sqm"`
	LayoutRaw         *string  `json:"layout_raw" bson:"layout_raw"`
	Rooms             *int     `json:"rooms" bson:"rooms"`
	LDK               *bool    `json:"ldk" bson:"ldk"`
	BuiltYear         *int     `json:"built_year" bson:"built_year"`
	BuiltMonth        *int     `json:"built_month" bson:"built_month"`

	Station normalize.StationInfo `json:"station" bson:"station"`
	Flags   normalize.Flags       `json:"flags" bson:"flags"`

	// CreatedAt is the crawl day in the source's calendar, YYYY-MM-DD
	CreatedAt string `json:"created_at" bson:"created_at"`
}

// RawListingFields holds the unparsed text of one listing block
type RawListingFields struct {
	Category    string
	Name        string
	Description string
	Image       string
	Permalink   string

	Address     string
	StationLine string
	StationName string
	Price       string
	Size        string
	Age         string
}

// PageIndexSummary is the result count and last page number of an index page
type PageIndexSummary struct {
	TotalItems    int
	MaxPageNumber int
}

// PageFetcher retrieves one document. It is the only suspension point of a crawl.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// Store receives the aggregated records of a run through one bulk insert
type Store interface {
	// InsertMany writes records in order and returns how many were written
	InsertMany(ctx context.Context, records []ListingRecord) (int, error)

	// Close releases the underlying connection
	Close() error
}

// OpenStoreFunc opens a store handle for the duration of one run
type OpenStoreFunc func(ctx context.Context) (Store, error)

// FieldSelector maps one single-valued listing field to its selector.
// When Attr is empty the element text is used.
type FieldSelector struct {
	Field    string
	Selector string
	Attr     string
	// Optional fields yield "" instead of an error when the attribute is absent
	Optional bool
}

// ListingSelectors is the structural contract of a listing page
type ListingSelectors struct {
	Block  string
	Fields []FieldSelector
	// CellTables are queried in order; their cells are concatenated
	CellTables []string

	ResultCount string
	LastPageRef string
}

const (
	FieldCategory    = "category"
	FieldName        = "name"
	FieldDescription = "description"
	FieldImage       = "image"
	FieldPermalink   = "permalink"
)

// requiredCells is the number of positional table cells a listing must carry
const requiredCells = 6

// DefaultListingSelectors returns the selector contract of SUUMO result pages
func DefaultListingSelectors() ListingSelectors {
	return ListingSelectors{
		Block: ".cassette.js-bukkenCassette",
		Fields: []FieldSelector{
			{Field: FieldCategory, Selector: ".cassettebox-header .cassettebox-hpct"},
			{Field: FieldName, Selector: ".cassettebox-header .cassettebox-title a"},
			{Field: FieldDescription, Selector: ".infodatabox-lead"},
			{Field: FieldImage, Selector: ".cassettebox-body .ui-media .infodatabox-object img", Attr: "rel", Optional: true},
			{Field: FieldPermalink, Selector: ".cassettebox-header .cassettebox-title a", Attr: "href"},
		},
		CellTables: []string{
			".infodatabox-boxgroup .listtable:nth-of-type(1) tbody tr td",
			".infodatabox-boxgroup .listtable:nth-of-type(2) tbody tr td",
		},
		ResultCount: ".pagination_set-hit",
		LastPageRef: ".pagination-parts li:last-child a",
	}
}

// Validate compiles every selector once and checks the field set is complete
func (s ListingSelectors) Validate() error {
	all := []string{s.Block, s.ResultCount, s.LastPageRef}
	all = append(all, s.CellTables...)
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Field] {
			return errors.NewConfiguration(fmt.Sprintf("duplicate selector for field %q", f.Field), nil)
		}
		seen[f.Field] = true
		all = append(all, f.Selector)
	}

	for _, sel := range all {
		if _, err := cascadia.Compile(sel); err != nil {
			return errors.NewConfiguration(fmt.Sprintf("invalid selector %q", sel), err)
		}
	}

	for _, field := range []string{FieldCategory, FieldName, FieldDescription, FieldImage, FieldPermalink} {
		if !seen[field] {
			return errors.NewConfiguration(fmt.Sprintf("no selector for field %q", field), nil)
		}
	}
	if len(s.CellTables) == 0 {
		return errors.NewConfiguration("no cell table selectors", nil)
	}
	return nil
}
