package crawler

import (
	"strings"

	"sjsage522/estatecrawler/pkg/errors"
)

// ListingExtractor projects listing blocks into raw field records
type ListingExtractor struct {
	selectors ListingSelectors
}

// NewListingExtractor validates the selector contract once and returns an extractor
func NewListingExtractor(selectors ListingSelectors) (*ListingExtractor, error) {
	if err := selectors.Validate(); err != nil {
		return nil, err
	}
	return &ListingExtractor{selectors: selectors}, nil
}

// Blocks returns the listing blocks of a page in document order
func (e *ListingExtractor) Blocks(page Node) []Node {
	return page.QueryAll(e.selectors.Block)
}

// Extract reads one listing block. A missing element fails only this listing.
func (e *ListingExtractor) Extract(block Node) (*RawListingFields, error) {
	values := make(map[string]string, len(e.selectors.Fields))
	for _, f := range e.selectors.Fields {
		node, ok := block.QueryOne(f.Selector)
		if !ok {
			return nil, &errors.MissingFieldError{Field: f.Field, Selector: f.Selector}
		}

		if f.Attr == "" {
			values[f.Field] = strings.TrimSpace(node.Text())
			continue
		}

		attr, exists := node.Attr(f.Attr)
		if !exists && !f.Optional {
			return nil, &errors.MissingFieldError{Field: f.Field, Selector: f.Selector + "[" + f.Attr + "]"}
		}
		values[f.Field] = strings.TrimSpace(attr)
	}

	var cells []string
	for _, table := range e.selectors.CellTables {
		for _, cell := range block.QueryAll(table) {
			cells = append(cells, cellText(cell))
		}
	}
	if len(cells) < requiredCells {
		return nil, &errors.MissingFieldError{Field: "table cells", Selector: strings.Join(e.selectors.CellTables, ", ")}
	}

	return &RawListingFields{
		Category:    values[FieldCategory],
		Name:        values[FieldName],
		Description: values[FieldDescription],
		Image:       values[FieldImage],
		Permalink:   values[FieldPermalink],
		Address:     cells[0],
		StationLine: cells[1],
		StationName: cells[2],
		Price:       cells[3],
		Size:        cells[4],
		Age:         cells[5],
	}, nil
}
