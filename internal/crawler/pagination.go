package crawler

import (
	"regexp"
	"strconv"
	"strings"

	"sjsage522/estatecrawler/internal/normalize"
)

var (
	digitsRegex = regexp.MustCompile(`\d+`)
	pageNoRegex = regexp.MustCompile(`pn=(\d+)`)
)

// PaginationResolver reads the result count and page count of an index page
type PaginationResolver struct {
	resultCount string
	lastPageRef string
}

// NewPaginationResolver uses the pagination selectors of the listing contract
func NewPaginationResolver(selectors ListingSelectors) *PaginationResolver {
	return &PaginationResolver{
		resultCount: selectors.ResultCount,
		lastPageRef: selectors.LastPageRef,
	}
}

// Resolve never fails; absent markup yields zero counts
func (r *PaginationResolver) Resolve(index Node) PageIndexSummary {
	return PageIndexSummary{
		TotalItems:    r.totalItems(index),
		MaxPageNumber: r.maxPageNumber(index),
	}
}

func (r *PaginationResolver) totalItems(index Node) int {
	node, ok := index.QueryOne(r.resultCount)
	if !ok {
		return 0
	}
	text := strings.ReplaceAll(normalize.Z2H(node.Text()), ",", "")
	match := digitsRegex.FindString(text)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

func (r *PaginationResolver) maxPageNumber(index Node) int {
	node, ok := index.QueryOne(r.lastPageRef)
	if !ok {
		return 0
	}
	href, exists := node.Attr("href")
	if !exists {
		return 0
	}
	m := pageNoRegex.FindStringSubmatch(href)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
