package crawler

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is the document query capability the extractor and pagination
// resolver depend on. Any HTML engine can satisfy it.
type Node interface {
	// QueryOne returns the first descendant matching selector
	QueryOne(selector string) (Node, bool)

	// QueryAll returns every descendant matching selector in document order
	QueryAll(selector string) []Node

	// Text returns the combined text content
	Text() string

	// Attr returns an attribute value and whether it was present
	Attr(name string) (string, bool)
}

// selectionNode adapts a goquery selection to Node
type selectionNode struct {
	sel *goquery.Selection
}

// NewDocument parses HTML from a reader into a queryable Node
func NewDocument(reader io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return selectionNode{sel: doc.Selection}, nil
}

func (n selectionNode) QueryOne(selector string) (Node, bool) {
	found := n.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}
	return selectionNode{sel: found}, true
}

func (n selectionNode) QueryAll(selector string) []Node {
	found := n.sel.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selectionNode{sel: s})
	})
	return nodes
}

func (n selectionNode) Text() string {
	return n.sel.Text()
}

func (n selectionNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

// cellText trims a table cell and collapses internal whitespace runs
func cellText(n Node) string {
	return strings.Join(strings.Fields(n.Text()), " ")
}
