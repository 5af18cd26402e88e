package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sjsage522/estatecrawler/pkg/errors"
)

func parse(t *testing.T, html string) Node {
	t.Helper()
	doc, err := NewDocument(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newTestExtractor(t *testing.T) *ListingExtractor {
	t.Helper()
	e, err := NewListingExtractor(DefaultListingSelectors())
	require.NoError(t, err)
	return e
}

func TestExtractListing(t *testing.T) {
	e := newTestExtractor(t)
	doc := parse(t, resultPage("", "", newListing("a1"), newListing("a2")))

	blocks := e.Blocks(doc)
	require.Len(t, blocks, 2)

	raw, err := e.Extract(blocks[0])
	require.NoError(t, err)
	assert.Equal(t, "中古マンション", raw.Category)
	assert.Equal(t, "a1", raw.Name)
	assert.Equal(t, "/ms/chuko/tokyo/sc_meguro/nc_a1/", raw.Permalink)
	assert.Equal(t, "https://img01.suumo.com/front/gazo/a1.jpg", raw.Image)
	assert.Equal(t, "南向き 角部屋 ペット相談可", raw.Description)
	assert.Equal(t, "東京都目黒区鷹番３", raw.Address)
	assert.Equal(t, "東急東横線", raw.StationLine)
	assert.Equal(t, "「学芸大学」徒歩7分", raw.StationName)
	assert.Equal(t, "4980万円", raw.Price)
	assert.Equal(t, "3LDK／75.5m2", raw.Size)
	assert.Equal(t, "2015年6月", raw.Age)

	raw, err = e.Extract(blocks[1])
	require.NoError(t, err)
	assert.Equal(t, "a2", raw.Name)
}

func TestExtractCollapsesCellWhitespace(t *testing.T) {
	e := newTestExtractor(t)
	l := newListing("ws")
	l.Cells[0] = "東京都   目黒区\n\t鷹番３"
	doc := parse(t, resultPage("", "", l))

	raw, err := e.Extract(e.Blocks(doc)[0])
	require.NoError(t, err)
	assert.Equal(t, "東京都 目黒区 鷹番３", raw.Address)
}

func TestExtractMissingFields(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name    string
		mutate  func(l *listingFixture)
		field   string
		wantErr bool
	}{
		{
			name:    "missing href",
			mutate:  func(l *listingFixture) { l.NoPermalink = true },
			field:   FieldPermalink,
			wantErr: true,
		},
		{
			name:    "too few cells",
			mutate:  func(l *listingFixture) { l.Cells = l.Cells[:5] },
			field:   "table cells",
			wantErr: true,
		},
		{
			name:    "missing image rel is allowed",
			mutate:  func(l *listingFixture) { l.NoImageRel = true },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newListing("x")
			tt.mutate(&l)
			doc := parse(t, resultPage("", "", l))

			raw, err := e.Extract(e.Blocks(doc)[0])
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Empty(t, raw.Image)
				return
			}
			require.Error(t, err)
			var mfe *errors.MissingFieldError
			require.ErrorAs(t, err, &mfe)
			assert.Equal(t, tt.field, mfe.Field)
			assert.Nil(t, raw)
		})
	}
}

func TestExtractMissingElement(t *testing.T) {
	e := newTestExtractor(t)
	html := `<div class="cassette js-bukkenCassette"><div class="cassettebox-header"></div></div>`
	doc := parse(t, html)

	_, err := e.Extract(e.Blocks(doc)[0])
	var mfe *errors.MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, FieldCategory, mfe.Field)
	assert.Equal(t, ".cassettebox-header .cassettebox-hpct", mfe.Selector)
}

func TestListingSelectorsValidate(t *testing.T) {
	assert.NoError(t, DefaultListingSelectors().Validate())

	invalid := DefaultListingSelectors()
	invalid.Block = "div[["
	_, err := NewListingExtractor(invalid)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	duplicate := DefaultListingSelectors()
	duplicate.Fields = append(duplicate.Fields, FieldSelector{Field: FieldName, Selector: "h2"})
	assert.True(t, errors.IsType(duplicate.Validate(), errors.ErrorTypeConfiguration))

	incomplete := DefaultListingSelectors()
	incomplete.Fields = incomplete.Fields[:4]
	assert.Error(t, incomplete.Validate())

	noCells := DefaultListingSelectors()
	noCells.CellTables = nil
	assert.Error(t, noCells.Validate())
}
