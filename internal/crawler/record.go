package crawler

import (
	"strings"
	"time"

	"sjsage522/estatecrawler/internal/normalize"
)

// sourceLocation is the calendar the source site publishes in (JST, no DST)
var sourceLocation = time.FixedZone("JST", 9*60*60)

// RecordBuilder turns raw listing fields into normalized records
type RecordBuilder struct {
	// BaseURL is prefixed to the relative permalink as-is
	BaseURL string
	// Now is the clock used for CreatedAt; nil means time.Now
	Now func() time.Time
}

// NewRecordBuilder creates a record builder with the wall clock
func NewRecordBuilder(baseURL string) *RecordBuilder {
	return &RecordBuilder{BaseURL: baseURL, Now: time.Now}
}

// Build never fails: unparseable sub-fields are left nil
func (b *RecordBuilder) Build(raw RawListingFields) ListingRecord {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	station := strings.TrimSpace(raw.StationLine + " " + raw.StationName)
	layout := normalize.ParseLayout(raw.Size)
	builtYear, builtMonth := normalize.ParseBuiltYM(raw.Age)

	return ListingRecord{
		Category:    raw.Category,
		Name:        raw.Name,
		Address:     raw.Address,
		Description: raw.Description,
		Image:       raw.Image,
		URL:         b.BaseURL + raw.Permalink,

		RawPrice:   raw.Price,
		RawSize:    raw.Size,
		RawStation: station,
		RawAge:     raw.Age,

		PriceYen:          normalize.ParsePriceToYen(raw.Price),
		MonthlyPaymentYen: normalize.ParseMonthlyPaymentToYen(raw.Price),
		AreaSqm:           normalize.ParseAreaSqm(raw.Size),
		LayoutRaw:         layout.Raw,
		Rooms:             layout.Rooms,
		LDK:               layout.LDK,
		BuiltYear:         builtYear,
		BuiltMonth:        builtMonth,

		Station: normalize.ParseStationBlock(station),
		Flags:   normalize.DetectFlags(raw.Category, raw.Name, raw.Description, raw.Address),

		CreatedAt: now().In(sourceLocation).Format("2006-01-02"),
	}
}
