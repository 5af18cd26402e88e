// Package normalize turns the Japanese-language text cells of a listing into
// typed values. Every parser is total: text without a recognizable pattern
// yields nil (or false for flags), never a default number.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	okuRegex     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*億\s*(\d+(?:\.\d+)?)?\s*万?円?`)
	manRegex     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*万\s*円?`)
	yenRegex     = regexp.MustCompile(`(\d+)\s*円`)
	monthlyRegex = regexp.MustCompile(`月々支払額[:：]?\s*(\d+(?:\.\d+)?)\s*万\s*円?`)

	areaRegex = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:m2|㎡)`)

	layoutLabelRegex = regexp.MustCompile(`間取り[:：]?\s*([^\s／/|]+)`)
	layoutLDKRegex   = regexp.MustCompile(`(?i)(\d+)\s*(L?D?K)`)
	layoutKRegex     = regexp.MustCompile(`(?i)(\d+)\s*K`)

	builtYMRegex = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月`)
	builtYRegex  = regexp.MustCompile(`(\d{4})\s*年`)
)

const studioToken = "ワンルーム"

// Z2H folds full-width and compatibility characters (NFKC) and trims spaces.
func Z2H(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// ParsePriceToYen converts a price such as "1億2000万円", "3,500万円" or
// "980,000円" into yen. The oku form is tried before the man form so that
// "1億2000万" is not read as 2000万.
func ParsePriceToYen(s string) *int64 {
	if s == "" {
		return nil
	}
	t := strings.ReplaceAll(Z2H(s), ",", "")

	if m := okuRegex.FindStringSubmatch(t); m != nil {
		oku, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		man := 0.0
		if m[2] != "" {
			if man, err = strconv.ParseFloat(m[2], 64); err != nil {
				return nil
			}
		}
		return roundYen(oku*100_000_000 + man*10_000)
	}

	if m := manRegex.FindStringSubmatch(t); m != nil {
		man, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		return roundYen(man * 10_000)
	}

	if m := yenRegex.FindStringSubmatch(t); m != nil {
		yen, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		return &yen
	}

	return nil
}

// ParseMonthlyPaymentToYen only reads an explicit "月々支払額" label.
func ParseMonthlyPaymentToYen(s string) *int64 {
	if s == "" {
		return nil
	}
	t := strings.ReplaceAll(Z2H(s), ",", "")
	m := monthlyRegex.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	man, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return roundYen(man * 10_000)
}

// ParseAreaSqm reads the first decimal followed by m2 or ㎡.
func ParseAreaSqm(s string) *float64 {
	if s == "" {
		return nil
	}
	m := areaRegex.FindStringSubmatch(Z2H(s))
	if m == nil {
		return nil
	}
	area, err := strconv.ParseFloat(m[1], 64)
	if err != nil || area < 0 {
		return nil
	}
	return &area
}

// Layout is a parsed floor plan. Raw keeps the matched text even when the
// room count cannot be read.
type Layout struct {
	Raw   *string
	Rooms *int
	LDK   *bool
}

// ParseLayout reads floor plans such as "3LDK", "2DK", "1K" or "ワンルーム".
func ParseLayout(s string) Layout {
	t := Z2H(s)
	if t == "" {
		return Layout{}
	}

	raw := t
	if m := layoutLabelRegex.FindStringSubmatch(t); m != nil {
		raw = m[1]
	}
	layout := Layout{Raw: &raw}

	if strings.Contains(raw, studioToken) {
		layout.Rooms = intPtr(0)
		layout.LDK = boolPtr(false)
		return layout
	}

	if m := layoutLDKRegex.FindStringSubmatch(raw); m != nil {
		if rooms, err := strconv.Atoi(m[1]); err == nil {
			kind := strings.ToUpper(m[2])
			layout.Rooms = &rooms
			layout.LDK = boolPtr(strings.Contains(kind, "L") && strings.Contains(kind, "K"))
		}
		return layout
	}

	if m := layoutKRegex.FindStringSubmatch(raw); m != nil {
		if rooms, err := strconv.Atoi(m[1]); err == nil {
			layout.Rooms = &rooms
			layout.LDK = boolPtr(false)
		}
	}
	return layout
}

// ParseBuiltYM reads "2015年6月" or "2015年". The month is only reported
// together with a year and only when it is a calendar month.
func ParseBuiltYM(s string) (year *int, month *int) {
	t := Z2H(s)

	if m := builtYMRegex.FindStringSubmatch(t); m != nil {
		y, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, nil
		}
		mo, err := strconv.Atoi(m[2])
		if err != nil || mo < 1 || mo > 12 {
			return &y, nil
		}
		return &y, &mo
	}

	if m := builtYRegex.FindStringSubmatch(t); m != nil {
		y, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, nil
		}
		return &y, nil
	}

	return nil, nil
}

func roundYen(v float64) *int64 {
	// float64(math.MaxInt64) is 2^63, one past the int64 range
	if math.IsNaN(v) || v < 0 || v >= math.MaxInt64 {
		return nil
	}
	yen := int64(math.Round(v))
	return &yen
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
