package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBuilderBuild(t *testing.T) {
	builder := &RecordBuilder{
		BaseURL: "https://suumo.jp",
		// 20:00 UTC is already the next day in Tokyo
		Now: func() time.Time { return time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC) },
	}

	record := builder.Build(RawListingFields{
		Category:    "中古マンション",
		Name:        "パークハウス学芸大学",
		Description: "南向き 角部屋 ペット相談可",
		Image:       "https://img01.suumo.com/front/gazo/1.jpg",
		Permalink:   "/ms/chuko/tokyo/sc_meguro/nc_1/",
		Address:     "東京都目黒区鷹番３",
		StationLine: "東急東横線",
		StationName: "「学芸大学」徒歩7分",
		Price:       "4980万円 月々支払額：12.3万円",
		Size:        "3LDK／75.5m2",
		Age:         "2015年6月",
	})

	assert.Equal(t, "https://suumo.jp/ms/chuko/tokyo/sc_meguro/nc_1/", record.URL)
	assert.Equal(t, "東急東横線 「学芸大学」徒歩7分", record.RawStation)
	assert.Equal(t, "2024-04-01", record.CreatedAt)

	require.NotNil(t, record.PriceYen)
	assert.Equal(t, int64(49_800_000), *record.PriceYen)
	require.NotNil(t, record.MonthlyPaymentYen)
	assert.Equal(t, int64(123_000), *record.MonthlyPaymentYen)
	require.NotNil(t, record.AreaSqm)
	assert.Equal(t, 75.5, *record.AreaSqm)
	require.NotNil(t, record.Rooms)
	assert.Equal(t, 3, *record.Rooms)
	require.NotNil(t, record.LDK)
	assert.True(t, *record.LDK)
	require.NotNil(t, record.BuiltYear)
	assert.Equal(t, 2015, *record.BuiltYear)
	require.NotNil(t, record.BuiltMonth)
	assert.Equal(t, 6, *record.BuiltMonth)

	require.NotNil(t, record.Station.Line)
	assert.Equal(t, "東急東横線", *record.Station.Line)
	require.NotNil(t, record.Station.Name)
	assert.Equal(t, "学芸大学", *record.Station.Name)
	require.NotNil(t, record.Station.WalkMinutes)
	assert.Equal(t, 7, *record.Station.WalkMinutes)

	assert.True(t, record.Flags.PetOK)
	assert.True(t, record.Flags.SouthFacing)
	assert.True(t, record.Flags.Corner)
	assert.False(t, record.Flags.Balcony)
	assert.False(t, record.Flags.TowerMansion)
}

func TestRecordBuilderUnparseable(t *testing.T) {
	builder := NewRecordBuilder("https://suumo.jp")
	record := builder.Build(RawListingFields{
		Name:      "タワー",
		Permalink: "/x/",
		Price:     "価格未定",
		Size:      "-",
		Age:       "不明",
	})

	assert.Nil(t, record.PriceYen)
	assert.Nil(t, record.MonthlyPaymentYen)
	assert.Nil(t, record.AreaSqm)
	assert.Nil(t, record.Rooms)
	assert.Nil(t, record.LDK)
	assert.Nil(t, record.BuiltYear)
	assert.Nil(t, record.BuiltMonth)
	assert.Nil(t, record.Station.Line)
	assert.Nil(t, record.Station.Name)
	assert.Nil(t, record.Station.WalkMinutes)
	assert.False(t, record.Flags.TowerMansion)
	assert.Len(t, record.CreatedAt, len("2006-01-02"))
}
