package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"sjsage522/estatecrawler/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// MockFetcher serves canned HTML per URL
type MockFetcher struct {
	mu          sync.Mutex
	pages       map[string]string
	errs        map[string]error
	delays      map[string]time.Duration
	onFetch     func(url string)
	calls       []string
	inFlight    int
	maxInFlight int
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		pages:  make(map[string]string),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
	}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delays[url]
	hook := m.onFetch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if hook != nil {
		hook(url)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	html, ok := m.pages[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return strings.NewReader(html), nil
}

func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockFetcher) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// MockStore records inserts and closes
type MockStore struct {
	mu        sync.Mutex
	inserts   [][]ListingRecord
	insertErr error
	closed    int
}

func (m *MockStore) InsertMany(ctx context.Context, records []ListingRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.inserts = append(m.inserts, append([]ListingRecord(nil), records...))
	return len(records), nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockStore) opener() OpenStoreFunc {
	return func(ctx context.Context) (Store, error) {
		return m, nil
	}
}

// listingFixture describes one listing block of a result page
type listingFixture struct {
	Category    string
	Name        string
	Permalink   string
	Image       string
	Description string
	Cells       []string
	NoPermalink bool
	NoImageRel  bool
}

func newListing(name string) listingFixture {
	return listingFixture{
		Category:    "中古マンション",
		Name:        name,
		Permalink:   "/ms/chuko/tokyo/sc_meguro/nc_" + name + "/",
		Image:       "https://img01.suumo.com/front/gazo/" + name + ".jpg",
		Description: "南向き 角部屋 ペット相談可",
		Cells: []string{
			"東京都目黒区鷹番３",
			"東急東横線",
			"「学芸大学」徒歩7分",
			"4980万円",
			"3LDK／75.5m2",
			"2015年6月",
		},
	}
}

func (l listingFixture) HTML() string {
	var b strings.Builder
	b.WriteString(`<div class="cassette js-bukkenCassette"><div class="cassettebox-header">`)
	fmt.Fprintf(&b, `<span class="cassettebox-hpct">%s</span>`, l.Category)
	if l.NoPermalink {
		fmt.Fprintf(&b, `<h2 class="cassettebox-title"><a>%s</a></h2>`, l.Name)
	} else {
		fmt.Fprintf(&b, `<h2 class="cassettebox-title"><a href="%s">%s</a></h2>`, l.Permalink, l.Name)
	}
	b.WriteString(`</div><div class="cassettebox-body"><div class="ui-media"><div class="infodatabox-object">`)
	if l.NoImageRel {
		b.WriteString(`<img src="blank.gif">`)
	} else {
		fmt.Fprintf(&b, `<img src="blank.gif" rel="%s">`, l.Image)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="infodatabox-lead">%s</div>`, l.Description)
	b.WriteString(`<div class="infodatabox-boxgroup">`)

	split := len(l.Cells)
	if split > 3 {
		split = 3
	}
	writeTable(&b, l.Cells[:split])
	writeTable(&b, l.Cells[split:])
	b.WriteString(`</div></div></div></div>`)
	return b.String()
}

func writeTable(b *strings.Builder, cells []string) {
	b.WriteString(`<table class="listtable"><tbody><tr>`)
	for _, c := range cells {
		fmt.Fprintf(b, "<td>\n  %s\n</td>", c)
	}
	b.WriteString(`</tr></tbody></table>`)
}

// resultPage renders a result page. hit is the raw hit-count text and
// lastHref the link of the last pagination item; empty strings omit them.
func resultPage(hit, lastHref string, listings ...listingFixture) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if hit != "" {
		fmt.Fprintf(&b, `<div class="pagination_set"><div class="pagination_set-hit">%s</div></div>`, hit)
	}
	for _, l := range listings {
		b.WriteString(l.HTML())
	}
	if lastHref != "" {
		fmt.Fprintf(&b, `<div class="pagination pagination-parts"><ol><li><a href="?pn=1">1</a></li><li><a href="%s">last</a></li></ol></div>`, lastHref)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
