package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type capturedCycle struct {
	store  string
	events []ChangeEvent
}

type captureNotifier struct {
	mu     sync.Mutex
	cycles []capturedCycle
}

func (n *captureNotifier) Notify(ctx context.Context, store StoreConfig, events []ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cycles = append(n.cycles, capturedCycle{store: store.Name, events: events})
	return nil
}

func (n *captureNotifier) take() []capturedCycle {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.cycles
	n.cycles = nil
	return out
}

func catalogHandler(pages map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.String()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}
}

func itemMarkup(name, link string, priceJpy float64, soldOut bool) string {
	soldOutTag := ""
	if soldOut {
		soldOutTag = `<span class="soldout">SOLD OUT</span>`
	}
	return fmt.Sprintf(`
		<li class="product">
			<span class="name">%s</span>
			<a class="item" href="%s">link</a>
			<span class="price-jpy">¥%.0f</span>
			%s
		</li>`, name, link, priceJpy, soldOutTag)
}

func newTestService(t *testing.T, stores []StoreConfig, notifier Notifier, now time.Time) Service {
	repo := setupRepository(t)
	fetcher := testFetcher(t)
	return NewService(stores, repo, fetcher, ServiceOptions{
		Notifier: notifier,
		Now:      func() time.Time { return now },
	})
}

func TestServiceEndToEnd(t *testing.T) {
	pages := map[string]string{}
	server := httptest.NewServer(catalogHandler(pages))
	defer server.Close()

	pages["/catalog"] = `<ul>` +
		itemMarkup("X", "/item/x", 5, false) +
		`</ul><a class="page" href="/catalog?p=2">next</a>`
	pages["/catalog?p=2"] = `<ul>` + itemMarkup("Y", "/item/y", 8, false) + `</ul>`

	store := fetchTestStore(server.URL)
	notifier := &captureNotifier{}
	service := newTestService(t, []StoreConfig{store}, notifier, time.Now())

	// seed the previous snapshot with just X
	ctx := context.Background()
	x := Item{Name: "X", Link: server.URL + "/item/x", Prices: map[string]float64{"JPY": 5}}
	err := service.repo.Commit(ctx, CommitParams{
		StoreName: store.Name,
		Items:     itemSet(x),
		Now:       time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	service.RunAll(ctx)

	cycles := notifier.take()
	require.Len(t, cycles, 1)
	require.Len(t, cycles[0].events, 1)
	require.Equal(t, ChangeNewItem, cycles[0].events[0].Kind)
	require.Equal(t, "Y", cycles[0].events[0].Item.Name)

	// nothing changed on the site, so a second cycle is silent
	service.RunAll(ctx)
	require.Empty(t, notifier.take())
}

func TestServicePriceChangeAndHistory(t *testing.T) {
	pages := map[string]string{}
	server := httptest.NewServer(catalogHandler(pages))
	defer server.Close()

	store := fetchTestStore(server.URL)
	notifier := &captureNotifier{}
	service := newTestService(t, []StoreConfig{store}, notifier, time.Now())
	ctx := context.Background()

	pages["/catalog"] = `<ul>` + itemMarkup("X", "/item/x", 1000, false) + `</ul>`
	service.RunAll(ctx)

	cycles := notifier.take()
	require.Len(t, cycles, 1)
	require.Equal(t, ChangeNewItem, cycles[0].events[0].Kind)

	pages["/catalog"] = `<ul>` + itemMarkup("X", "/item/x", 1200, false) + `</ul>`
	service.RunAll(ctx)

	cycles = notifier.take()
	require.Len(t, cycles, 1)
	require.Len(t, cycles[0].events, 1)
	event := cycles[0].events[0]
	require.Equal(t, ChangePriceChange, event.Kind)
	require.Equal(t, float64(1000), event.OldPrice)
	require.Equal(t, float64(1200), event.NewPrice)
}

func TestServiceScheduleGating(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `<ul></ul>`)
	}))
	defer server.Close()

	store := fetchTestStore(server.URL)
	raw := allWildcards()
	raw.Minutes = []any{float64(30)}
	store.Schedule = raw
	err := store.Validate()
	if err != nil {
		t.Fatal(err)
	}

	offSchedule := time.Date(2024, 5, 1, 12, 15, 0, 0, time.UTC)
	service := newTestService(t, []StoreConfig{store}, nil, offSchedule)
	service.RunTick(context.Background())
	require.Equal(t, int64(0), requests.Load())

	onSchedule := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	service = newTestService(t, []StoreConfig{store}, nil, onSchedule)
	service.RunTick(context.Background())
	require.Equal(t, int64(1), requests.Load())
}

func TestServiceStoreFailureIsolation(t *testing.T) {
	pages := map[string]string{}
	goodServer := httptest.NewServer(catalogHandler(pages))
	defer goodServer.Close()
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer badServer.Close()

	pages["/catalog"] = `<ul>` + itemMarkup("X", "/item/x", 100, false) + `</ul>`

	good := fetchTestStore(goodServer.URL)
	bad := fetchTestStore(badServer.URL)
	bad.Name = "badstore"

	notifier := &captureNotifier{}
	service := newTestService(t, []StoreConfig{good, bad}, notifier, time.Now())
	service.RunAll(context.Background())

	cycles := notifier.take()
	require.Len(t, cycles, 1)
	require.Equal(t, "teststore", cycles[0].store)
	require.Equal(t, ChangeNewItem, cycles[0].events[0].Kind)
}

func TestServiceSoldOutTransition(t *testing.T) {
	pages := map[string]string{}
	server := httptest.NewServer(catalogHandler(pages))
	defer server.Close()

	store := fetchTestStore(server.URL)
	notifier := &captureNotifier{}
	service := newTestService(t, []StoreConfig{store}, notifier, time.Now())
	ctx := context.Background()

	pages["/catalog"] = `<ul>` + itemMarkup("X", "/item/x", 1000, false) + `</ul>`
	service.RunAll(ctx)
	notifier.take()

	pages["/catalog"] = `<ul>` + itemMarkup("X", "/item/x", 1000, true) + `</ul>`
	service.RunAll(ctx)

	cycles := notifier.take()
	require.Len(t, cycles, 1)
	require.Len(t, cycles[0].events, 1)
	require.Equal(t, ChangeSoldOut, cycles[0].events[0].Kind)

	pages["/catalog"] = `<ul>` + itemMarkup("X", "/item/x", 1000, false) + `</ul>`
	service.RunAll(ctx)

	cycles = notifier.take()
	require.Len(t, cycles, 1)
	require.Equal(t, ChangeRestock, cycles[0].events[0].Kind)
}
